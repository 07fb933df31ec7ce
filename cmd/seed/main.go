package main

import (
	"context"
	"flag"
	"log"

	"punchcard/internal/platform/auth"
	"punchcard/internal/platform/config"
	"punchcard/internal/platform/database"
	"punchcard/internal/platform/models"
	"punchcard/internal/platform/repositories"
)

// Bootstraps an organization with its first admin account. Everyone else
// enters through the invitation flow.
func main() {
	orgName := flag.String("org", "", "Organization name")
	name := flag.String("name", "", "Admin full name")
	email := flag.String("email", "", "Admin email")
	password := flag.String("password", "", "Admin password")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")

	flag.Parse()

	if *orgName == "" || *name == "" || *email == "" || *password == "" {
		log.Fatal("--org, --name, --email and --password are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)

	existing, err := userRepo.GetByEmail(ctx, *email)
	if err != nil {
		log.Fatalf("Failed to check existing user: %v", err)
	}
	if existing != nil {
		log.Fatalf("User %s already exists", *email)
	}

	org := &models.Organization{Name: *orgName}
	if err := orgRepo.Create(ctx, org); err != nil {
		log.Fatalf("Failed to create organization: %v", err)
	}

	passwordHash, err := auth.HashPassword(*password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	admin := &models.User{
		OrganizationID: org.ID,
		Name:           *name,
		Email:          *email,
		PasswordHash:   passwordHash,
		Role:           models.RoleAdmin,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}

	log.Printf("Created organization %s and admin %s", org.ID, admin.ID)
}
