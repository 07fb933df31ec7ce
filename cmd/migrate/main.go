package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"punchcard/internal/platform/config"
	"punchcard/internal/platform/database"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	migrationsPath := flag.String("migrations", "migrations/global", "Path to migration files")

	flag.Parse()

	if *direction != "up" && *direction != "down" {
		log.Fatal("Invalid direction: must be 'up' or 'down'")
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

	if err := runMigrations(db, *migrationsPath, *direction); err != nil {
		log.Fatal(err)
	}

	fmt.Println("Migration completed successfully")
}

func runMigrations(db *sql.DB, path, direction string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	suffix := "." + direction + ".sql"
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}

	sort.Strings(files)
	if direction == "down" {
		for i, j := 0, len(files)-1; i < j; i, j = i+1, j-1 {
			files[i], files[j] = files[j], files[i]
		}
	}

	for _, name := range files {
		contents, err := os.ReadFile(filepath.Join(path, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := db.Exec(string(contents)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
		log.Printf("Applied %s", name)
	}

	return nil
}
