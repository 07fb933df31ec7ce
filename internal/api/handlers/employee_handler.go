package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"

	apiContext "punchcard/internal/api/context"
	"punchcard/internal/api/middleware"
	"punchcard/internal/pkg/errors"
	"punchcard/internal/pkg/validator"
	"punchcard/internal/platform/audit"
	"punchcard/internal/platform/auth"
	"punchcard/internal/platform/models"
	"punchcard/internal/platform/repositories"
)

// EmployeeHandler covers the employee lifecycle pieces the auth core
// depends on: invitation (mints the one-time setup token), deactivation
// (bulk-revokes every persisted token) and reactivation.
type EmployeeHandler struct {
	users            *repositories.UserRepository
	tokens           auth.TokenStore
	audit            *audit.Logger
	invitationExpiry time.Duration
	frontendURL      string
}

func NewEmployeeHandler(users *repositories.UserRepository, tokens auth.TokenStore, auditLogger *audit.Logger, invitationExpiry time.Duration, frontendURL string) *EmployeeHandler {
	return &EmployeeHandler{
		users:            users,
		tokens:           tokens,
		audit:            auditLogger,
		invitationExpiry: invitationExpiry,
		frontendURL:      frontendURL,
	}
}

type InviteEmployeeRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type InviteEmployeeResponse struct {
	Employee      *models.User `json:"employee"`
	InvitationURL string       `json:"invitation_url"`
	ExpiresAt     int64        `json:"expires_at"`
}

func (h *EmployeeHandler) Invite(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		errors.Write(w, errors.ErrUnauthorized)
		return
	}

	var req InviteEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	if req.Role == "" {
		req.Role = models.RolePersonal
	}
	if req.Role != models.RolePersonal && req.Role != models.RoleAdmin {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Invalid role",
			[]fieldError{{"role", "Role must be personal or admin"}})
		return
	}
	if req.Name == "" {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Name is required",
			[]fieldError{{"name", "Name is required"}})
		return
	}
	if err := validator.ValidateEmail(req.Email); err != nil {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, err.Error(),
			[]fieldError{{"email", err.Error()}})
		return
	}

	existing, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		errors.Write(w, err)
		return
	}
	if existing != nil {
		errors.Write(w, errors.ErrConflict)
		return
	}

	// The account is created locked behind the invitation: a random
	// placeholder hash that no password can match until setup completes.
	placeholder, err := auth.GenerateOpaqueToken()
	if err != nil {
		errors.Write(w, err)
		return
	}
	placeholderHash, err := auth.HashPassword(placeholder)
	if err != nil {
		errors.Write(w, err)
		return
	}

	now := time.Now().Unix()
	employee := &models.User{
		OrganizationID: principal.OrganizationID,
		Name:           req.Name,
		Email:          req.Email,
		PasswordHash:   placeholderHash,
		Role:           req.Role,
		InvitedAt:      &now,
	}
	if err := h.users.Create(r.Context(), employee); err != nil {
		errors.Write(w, err)
		return
	}

	invitationToken, err := auth.GenerateOpaqueToken()
	if err != nil {
		errors.Write(w, err)
		return
	}
	expiresAt := time.Now().Add(h.invitationExpiry).Unix()
	if err := h.tokens.Create(r.Context(), &models.Token{
		UserID:    employee.ID,
		TokenHash: auth.HashToken(invitationToken),
		Type:      models.TokenTypeInvitation,
		ExpiresAt: &expiresAt,
	}); err != nil {
		errors.Write(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Entry{
		OrganizationID: principal.OrganizationID,
		UserID:         principal.UserID,
		Action:         "employee.invite",
		ResourceType:   "user",
		ResourceID:     employee.ID,
		Metadata:       map[string]interface{}{"email": employee.Email, "role": employee.Role},
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	})

	log.Info().Str("email", employee.Email).Str("org_id", employee.OrganizationID).Msg("employee invited")

	writeJSON(w, http.StatusCreated, InviteEmployeeResponse{
		Employee:      employee,
		InvitationURL: fmt.Sprintf("%s/setup-account?token=%s", h.frontendURL, invitationToken),
		ExpiresAt:     expiresAt,
	})
}

func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		errors.Write(w, errors.ErrUnauthorized)
		return
	}

	employees, err := h.users.ListByOrg(r.Context(), principal.OrganizationID)
	if err != nil {
		errors.Write(w, err)
		return
	}
	if employees == nil {
		employees = []*models.User{}
	}

	writeJSON(w, http.StatusOK, employees)
}

// Deactivate flips the deactivated flag and revokes every persisted token
// of the employee. Outstanding access tokens stay valid until they expire;
// the authentication middleware's per-request user check closes that gap
// for routes behind it.
func (h *EmployeeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.setDeactivated(w, r, true, "employee.deactivate")
}

func (h *EmployeeHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	h.setDeactivated(w, r, false, "employee.reactivate")
}

func (h *EmployeeHandler) setDeactivated(w http.ResponseWriter, r *http.Request, deactivated bool, action string) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		errors.Write(w, errors.ErrUnauthorized)
		return
	}

	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	employeeID := params.ByName("id")

	employee, err := h.users.GetByIDAndOrg(r.Context(), employeeID, principal.OrganizationID)
	if err != nil {
		errors.Write(w, err)
		return
	}
	if employee == nil {
		errors.Write(w, errors.ErrEmployeeNotFound)
		return
	}

	if err := h.users.SetDeactivated(r.Context(), employee.ID, deactivated); err != nil {
		errors.Write(w, err)
		return
	}
	employee.Deactivated = deactivated

	if deactivated {
		if err := h.tokens.RevokeAllForUser(r.Context(), employee.ID); err != nil {
			errors.Write(w, err)
			return
		}
	}

	h.audit.Record(r.Context(), audit.Entry{
		OrganizationID: principal.OrganizationID,
		UserID:         principal.UserID,
		Action:         action,
		ResourceType:   "user",
		ResourceID:     employee.ID,
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	})

	log.Info().Str("email", employee.Email).Bool("deactivated", deactivated).Msg("employee status changed")

	writeJSON(w, http.StatusOK, employee)
}
