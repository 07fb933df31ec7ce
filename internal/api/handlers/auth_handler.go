package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apiContext "punchcard/internal/api/context"
	"punchcard/internal/api/middleware"
	"punchcard/internal/pkg/errors"
	"punchcard/internal/pkg/validator"
	"punchcard/internal/platform/audit"
	"punchcard/internal/platform/auth"
	"punchcard/internal/platform/models"
)

type AuthHandler struct {
	service *auth.Service
	audit   *audit.Logger
}

func NewAuthHandler(service *auth.Service, auditLogger *audit.Logger) *AuthHandler {
	return &AuthHandler{service: service, audit: auditLogger}
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	var details []fieldError
	if req.Email == "" {
		details = append(details, fieldError{"email", "Email is required"})
	}
	if req.Password == "" {
		details = append(details, fieldError{"password", "Password is required"})
	}
	if len(details) > 0 {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Email and password are required", details)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		errors.Write(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Entry{
		OrganizationID: result.User.OrganizationID,
		UserID:         result.User.ID,
		Action:         "auth.login",
		ResourceType:   "user",
		ResourceID:     result.User.ID,
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, result)
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.RefreshToken == "" {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Refresh token is required",
			[]fieldError{{"refresh_token", "Refresh token is required"}})
		return
	}

	result, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		errors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.RefreshToken == "" {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Refresh token is required",
			[]fieldError{{"refresh_token", "Refresh token is required"}})
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		errors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

type CreateAPITokenRequest struct {
	Name      string `json:"name"`
	ExpiresIn string `json:"expires_in"`
}

func (h *AuthHandler) CreateAPIToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		errors.Write(w, errors.ErrUnauthorized)
		return
	}

	var req CreateAPITokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.Name == "" {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Token name is required",
			[]fieldError{{"name", "Token name is required"}})
		return
	}

	result, err := h.service.CreateAPIToken(r.Context(), principal.UserID, req.Name, req.ExpiresIn)
	if err != nil {
		errors.Write(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Entry{
		OrganizationID: principal.OrganizationID,
		UserID:         principal.UserID,
		Action:         "auth.api_token.create",
		ResourceType:   "token",
		ResourceID:     result.Name,
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	})

	writeJSON(w, http.StatusCreated, result)
}

func (h *AuthHandler) ListAPITokens(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		errors.Write(w, errors.ErrUnauthorized)
		return
	}

	tokens, err := h.service.ListAPITokens(r.Context(), principal.UserID)
	if err != nil {
		errors.Write(w, err)
		return
	}
	if tokens == nil {
		tokens = []*models.Token{}
	}

	writeJSON(w, http.StatusOK, tokens)
}

func (h *AuthHandler) RevokeAPIToken(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		errors.Write(w, errors.ErrUnauthorized)
		return
	}

	params, _ := r.Context().Value(apiContext.Params).(httprouter.Params)
	tokenID := params.ByName("id")

	if err := h.service.RevokeAPIToken(r.Context(), principal.UserID, tokenID); err != nil {
		errors.Write(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Entry{
		OrganizationID: principal.OrganizationID,
		UserID:         principal.UserID,
		Action:         "auth.api_token.revoke",
		ResourceType:   "token",
		ResourceID:     tokenID,
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "API token revoked successfully"})
}

type SetupAccountRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type SetupAccountResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
}

func (h *AuthHandler) SetupAccount(w http.ResponseWriter, r *http.Request) {
	var req SetupAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	var details []fieldError
	if req.Token == "" {
		details = append(details, fieldError{"token", "Invitation token is required"})
	}
	if req.Password == "" {
		details = append(details, fieldError{"password", "Password is required"})
	}
	if req.PasswordConfirm == "" {
		details = append(details, fieldError{"password_confirm", "Password confirmation is required"})
	}
	if len(details) > 0 {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Token, password, and password confirmation are required", details)
		return
	}
	if req.Password != req.PasswordConfirm {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, "Passwords do not match",
			[]fieldError{{"password_confirm", "Passwords do not match"}})
		return
	}
	if err := validator.ValidatePassword(req.Password); err != nil {
		errors.WriteError(w, http.StatusUnprocessableEntity, errors.ErrCodeInvalidInput, err.Error(),
			[]fieldError{{"password", err.Error()}})
		return
	}

	user, err := h.service.CompleteInvitation(r.Context(), req.Token, req.Password)
	if err != nil {
		errors.Write(w, err)
		return
	}

	accessToken, refreshToken, err := h.service.IssueTokens(r.Context(), user)
	if err != nil {
		errors.Write(w, err)
		return
	}

	h.audit.Record(r.Context(), audit.Entry{
		OrganizationID: user.OrganizationID,
		UserID:         user.ID,
		Action:         "auth.setup_account",
		ResourceType:   "user",
		ResourceID:     user.ID,
		IPAddress:      r.RemoteAddr,
		UserAgent:      r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, SetupAccountResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.service.AccessTTLSeconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
