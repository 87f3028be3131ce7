package handlers

import (
	"net/http"

	"readquest/internal/models"
	"readquest/internal/security"
	"readquest/internal/service"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authService          *service.AuthService
	oauthProviders       map[string]OAuthProvider
	oauthRedirectBaseURL string
	stateSigner          *security.Signer
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, oauthProviders map[string]OAuthProvider, oauthRedirectBaseURL string, stateSigner *security.Signer) *AuthHandler {
	return &AuthHandler{
		authService:          authService,
		oauthProviders:       oauthProviders,
		oauthRedirectBaseURL: oauthRedirectBaseURL,
		stateSigner:          stateSigner,
	}
}

type signUpRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// SignUp creates an account and returns its first token pair
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.authService.SignUp(r.Context(), req.Email, req.Password, req.Name, req.Role)
	if err != nil {
		respondServiceError(w, "Error signing up", err)
		return
	}
	respondJSON(w, http.StatusCreated, pair)
}

// SignIn exchanges email and password for a token pair
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pair, err := h.authService.SignIn(req.Email, req.Password)
	if err != nil {
		respondServiceError(w, "Error signing in", err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// Refresh rotates a refresh token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		respondWithError(w, http.StatusBadRequest, "refresh_token is required", "", nil)
		return
	}

	pair, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		respondServiceError(w, "Error refreshing session", err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// SignOut invalidates a refresh token
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authService.SignOut(req.RefreshToken); err != nil {
		respondServiceError(w, "Error signing out", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the signed-in account
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, GetUserFromContext(r.Context()))
}
