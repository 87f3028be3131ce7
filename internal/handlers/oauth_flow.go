package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"readquest/internal/models"
	"readquest/internal/security"
)

const oauthStateTTL = 10 * time.Minute

var errInvalidOAuthState = errors.New("invalid OAuth state")

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

// newOAuthState returns "<nonce>.<role>.<expires>.<sig>" so the callback can
// be verified without server-side storage
func (h *AuthHandler) newOAuthState(role models.Role, now time.Time) string {
	nonce := strings.ReplaceAll(security.GenerateSessionID(), "-", "")
	expires := now.Add(oauthStateTTL).Truncate(time.Second)
	value := nonce + "." + string(role)
	return fmt.Sprintf("%s.%d.%s", value, expires.Unix(), h.stateSigner.Sign(value, expires))
}

// parseOAuthState verifies state and returns the role requested at start
func (h *AuthHandler) parseOAuthState(state string, now time.Time) (models.Role, error) {
	parts := strings.Split(state, ".")
	if len(parts) != 4 {
		return "", errInvalidOAuthState
	}
	unix, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", errInvalidOAuthState
	}
	value := parts[0] + "." + parts[1]
	if err := h.stateSigner.Verify(value, time.Unix(unix, 0), parts[3], now); err != nil {
		return "", errInvalidOAuthState
	}
	return models.Role(parts[1]), nil
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	role := models.Role(r.URL.Query().Get("role"))
	if !role.Valid() {
		role = models.RoleStudent
	}

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}

	authURL := config.AuthCodeURL(h.newOAuthState(role, time.Now()), options...)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// OAuthCallback handles the OAuth provider callback and returns a token pair
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusBadRequest, "OAuth provider not configured", "", nil)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondWithError(w, http.StatusBadRequest, "Missing authorization code", "", nil)
		return
	}
	role, err := h.parseOAuthState(r.URL.Query().Get("state"), time.Now())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Failed to exchange OAuth code", "OAuth exchange failed", err)
		return
	}

	userInfo, err := fetchUserInfo(ctx, provider, token)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), "", nil)
		return
	}

	pair, err := h.authService.OAuthLogin(r.Context(), providerKey, userInfo.Subject, userInfo.Email, userInfo.Name, role)
	if err != nil {
		respondServiceError(w, "Error completing OAuth login", err)
		return
	}
	respondJSON(w, http.StatusOK, pair)
}

// fetchUserInfo reads the id, email and name from a userinfo endpoint
func fetchUserInfo(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch %s user info", provider.Label)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse %s user info", provider.Label)
	}
	if payload.ID == "" || payload.Email == "" {
		return oauthUserInfo{}, fmt.Errorf("%s account has no email", provider.Label)
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}
