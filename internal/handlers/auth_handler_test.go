package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"readquest/internal/models"
	"readquest/internal/security"
	"readquest/internal/service"
)

func TestRequireAuth(t *testing.T) {
	srv := newTestServer(t)
	pair := srv.signUp("matilda@example.com", "Matilda", models.RoleStudent)

	otherIssuer := security.NewTokenIssuer("another-secret", time.Minute)
	forged, _, err := otherIssuer.Issue(pair.User.ID, string(models.RoleStudent))
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong signing key", "Bearer " + forged, http.StatusUnauthorized},
		{"valid token", "Bearer " + pair.AccessToken, http.StatusOK},
		{"lowercase scheme", "bearer " + pair.AccessToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			srv.mux.ServeHTTP(rec, req)
			expectStatus(t, rec, tt.want)
		})
	}
}

func TestRoleGuards(t *testing.T) {
	srv := newTestServer(t)
	student := srv.signUp("kid@example.com", "Kid Reader", models.RoleStudent)
	parent := srv.signUp("pat@example.com", "Pat Parent", models.RoleParent)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"student cannot create link codes", http.MethodPost, "/api/parent/link-code", student.AccessToken, http.StatusForbidden},
		{"student cannot see dashboard", http.MethodGet, "/api/parent/dashboard", student.AccessToken, http.StatusForbidden},
		{"parent cannot capture", http.MethodPost, "/api/capture/start", parent.AccessToken, http.StatusForbidden},
		{"parent cannot upload", http.MethodPost, "/api/recordings", parent.AccessToken, http.StatusForbidden},
		{"parent reads own progress", http.MethodGet, "/api/progress", parent.AccessToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expectStatus(t, srv.do(tt.method, tt.path, tt.token, nil), tt.want)
		})
	}
}

func TestRateLimit(t *testing.T) {
	limiter := security.NewRateLimiter(1, time.Minute)
	defer limiter.Close()
	m := NewMiddleware(nil, nil, limiter, false)

	handler := m.RateLimit(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := httptest.NewRecorder()
	handler(first, httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil))
	expectStatus(t, first, http.StatusOK)

	second := httptest.NewRecorder()
	handler(second, httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil))
	expectStatus(t, second, http.StatusTooManyRequests)
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestSignUpSignInFlow(t *testing.T) {
	srv := newTestServer(t)
	pair := srv.signUp("Reader@Example.com", "Reader", "")

	if pair.User.Role != models.RoleStudent {
		t.Errorf("role = %q, want student by default", pair.User.Role)
	}
	if pair.User.Email != "reader@example.com" {
		t.Errorf("email = %q, want normalized", pair.User.Email)
	}
	if pair.TokenType != "Bearer" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("incomplete token pair: %+v", pair)
	}

	t.Run("duplicate email", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signup", "", signUpRequest{
			Email: "reader@example.com", Password: "password123", Name: "Again",
		})
		expectStatus(t, rec, http.StatusConflict)
	})

	t.Run("invalid signup reports the field", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signup", "", signUpRequest{
			Email: "short@example.com", Password: "abc", Name: "Shorty",
		})
		expectStatus(t, rec, http.StatusBadRequest)
		var body errorBody
		decodeBody(t, rec, &body)
		if body.Field != "password" {
			t.Errorf("field = %q, want password", body.Field)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signin", "", signInRequest{Email: "reader@example.com", Password: "nope-nope"})
		expectStatus(t, rec, http.StatusUnauthorized)
	})

	var signedIn service.TokenPair
	t.Run("sign in", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/signin", "", signInRequest{Email: "reader@example.com", Password: "password123"})
		expectStatus(t, rec, http.StatusOK)
		decodeBody(t, rec, &signedIn)
	})

	t.Run("refresh rotates the token", func(t *testing.T) {
		rec := srv.do(http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: signedIn.RefreshToken})
		expectStatus(t, rec, http.StatusOK)
		var rotated service.TokenPair
		decodeBody(t, rec, &rotated)
		if rotated.RefreshToken == signedIn.RefreshToken {
			t.Error("refresh token was not rotated")
		}

		again := srv.do(http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: signedIn.RefreshToken})
		expectStatus(t, again, http.StatusUnauthorized)

		expectStatus(t, srv.do(http.MethodPost, "/api/auth/signout", "", refreshRequest{RefreshToken: rotated.RefreshToken}), http.StatusNoContent)
		expectStatus(t, srv.do(http.MethodPost, "/api/auth/refresh", "", refreshRequest{RefreshToken: rotated.RefreshToken}), http.StatusUnauthorized)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		expectStatus(t, srv.do(http.MethodPost, "/api/auth/refresh", "", refreshRequest{}), http.StatusBadRequest)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		expectStatus(t, srv.do(http.MethodPost, "/api/auth/signin", "", []byte("{")), http.StatusBadRequest)
	})
}

func TestOAuthStateRoundTrip(t *testing.T) {
	h := &AuthHandler{stateSigner: security.NewSigner(testSecret)}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	state := h.newOAuthState(models.RoleParent, now)

	tests := []struct {
		name    string
		state   string
		now     time.Time
		want    models.Role
		wantErr bool
	}{
		{"valid", state, now.Add(time.Minute), models.RoleParent, false},
		{"expired", state, now.Add(oauthStateTTL + time.Minute), "", true},
		{"role swapped", strings.Replace(state, ".parent.", ".student.", 1), now, "", true},
		{"truncated", state[:len(state)-4], now, "", true},
		{"empty", "", now, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.parseOAuthState(tt.state, tt.now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseOAuthState() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("role = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "provider-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "/userinfo":
			if r.Header.Get("Authorization") != "Bearer provider-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{
				"id": "g-123", "email": "oauth.parent@example.com", "name": "OAuth Parent",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	srv.auth.oauthProviders["google"] = OAuthProvider{
		Name:  "google",
		Label: "Google",
		Config: &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint: oauth2.Endpoint{
				AuthURL:   provider.URL + "/auth",
				TokenURL:  provider.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		UserInfoURL: provider.URL + "/userinfo",
	}

	t.Run("unknown provider", func(t *testing.T) {
		expectStatus(t, srv.do(http.MethodGet, "/auth/myspace/start", "", nil), http.StatusBadRequest)
	})

	start := srv.do(http.MethodGet, "/auth/google/start?role=parent", "", nil)
	expectStatus(t, start, http.StatusFound)
	location, err := url.Parse(start.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect: %v", err)
	}
	if got := location.Query().Get("redirect_uri"); got != "http://readquest.test/auth/google/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
	state := location.Query().Get("state")

	t.Run("forged state", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/auth/google/callback?code=abc&state=forged", "", nil)
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("callback signs in with requested role", func(t *testing.T) {
		rec := srv.do(http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), "", nil)
		expectStatus(t, rec, http.StatusOK)
		var pair service.TokenPair
		decodeBody(t, rec, &pair)
		if pair.User.Role != models.RoleParent || pair.User.Email != "oauth.parent@example.com" {
			t.Errorf("user = %+v", pair.User)
		}
		if pair.User.OAuthProvider != "google" {
			t.Errorf("oauth provider = %q, want google", pair.User.OAuthProvider)
		}
	})
}
