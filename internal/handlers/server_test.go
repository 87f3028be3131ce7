package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"readquest/internal/audio"
	"readquest/internal/database"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/security"
	"readquest/internal/service"
	"readquest/internal/storage"
)

const testSecret = "test-secret"

// testServer wires real repositories on a temporary SQLite database behind
// the same routes the server registers
type testServer struct {
	t        *testing.T
	mux      *http.ServeMux
	db       *database.DB
	captures *audio.CaptureManager
	auth     *AuthHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dir := t.TempDir()
	db, err := database.Initialize(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if err := db.SeedAchievements(); err != nil {
		t.Fatalf("Failed to seed achievements: %v", err)
	}

	signer := security.NewSigner(testSecret)
	tokens := security.NewTokenIssuer(testSecret, 15*time.Minute)
	local, err := storage.NewLocalStore(filepath.Join(dir, "audio"), "http://readquest.test", signer)
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}
	emailService, err := service.NewEmailService("", "", "", "", false)
	if err != nil {
		t.Fatalf("Failed to create email service: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)

	captures := audio.NewCaptureManager(filepath.Join(dir, "captures"), 1<<20)
	t.Cleanup(captures.Shutdown)

	authService := service.NewAuthService(userRepo, tokens, time.Hour, emailService)
	familyService := service.NewFamilyService(familyRepo)
	progressService := service.NewProgressService(profileRepo, streakRepo, recordingRepo, time.UTC)
	achievementService := service.NewAchievementService(achievementRepo, profileRepo, recordingRepo, false)
	assignmentService := service.NewAssignmentService(assignmentRepo, recordingRepo, familyRepo, userRepo, progressService, emailService)
	recordingService := service.NewRecordingService(
		recordingRepo, familyRepo, local, captures, audio.NewPlayer(),
		progressService, achievementService, assignmentService, time.Hour,
	)
	dashboardService := service.NewDashboardService(familyRepo, recordingRepo, assignmentRepo, progressService)

	m := NewMiddleware(authService, tokens, nil, false)
	authHandler := NewAuthHandler(authService, map[string]OAuthProvider{}, "http://readquest.test", signer)
	progressHandler := NewProgressHandler(progressService, achievementService)
	captureHandler := NewCaptureHandler(captures, recordingService, 1<<20)
	recordingHandler := NewRecordingHandler(recordingService, 1<<20)
	assignmentHandler := NewAssignmentHandler(assignmentService)
	parentHandler := NewParentHandler(familyService, dashboardService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /media/{path...}", NewMediaHandler(local).Serve)
	mux.HandleFunc("POST /api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("POST /api/auth/signin", authHandler.SignIn)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/signout", authHandler.SignOut)
	mux.HandleFunc("GET /auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /auth/{provider}/callback", authHandler.OAuthCallback)
	mux.HandleFunc("GET /api/me", m.RequireAuth(authHandler.Me))
	mux.HandleFunc("GET /api/progress", m.RequireAuth(progressHandler.Progress))
	mux.HandleFunc("GET /api/streak", m.RequireAuth(progressHandler.StreakDays))
	mux.HandleFunc("GET /api/achievements", m.RequireAuth(progressHandler.Achievements))
	mux.HandleFunc("GET /api/capture", m.RequireStudent(captureHandler.Current))
	mux.HandleFunc("POST /api/capture/start", m.RequireStudent(captureHandler.Start))
	mux.HandleFunc("POST /api/capture/chunk", m.RequireStudent(captureHandler.Chunk))
	mux.HandleFunc("POST /api/capture/pause", m.RequireStudent(captureHandler.Pause))
	mux.HandleFunc("POST /api/capture/resume", m.RequireStudent(captureHandler.Resume))
	mux.HandleFunc("POST /api/capture/stop", m.RequireStudent(captureHandler.Stop))
	mux.HandleFunc("POST /api/capture/discard", m.RequireStudent(captureHandler.Discard))
	mux.HandleFunc("POST /api/capture/save", m.RequireStudent(captureHandler.Save))
	mux.HandleFunc("POST /api/recordings", m.RequireStudent(recordingHandler.Upload))
	mux.HandleFunc("GET /api/recordings", m.RequireAuth(recordingHandler.List))
	mux.HandleFunc("GET /api/recordings/{id}", m.RequireAuth(recordingHandler.Get))
	mux.HandleFunc("PATCH /api/recordings/{id}", m.RequireStudent(recordingHandler.Update))
	mux.HandleFunc("DELETE /api/recordings/{id}", m.RequireStudent(recordingHandler.Delete))
	mux.HandleFunc("POST /api/recordings/{id}/play", m.RequireAuth(recordingHandler.Play))
	mux.HandleFunc("GET /api/playback", m.RequireAuth(recordingHandler.CurrentPlayback))
	mux.HandleFunc("POST /api/playback/stop", m.RequireAuth(recordingHandler.StopPlayback))
	mux.HandleFunc("POST /api/assignments", m.RequireParent(assignmentHandler.Create))
	mux.HandleFunc("GET /api/assignments", m.RequireAuth(assignmentHandler.List))
	mux.HandleFunc("POST /api/assignments/{id}/complete", m.RequireStudent(assignmentHandler.Complete))
	mux.HandleFunc("POST /api/assignments/{id}/review", m.RequireParent(assignmentHandler.Review))
	mux.HandleFunc("GET /api/assignments/{id}/recording", m.RequireAuth(assignmentHandler.Recording))
	mux.HandleFunc("POST /api/parent/link-code", m.RequireParent(parentHandler.CreateLinkCode))
	mux.HandleFunc("GET /api/parent/children", m.RequireParent(parentHandler.Children))
	mux.HandleFunc("DELETE /api/parent/children/{id}", m.RequireParent(parentHandler.Unlink))
	mux.HandleFunc("GET /api/parent/dashboard", m.RequireParent(parentHandler.Dashboard))
	mux.HandleFunc("GET /api/parent/dashboard/report.xlsx", m.RequireParent(parentHandler.Report))
	mux.HandleFunc("POST /api/student/link", m.RequireStudent(parentHandler.Link))
	mux.HandleFunc("GET /api/student/parents", m.RequireStudent(parentHandler.Parents))

	return &testServer{t: t, mux: mux, db: db, captures: captures, auth: authHandler}
}

// do sends a request with an optional JSON body and bearer token
func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.([]byte); ok {
			reader = bytes.NewReader(raw)
		} else {
			encoded, err := json.Marshal(body)
			if err != nil {
				s.t.Fatalf("failed to encode body: %v", err)
			}
			reader = bytes.NewReader(encoded)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// upload posts a multipart recording as the given student
func (s *testServer) upload(token, filename, title string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", filename)
	if err != nil {
		s.t.Fatalf("CreateFormFile() error = %v", err)
	}
	part.Write(content)
	writer.WriteField("title", title)
	for key, value := range fields {
		writer.WriteField(key, value)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/recordings", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

// signUp creates an account and returns its token pair
func (s *testServer) signUp(email, name string, role models.Role) service.TokenPair {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/signup", "", signUpRequest{
		Email: email, Password: "password123", Name: name, Role: role,
	})
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("signup %s: status = %d, body = %s", email, rec.Code, rec.Body.String())
	}
	var pair service.TokenPair
	decodeBody(s.t, rec, &pair)
	return pair
}

// link joins a student to a parent through a fresh link code
func (s *testServer) link(parentToken, studentToken string) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/parent/link-code", parentToken, nil)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("link-code: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var code models.LinkCode
	decodeBody(s.t, rec, &code)

	rec = s.do(http.MethodPost, "/api/student/link", studentToken, linkRequest{Code: code.Code})
	if rec.Code != http.StatusOK {
		s.t.Fatalf("link: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
