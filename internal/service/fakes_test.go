package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"
	"time"

	"readquest/internal/audio"
	"readquest/internal/gamification"
	"readquest/internal/models"
	"readquest/internal/repository"
	"readquest/internal/storage"
)

// memStore is an in-memory stand-in for every repository the services use
type memStore struct {
	profiles    map[int64]*models.Profile
	days        map[int64]map[string]*models.StreakDay
	recordings  map[int64]*models.AudioRecord
	catalog     []models.Achievement
	earned      map[int64]map[int64]time.Time
	assignments map[int64]*models.ReadingAssignment
	links       map[[2]int64]bool
	codes       map[string]*models.LinkCode
	users       map[int64]*models.User
	sessions    map[string]*models.Session
	nextID      int64

	profileErr error
	grantErr   error
}

func newMemStore() *memStore {
	return &memStore{
		profiles:    make(map[int64]*models.Profile),
		days:        make(map[int64]map[string]*models.StreakDay),
		recordings:  make(map[int64]*models.AudioRecord),
		earned:      make(map[int64]map[int64]time.Time),
		assignments: make(map[int64]*models.ReadingAssignment),
		links:       make(map[[2]int64]bool),
		codes:       make(map[string]*models.LinkCode),
		users:       make(map[int64]*models.User),
		sessions:    make(map[string]*models.Session),
		catalog: []models.Achievement{
			{ID: 1, Code: "first_recording", RequirementType: models.RequirementTotalRecordings, RequirementValue: 1, PointsReward: 5, DiamondsReward: 1},
			{ID: 2, Code: "streak_3", RequirementType: models.RequirementStreak, RequirementValue: 3, PointsReward: 15, DiamondsReward: 2},
			{ID: 3, Code: "points_100", RequirementType: models.RequirementPoints, RequirementValue: 100, PointsReward: 10, DiamondsReward: 1},
			{ID: 4, Code: "perfect_week", RequirementType: models.RequirementPerfectWeek, RequirementValue: 1, PointsReward: 50, DiamondsReward: 5},
		},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) profile(userID int64) *models.Profile {
	p, ok := m.profiles[userID]
	if !ok {
		d := models.DefaultProfile(userID)
		p = &d
		m.profiles[userID] = p
	}
	return p
}

// ProfileStore

func (m *memStore) GetOrCreateProfile(userID int64) (*models.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	p := *m.profile(userID)
	return &p, nil
}

func (m *memStore) AddRewards(userID int64, points, diamonds int) (*models.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	p := m.profile(userID)
	p.Points += points
	p.Diamonds += diamonds
	p.Level = gamification.LevelFor(p.Points)
	out := *p
	return &out, nil
}

// StreakStore

func (m *memStore) RecordActivity(userID int64, day string, points int, at time.Time) (*repository.StreakUpdate, error) {
	p := m.profile(userID)
	if m.days[userID] == nil {
		m.days[userID] = make(map[string]*models.StreakDay)
	}
	update := &repository.StreakUpdate{}
	d, ok := m.days[userID][day]
	if ok {
		d.RecordingsCount++
		d.PointsEarned += points
	} else {
		d = &models.StreakDay{ID: m.id(), UserID: userID, Day: day, RecordingsCount: 1, PointsEarned: points, CreatedAt: at}
		m.days[userID][day] = d
		p.CurrentStreak, p.LongestStreak = gamification.AdvanceStreak(p.CurrentStreak, p.LongestStreak)
		last := at
		p.LastActivity = &last
		update.NewDay = true
	}
	update.Day = *d
	update.Profile = *p
	return update, nil
}

func (m *memStore) ListDays(userID int64, limit int) ([]models.StreakDay, error) {
	var days []models.StreakDay
	for _, d := range m.days[userID] {
		days = append(days, *d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day > days[j].Day })
	if len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}

// RecordingStore

func (m *memStore) CreateRecording(rec *models.AudioRecord) error {
	rec.ID = m.id()
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	stored := *rec
	m.recordings[rec.ID] = &stored
	return nil
}

func (m *memStore) GetRecording(id int64) (*models.AudioRecord, error) {
	rec, ok := m.recordings[id]
	if !ok {
		return nil, nil
	}
	out := *rec
	return &out, nil
}

func (m *memStore) ListRecordings(userID int64, limit, offset int) ([]models.AudioRecord, error) {
	var out []models.AudioRecord
	for _, rec := range m.recordings {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []models.AudioRecord{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountRecordings(userID int64) (int, error) {
	n := 0
	for _, rec := range m.recordings {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateDetails(id, userID int64, title string, description *string) error {
	rec, ok := m.recordings[id]
	if !ok || rec.UserID != userID {
		return repository.ErrNotFound
	}
	rec.Title = title
	rec.Description = description
	return nil
}

func (m *memStore) DeleteRecording(id, userID int64) error {
	rec, ok := m.recordings[id]
	if !ok || rec.UserID != userID {
		return repository.ErrNotFound
	}
	delete(m.recordings, id)
	return nil
}

func (m *memStore) ListStoragePaths(userID int64) ([]string, error) {
	var paths []string
	for _, rec := range m.recordings {
		if rec.UserID == userID {
			paths = append(paths, rec.StoragePath)
		}
	}
	return paths, nil
}

func (m *memStore) GetRecordingByAssignment(assignmentID int64) (*models.AudioRecord, error) {
	for _, rec := range m.recordings {
		if rec.AssignmentID != nil && *rec.AssignmentID == assignmentID {
			out := *rec
			return &out, nil
		}
	}
	return nil, nil
}

// AchievementStore

func (m *memStore) ListAchievements() ([]models.Achievement, error) {
	return m.catalog, nil
}

func (m *memStore) ListUnearned(userID int64) ([]models.Achievement, error) {
	var out []models.Achievement
	for _, a := range m.catalog {
		if _, ok := m.earned[userID][a.ID]; !ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListEarned(userID int64) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	for id, at := range m.earned[userID] {
		out = append(out, models.UserAchievement{UserID: userID, AchievementID: id, EarnedAt: at})
	}
	return out, nil
}

func (m *memStore) Grant(userID int64, achievement models.Achievement) (bool, error) {
	if m.grantErr != nil {
		return false, m.grantErr
	}
	if m.earned[userID] == nil {
		m.earned[userID] = make(map[int64]time.Time)
	}
	if _, ok := m.earned[userID][achievement.ID]; ok {
		return false, nil
	}
	m.earned[userID][achievement.ID] = time.Now()
	p := m.profile(userID)
	p.Points += achievement.PointsReward
	p.Diamonds += achievement.DiamondsReward
	p.Level = gamification.LevelFor(p.Points)
	return true, nil
}

// AssignmentStore

func (m *memStore) CreateAssignment(a *models.ReadingAssignment) error {
	a.ID = m.id()
	a.Status = models.AssignmentPending
	stored := *a
	m.assignments[a.ID] = &stored
	return nil
}

func (m *memStore) GetAssignment(id int64) (*models.ReadingAssignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	out := *a
	return &out, nil
}

func (m *memStore) listAssignments(match func(*models.ReadingAssignment) bool, status models.AssignmentStatus) []models.ReadingAssignment {
	out := []models.ReadingAssignment{}
	for _, a := range m.assignments {
		if match(a) && (status == "" || a.Status == status) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) ListForStudent(studentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error) {
	return m.listAssignments(func(a *models.ReadingAssignment) bool { return a.StudentID == studentID }, status), nil
}

func (m *memStore) ListForParent(parentID int64, status models.AssignmentStatus) ([]models.ReadingAssignment, error) {
	return m.listAssignments(func(a *models.ReadingAssignment) bool { return a.ParentID == parentID }, status), nil
}

func (m *memStore) CountByStatus(studentID int64) (map[models.AssignmentStatus]int, error) {
	counts := map[models.AssignmentStatus]int{
		models.AssignmentPending:   0,
		models.AssignmentCompleted: 0,
		models.AssignmentReviewed:  0,
	}
	for _, a := range m.assignments {
		if a.StudentID == studentID {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func (m *memStore) MarkCompleted(assignmentID, recordingID int64, at time.Time) error {
	a, ok := m.assignments[assignmentID]
	if !ok || a.Status != models.AssignmentPending {
		return repository.ErrStaleState
	}
	rec, ok := m.recordings[recordingID]
	if !ok {
		return repository.ErrNotFound
	}
	if rec.AssignmentID != nil {
		return repository.ErrAlreadyLinked
	}
	a.Status = models.AssignmentCompleted
	a.CompletedAt = &at
	id := assignmentID
	rec.AssignmentID = &id
	return nil
}

func (m *memStore) MarkReviewed(assignmentID int64, review models.Review, at time.Time) error {
	a, ok := m.assignments[assignmentID]
	if !ok || a.Status != models.AssignmentCompleted {
		return repository.ErrStaleState
	}
	var linked *models.AudioRecord
	for _, rec := range m.recordings {
		if rec.AssignmentID != nil && *rec.AssignmentID == assignmentID {
			linked = rec
		}
	}
	if linked == nil {
		return repository.ErrNotFound
	}
	a.Status = models.AssignmentReviewed
	a.ReviewedAt = &at
	rating := review.Rating
	linked.ParentRating = &rating
	linked.ParentFeedback = review.Feedback
	linked.ReadingQuality = review.ReadingQuality
	return nil
}

// FamilyStore

func (m *memStore) CreateLinkCode(code string, parentID int64, expiresAt time.Time) (*models.LinkCode, error) {
	if _, ok := m.codes[code]; ok {
		return nil, repository.ErrDuplicate
	}
	lc := &models.LinkCode{Code: code, ParentID: parentID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.codes[code] = lc
	return lc, nil
}

func (m *memStore) RedeemLinkCode(code string, studentID int64, now time.Time) (*models.LinkCode, error) {
	lc, ok := m.codes[code]
	if !ok || now.After(lc.ExpiresAt) {
		return nil, nil
	}
	m.links[[2]int64{lc.ParentID, studentID}] = true
	delete(m.codes, code)
	return lc, nil
}

func (m *memStore) IsLinked(parentID, studentID int64) (bool, error) {
	return m.links[[2]int64{parentID, studentID}], nil
}

func (m *memStore) ListChildren(parentID int64) ([]models.User, error) {
	out := []models.User{}
	for link := range m.links {
		if link[0] == parentID {
			if u, ok := m.users[link[1]]; ok {
				out = append(out, *u)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListParents(studentID int64) ([]models.User, error) {
	out := []models.User{}
	for link := range m.links {
		if link[1] == studentID {
			if u, ok := m.users[link[0]]; ok {
				out = append(out, *u)
			}
		}
	}
	return out, nil
}

func (m *memStore) Unlink(parentID, studentID int64) error {
	key := [2]int64{parentID, studentID}
	if !m.links[key] {
		return repository.ErrNotFound
	}
	delete(m.links, key)
	return nil
}

// UserStore

func (m *memStore) addUser(email, hash, name string, role models.Role) *models.User {
	u := &models.User{ID: m.id(), Email: email, PasswordHash: hash, Name: name, Role: role, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u
}

func (m *memStore) CreateUser(email, passwordHash, name string, role models.Role) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	out := *m.addUser(email, passwordHash, name, role)
	return &out, nil
}

func (m *memStore) CreateOAuthUser(email, name string, role models.Role, provider, subject string) (*models.User, error) {
	u := m.addUser(email, "", name, role)
	u.OAuthProvider = provider
	u.OAuthSubject = subject
	out := *u
	return &out, nil
}

func (m *memStore) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUserByID(id int64) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (m *memStore) GetUserByOAuth(provider, subject string) (*models.User, error) {
	for _, u := range m.users {
		if u.OAuthProvider == provider && u.OAuthSubject == subject {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memStore) LinkOAuthProvider(userID int64, provider, subject string) error {
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.OAuthProvider = provider
	u.OAuthSubject = subject
	return nil
}

func (m *memStore) CreateSession(sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	s := &models.Session{ID: sessionID, UserID: userID, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.sessions[sessionID] = s
	return s, nil
}

func (m *memStore) GetSession(sessionID string) (*models.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := *s
	return &out, nil
}

func (m *memStore) DeleteSession(sessionID string) error {
	delete(m.sessions, sessionID)
	return nil
}

func (m *memStore) DeleteExpiredSessions(now time.Time) (int64, error) {
	var n int64
	for id, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// memObjects is an in-memory object store
type memObjects struct {
	objects   map[string][]byte
	uploadErr error
	onDelete  func(path string)
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (o *memObjects) Upload(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	if o.uploadErr != nil {
		return o.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("short upload: %d of %d bytes", len(data), size)
	}
	o.objects[path] = data
	return nil
}

func (o *memObjects) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	for path, data := range o.objects {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			out = append(out, storage.ObjectInfo{Path: path, Size: int64(len(data))})
		}
	}
	return out, nil
}

func (o *memObjects) Delete(ctx context.Context, path string) error {
	if o.onDelete != nil {
		o.onDelete(path)
	}
	if _, ok := o.objects[path]; !ok {
		return storage.ErrNotFound
	}
	delete(o.objects, path)
	return nil
}

func (o *memObjects) SignedURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if _, ok := o.objects[path]; !ok {
		return "", storage.ErrNotFound
	}
	return "mem://" + path, nil
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) SendAssignmentCompletedEmail(ctx context.Context, toEmail, parentName, studentName, bookTitle string) error {
	f.sent = append(f.sent, toEmail+":"+bookTitle)
	return f.err
}

func (f *fakeNotifier) SendWelcomeEmail(ctx context.Context, toEmail, toName string, parent bool) error {
	f.sent = append(f.sent, "welcome:"+toEmail)
	return f.err
}

var errStoreDown = errors.New("store unavailable")

// testEnv wires every service onto one memStore
type testEnv struct {
	store        *memStore
	objects      *memObjects
	player       *audio.Player
	captures     *audio.CaptureManager
	notifier     *fakeNotifier
	progress     *ProgressService
	achievements *AchievementService
	assignments  *AssignmentService
	recordings   *RecordingService
	clock        time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    newMemStore(),
		objects:  newMemObjects(),
		player:   audio.NewPlayer(),
		captures: audio.NewCaptureManager(t.TempDir(), 0),
		notifier: &fakeNotifier{},
		clock:    time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	t.Cleanup(env.captures.Shutdown)

	s := env.store
	env.progress = NewProgressService(s, s, s, time.UTC)
	env.achievements = NewAchievementService(s, s, s, false)
	env.assignments = NewAssignmentService(s, s, s, s, env.progress, env.notifier)
	env.assignments.now = env.now
	env.recordings = NewRecordingService(s, s, env.objects, env.captures, env.player, env.progress, env.achievements, env.assignments, 15*time.Minute)
	env.recordings.now = env.now
	return env
}

func (e *testEnv) now() time.Time {
	return e.clock
}

func (e *testEnv) student(name string) *models.User {
	return e.store.addUser(name+"@example.com", "", name, models.RoleStudent)
}

func (e *testEnv) parentOf(name string, children ...*models.User) *models.User {
	p := e.store.addUser(name+"@example.com", "", name, models.RoleParent)
	for _, c := range children {
		e.store.links[[2]int64{p.ID, c.ID}] = true
	}
	return p
}
