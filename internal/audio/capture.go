// Package audio tracks in-progress recording captures and playback sessions.
package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// CaptureState is the lifecycle state of a recording capture
type CaptureState string

const (
	StateIdle      CaptureState = "idle"
	StateRecording CaptureState = "recording"
	StatePaused    CaptureState = "paused"
	StateStopped   CaptureState = "stopped"
	StateUploading CaptureState = "uploading"
	StateSaved     CaptureState = "saved"
	StateDiscarded CaptureState = "discarded"
)

var (
	ErrInvalidCaptureTransition = errors.New("invalid capture transition")
	ErrCaptureActive            = errors.New("a capture is already active")
	ErrNoCapture                = errors.New("no active capture")
	ErrEmptyCapture             = errors.New("captured file is empty")
	ErrCaptureTooLarge          = errors.New("capture exceeds the maximum recording size")
)

var captureTransitions = map[CaptureState][]CaptureState{
	StateIdle:      {StateRecording},
	StateRecording: {StatePaused, StateStopped, StateDiscarded},
	StatePaused:    {StateRecording, StateStopped, StateDiscarded},
	StateStopped:   {StateUploading, StateDiscarded},
	StateUploading: {StateSaved, StateStopped},
}

// CanTransition reports whether a capture may move from one state to another
func CanTransition(from, to CaptureState) bool {
	for _, next := range captureTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Capture is one user's in-progress recording, buffered to a temp file
type Capture struct {
	UserID    int64        `json:"-"`
	State     CaptureState `json:"state"`
	Extension string       `json:"extension"`
	StartedAt time.Time    `json:"started_at"`
	Size      int64        `json:"size"`

	file         *os.File
	recorded     time.Duration
	segmentStart time.Time
}

// Elapsed returns the recorded time, excluding pauses
func (c *Capture) Elapsed(now time.Time) time.Duration {
	if c.State == StateRecording {
		return c.recorded + now.Sub(c.segmentStart)
	}
	return c.recorded
}

// DurationSeconds rounds the recorded time to whole seconds
func (c *Capture) DurationSeconds(now time.Time) int {
	return int(c.Elapsed(now).Round(time.Second) / time.Second)
}

// CaptureView is the JSON snapshot of a capture
type CaptureView struct {
	State           CaptureState `json:"state"`
	Extension       string       `json:"extension"`
	StartedAt       time.Time    `json:"started_at"`
	Size            int64        `json:"size"`
	DurationSeconds int          `json:"duration_seconds"`
}

// Upload hands the stopped capture to the caller for upload
type Upload struct {
	Body            io.Reader
	Size            int64
	Extension       string
	DurationSeconds int
	CapturedAt      time.Time
}

// CaptureManager keeps at most one active capture per user
type CaptureManager struct {
	mu       sync.Mutex
	tempDir  string
	maxSize  int64
	captures map[int64]*Capture
	now      func() time.Time
}

// NewCaptureManager creates a manager that buffers audio under tempDir.
// A capture may grow to maxSize bytes in total; zero means no limit.
func NewCaptureManager(tempDir string, maxSize int64) *CaptureManager {
	return &CaptureManager{
		tempDir:  tempDir,
		maxSize:  maxSize,
		captures: make(map[int64]*Capture),
		now:      time.Now,
	}
}

func (m *CaptureManager) transition(c *Capture, to CaptureState) error {
	if !CanTransition(c.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidCaptureTransition, c.State, to)
	}
	now := m.now()
	switch {
	case c.State == StateRecording:
		c.recorded += now.Sub(c.segmentStart)
	case to == StateRecording:
		c.segmentStart = now
	}
	c.State = to
	return nil
}

func (m *CaptureManager) view(c *Capture) CaptureView {
	return CaptureView{
		State:           c.State,
		Extension:       c.Extension,
		StartedAt:       c.StartedAt,
		Size:            c.Size,
		DurationSeconds: c.DurationSeconds(m.now()),
	}
}

// Start begins a new capture for userID
func (m *CaptureManager) Start(userID int64, ext string) (CaptureView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.captures[userID]; exists {
		return CaptureView{}, ErrCaptureActive
	}
	if err := os.MkdirAll(m.tempDir, 0o755); err != nil {
		return CaptureView{}, fmt.Errorf("failed to create capture directory: %w", err)
	}
	f, err := os.CreateTemp(m.tempDir, fmt.Sprintf("capture-%d-*", userID))
	if err != nil {
		return CaptureView{}, fmt.Errorf("failed to create capture file: %w", err)
	}

	c := &Capture{UserID: userID, State: StateIdle, Extension: ext, StartedAt: m.now(), file: f}
	if err := m.transition(c, StateRecording); err != nil {
		f.Close()
		os.Remove(f.Name())
		return CaptureView{}, err
	}
	m.captures[userID] = c
	return m.view(c), nil
}

// Get returns the user's current capture
func (m *CaptureManager) Get(userID int64) (CaptureView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.captures[userID]
	if !ok {
		return CaptureView{State: StateIdle}, ErrNoCapture
	}
	return m.view(c), nil
}

// Append writes a chunk of audio to a recording capture
func (m *CaptureManager) Append(userID int64, chunk io.Reader) (CaptureView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.captures[userID]
	if !ok {
		return CaptureView{}, ErrNoCapture
	}
	if c.State != StateRecording {
		return CaptureView{}, fmt.Errorf("%w: cannot append while %s", ErrInvalidCaptureTransition, c.State)
	}

	src := chunk
	if m.maxSize > 0 {
		src = io.LimitReader(chunk, m.maxSize-c.Size+1)
	}
	n, err := io.Copy(c.file, src)
	if err == nil && m.maxSize > 0 && c.Size+n > m.maxSize {
		err = fmt.Errorf("%w: limit is %d bytes", ErrCaptureTooLarge, m.maxSize)
	} else if err != nil {
		err = fmt.Errorf("failed to write chunk: %w", err)
	}
	if err != nil {
		// Drop the partial chunk so the capture stays saveable
		if rerr := c.rewind(); rerr != nil {
			log.Printf("Failed to roll back capture of user %d: %v", userID, rerr)
		}
		return CaptureView{}, err
	}
	c.Size += n
	return m.view(c), nil
}

func (c *Capture) rewind() error {
	if err := c.file.Truncate(c.Size); err != nil {
		return err
	}
	_, err := c.file.Seek(c.Size, io.SeekStart)
	return err
}

func (m *CaptureManager) move(userID int64, to CaptureState) (CaptureView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.captures[userID]
	if !ok {
		return CaptureView{}, ErrNoCapture
	}
	if err := m.transition(c, to); err != nil {
		return CaptureView{}, err
	}
	return m.view(c), nil
}

// Pause pauses a recording capture
func (m *CaptureManager) Pause(userID int64) (CaptureView, error) {
	return m.move(userID, StatePaused)
}

// Resume continues a paused capture
func (m *CaptureManager) Resume(userID int64) (CaptureView, error) {
	return m.move(userID, StateRecording)
}

// Stop ends recording; the capture can then be saved or discarded
func (m *CaptureManager) Stop(userID int64) (CaptureView, error) {
	return m.move(userID, StateStopped)
}

// Discard drops the capture and its buffered audio, returning the user to idle
func (m *CaptureManager) Discard(userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.captures[userID]
	if !ok {
		return ErrNoCapture
	}
	if err := m.transition(c, StateDiscarded); err != nil {
		return err
	}
	m.release(c)
	return nil
}

// BeginUpload moves a stopped capture to uploading and returns its contents.
// An empty capture is rejected and stays stopped.
func (m *CaptureManager) BeginUpload(userID int64) (*Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.captures[userID]
	if !ok {
		return nil, ErrNoCapture
	}
	if !CanTransition(c.State, StateUploading) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidCaptureTransition, c.State, StateUploading)
	}
	if c.Size == 0 {
		return nil, ErrEmptyCapture
	}
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind capture: %w", err)
	}
	if err := m.transition(c, StateUploading); err != nil {
		return nil, err
	}

	return &Upload{
		Body:            c.file,
		Size:            c.Size,
		Extension:       c.Extension,
		DurationSeconds: c.DurationSeconds(m.now()),
		CapturedAt:      c.StartedAt,
	}, nil
}

// FinishUpload completes an upload. On success the capture is saved and
// released; on failure it returns to stopped so it can be retried or discarded.
func (m *CaptureManager) FinishUpload(userID int64, success bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.captures[userID]
	if !ok {
		return ErrNoCapture
	}
	if !success {
		return m.transition(c, StateStopped)
	}
	if err := m.transition(c, StateSaved); err != nil {
		return err
	}
	m.release(c)
	return nil
}

// release closes and removes the temp file; callers hold m.mu
func (m *CaptureManager) release(c *Capture) {
	name := c.file.Name()
	c.file.Close()
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove capture file %s: %v", name, err)
	}
	delete(m.captures, c.UserID)
}

// Shutdown discards every capture still held
func (m *CaptureManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.captures {
		m.release(c)
	}
}
