package audio

import (
	"log"
	"sync"
	"time"
)

// Playback is a user's active playback session
type Playback struct {
	UserID    int64     `json:"-"`
	RecordID  int64     `json:"record_id"`
	URL       string    `json:"url"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Player keeps at most one playback session per user
type Player struct {
	mu       sync.Mutex
	sessions map[int64]*Playback
	now      func() time.Time

	// OnUnload runs for every session that is released
	OnUnload func(Playback)
}

// NewPlayer creates an empty playback registry
func NewPlayer() *Player {
	return &Player{
		sessions: make(map[int64]*Playback),
		now:      time.Now,
	}
}

// Play unloads any existing session for userID, then assigns the new one
func (p *Player) Play(userID, recordID int64, url string, expiresAt time.Time) Playback {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.sessions[userID]; ok {
		p.unload(existing)
	}

	session := &Playback{
		UserID:    userID,
		RecordID:  recordID,
		URL:       url,
		StartedAt: p.now(),
		ExpiresAt: expiresAt,
	}
	p.sessions[userID] = session
	return *session
}

// Current returns the user's active session, if any
func (p *Player) Current(userID int64) (Playback, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.sessions[userID]
	if !ok {
		return Playback{}, false
	}
	if !session.ExpiresAt.IsZero() && p.now().After(session.ExpiresAt) {
		p.unload(session)
		return Playback{}, false
	}
	return *session, true
}

// Stop unloads the user's session; it reports whether one existed
func (p *Player) Stop(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.sessions[userID]
	if !ok {
		return false
	}
	p.unload(session)
	return true
}

// StopRecord unloads every session playing recordID and returns how many
func (p *Player) StopRecord(recordID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	stopped := 0
	for _, session := range p.sessions {
		if session.RecordID == recordID {
			p.unload(session)
			stopped++
		}
	}
	return stopped
}

func (p *Player) unload(session *Playback) {
	delete(p.sessions, session.UserID)
	if p.OnUnload != nil {
		p.OnUnload(*session)
	}
	log.Printf("Unloaded playback of record %d for user %d", session.RecordID, session.UserID)
}
