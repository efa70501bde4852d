package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"solarclean/internal/dataprocessing"
	"solarclean/pkg/contracts/domain"
)

// Session sources
const (
	SourceUpload = "upload"
	SourceSheets = "sheets"
)

// Session owns one loaded dataset. The dataset is never mutated after load,
// so readers may use it without holding the store lock.
type Session struct {
	ID         string
	Source     string
	Dataset    *domain.Dataset
	Resolution dataprocessing.ColumnResolution
	Warnings   []domain.Warning
	CreatedAt  time.Time
	LastAccess time.Time
}

// SessionInfo is the public view of a session.
type SessionInfo struct {
	ID          string                          `json:"id"`
	PlantName   string                          `json:"plant_name"`
	SourceFile  string                          `json:"source_file"`
	Source      string                          `json:"source"`
	Columns     []string                        `json:"columns"`
	RecordCount int                             `json:"record_count"`
	DroppedRows int                             `json:"dropped_rows"`
	Resolution  dataprocessing.ColumnResolution `json:"resolution"`
	Warnings    []domain.Warning                `json:"warnings,omitempty"`
	CreatedAt   time.Time                       `json:"created_at"`
	ExpiresAt   time.Time                       `json:"expires_at"`
}

// SessionStore is an in-memory session registry with idle expiry and a
// size cap. When full, the least recently used session is evicted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
	logger   *slog.Logger
}

// NewSessionStore creates a store
func NewSessionStore(ttl time.Duration, max int, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	if max <= 0 {
		max = 1
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		logger:   logger.With(slog.String("component", "session_store")),
	}
}

// Create registers a loaded dataset under a new session ID.
func (s *SessionStore) Create(source string, res *dataprocessing.LoadResult) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	for len(s.sessions) >= s.max {
		s.evictOldestLocked()
	}

	session := &Session{
		ID:         uuid.New().String(),
		Source:     source,
		Dataset:    res.Dataset,
		Resolution: res.Resolution,
		Warnings:   res.Warnings,
		CreatedAt:  now,
		LastAccess: now,
	}
	s.sessions[session.ID] = session
	return session
}

// Get returns a live session and refreshes its idle timer.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := s.now()
	if s.expired(session, now) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	session.LastAccess = now
	return session, nil
}

// Delete removes a session
func (s *SessionStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included until swept.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

// Run sweeps expired sessions every interval until ctx is done.
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired sessions removed", slog.Int("count", n))
			}
		}
	}
}

// Info builds the public view of a session
func (s *SessionStore) Info(session *Session) *SessionInfo {
	s.mu.Lock()
	lastAccess := session.LastAccess
	s.mu.Unlock()

	ds := session.Dataset
	return &SessionInfo{
		ID:          session.ID,
		PlantName:   ds.PlantName,
		SourceFile:  ds.SourceFile,
		Source:      session.Source,
		Columns:     ds.Columns,
		RecordCount: len(ds.Records),
		DroppedRows: ds.DroppedRows,
		Resolution:  session.Resolution,
		Warnings:    session.Warnings,
		CreatedAt:   session.CreatedAt,
		ExpiresAt:   lastAccess.Add(s.ttl),
	}
}

func (s *SessionStore) expired(session *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(session.LastAccess) > s.ttl
}

func (s *SessionStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *SessionStore) evictOldestLocked() {
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.sessions[ids[i]].LastAccess.Before(s.sessions[ids[j]].LastAccess)
	})
	if len(ids) == 0 {
		return
	}
	s.logger.Info("session evicted", slog.String("session_id", ids[0]))
	delete(s.sessions, ids[0])
}
