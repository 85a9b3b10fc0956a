package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seqworks/funcenrich/internal/deseq"
	"github.com/seqworks/funcenrich/internal/pipeline"
)

// Session holds one uploaded table and, after a run, its results.
// Sessions live in memory only and are discarded on shutdown. The
// upload fields are immutable after creation; run state is guarded by
// the session mutex since concurrent requests can share a session.
type Session struct {
	ID        string
	CreatedAt time.Time
	Filename  string
	Table     *deseq.Table
	COGUpload map[string][]string // optional user-supplied COG annotation

	mu        sync.Mutex
	params    pipeline.Params
	results   *pipeline.Results
	lastRunAt time.Time
}

// setResults records a completed analysis run.
func (s *Session) setResults(params pipeline.Params, results *pipeline.Results) {
	s.mu.Lock()
	s.params = params
	s.results = results
	s.lastRunAt = time.Now()
	s.mu.Unlock()
}

// run returns the latest run output, nil before the first run. A
// Results value is never mutated once stored, so callers may read the
// snapshot without holding the lock.
func (s *Session) run() (*pipeline.Results, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results, s.lastRunAt
}

// sessionStore is a mutex-guarded in-memory session map. Its lock
// covers map membership only; per-session run state has its own lock.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*Session)}
}

func (s *sessionStore) create(filename string, table *deseq.Table, cogUpload map[string][]string) *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		Filename:  filename,
		Table:     table,
		COGUpload: cogUpload,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *sessionStore) get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
