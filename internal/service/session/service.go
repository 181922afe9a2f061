// Package session keeps per-conversation message history in memory. Growth
// is bounded: sessions idle past the TTL are swept, and when the session
// count exceeds the cap the least-recently-updated ones are evicted.
package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMaxSessions = 1000
	defaultIdleTTL     = 24 * time.Hour
)

type Service struct {
	sessions    map[string]*Session
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time
	mtx         sync.RWMutex
}

// GetOrCreate returns the session with the given id, minting a fresh id when
// none is supplied. An unknown id is not an error: a new empty session is
// created under it.
func (s *Service) GetOrCreate(ctx context.Context, id string) *Session {
	if len(strings.TrimSpace(id)) == 0 {
		id = uuid.New().String()
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	if session, ok := s.sessions[id]; ok {
		return session
	}

	now := s.now()
	session := &Session{
		Id:        id,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.sessions[id] = session
	s.evictLocked()

	return session
}

// Append records a message on the session, creating the session if needed.
func (s *Service) Append(ctx context.Context, id string, role string, content string) Message {
	session := s.GetOrCreate(ctx, id)

	s.mtx.Lock()
	defer s.mtx.Unlock()

	msg := Message{
		Id:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}

	session.Messages = append(session.Messages, msg)
	session.UpdatedAt = msg.Timestamp

	return msg
}

func (s *Service) Get(ctx context.Context, id string) (*Session, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// List returns all live sessions ordered by creation time.
func (s *Service) List(ctx context.Context) []Session {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	sessions := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, *session)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return sessions
}

func (s *Service) Delete(ctx context.Context, id string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.sessions, id)
}

func (s *Service) evictLocked() {
	now := s.now()

	for id, session := range s.sessions {
		if now.Sub(session.UpdatedAt) > s.idleTTL {
			delete(s.sessions, id)
		}
	}

	if len(s.sessions) <= s.maxSessions {
		return
	}

	stale := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		stale = append(stale, session)
	}
	sort.Slice(stale, func(i, j int) bool {
		return stale[i].UpdatedAt.Before(stale[j].UpdatedAt)
	})

	for _, session := range stale[:len(s.sessions)-s.maxSessions] {
		delete(s.sessions, session.Id)
	}
}

type ServiceOption func(*Service)

func WithMaxSessions(max int) ServiceOption {
	return func(s *Service) {
		s.maxSessions = max
	}
}

func WithIdleTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.idleTTL = ttl
	}
}

func WithNow(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

func New(opts ...ServiceOption) *Service {
	s := &Service{
		sessions:    map[string]*Session{},
		maxSessions: defaultMaxSessions,
		idleTTL:     defaultIdleTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
