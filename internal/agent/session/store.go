// Package session keeps one conversational agent per identity. The store is
// created by the caller and handed to every surface that serves turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/people-agent/server/internal/agent/model"
	"github.com/people-agent/server/internal/agent/people"
	errx "github.com/people-agent/server/internal/core/error"
	logx "github.com/people-agent/server/pkg/logger"
)

// Factory starts a new agent for a resolved identity.
type Factory func(ctx context.Context, identity string) (*people.Agent, error)

type entry struct {
	agent    *people.Agent
	lastUsed time.Time
}

// Store maps identities to live agents. Safe for concurrent use.
type Store struct {
	factory Factory
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
	starting singleflight.Group
}

// NewStore creates an empty store. A zero IdleTTL disables idle eviction.
func NewStore(factory Factory, cfg model.SessionConfig, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		factory:  factory,
		idleTTL:  cfg.IdleTTL,
		now:      now,
		sessions: make(map[string]*entry),
	}
}

func key(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

func notFound(identity string) error {
	return errx.New(fmt.Errorf("%w: %q", errx.ErrSessionNotFound, identity), http.StatusNotFound, "session not found")
}

// GetOrCreate returns the live agent for identity, starting one if needed.
// Concurrent first requests for the same identity share a single start.
func (s *Store) GetOrCreate(ctx context.Context, identity string) (*people.Agent, error) {
	k := key(identity)
	if k == "" {
		return nil, errx.New(errors.New("empty identity"), http.StatusBadRequest, "identity must not be empty")
	}
	if a, ok := s.Get(identity); ok {
		return a, nil
	}

	v, err, _ := s.starting.Do(k, func() (any, error) {
		if a, ok := s.Get(identity); ok {
			return a, nil
		}
		a, err := s.factory(ctx, identity)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.sessions[k] = &entry{agent: a, lastUsed: s.now()}
		s.mu.Unlock()
		logx.Info().Str("identity", identity).Msg("session created")
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*people.Agent), nil
}

// Get returns the live agent for identity and marks it used.
func (s *Store) Get(identity string) (*people.Agent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[key(identity)]
	if !ok {
		return nil, false
	}
	e.lastUsed = s.now()
	return e.agent, true
}

// Lookup is Get with a not-found error for surfaces.
func (s *Store) Lookup(identity string) (*people.Agent, error) {
	if a, ok := s.Get(identity); ok {
		return a, nil
	}
	return nil, notFound(identity)
}

// End is the "exit" command: the agent's memory is cleared and the session
// removed.
func (s *Store) End(ctx context.Context, identity string) error {
	s.mu.Lock()
	e, ok := s.sessions[key(identity)]
	delete(s.sessions, key(identity))
	s.mu.Unlock()
	if !ok {
		return notFound(identity)
	}
	if err := e.agent.Clear(ctx); err != nil {
		return err
	}
	logx.Info().Str("identity", identity).Msg("session ended")
	return nil
}

// Switch ends the session of from, if any, and returns the agent for to.
func (s *Store) Switch(ctx context.Context, from, to string) (*people.Agent, error) {
	if from != "" && key(from) != key(to) {
		if err := s.End(ctx, from); err != nil && !errors.Is(err, errx.ErrSessionNotFound) {
			return nil, err
		}
	}
	return s.GetOrCreate(ctx, to)
}

// Sweep ends every session idle for at least the idle TTL and returns how
// many were evicted.
func (s *Store) Sweep(ctx context.Context) int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	var idle []*entry
	for k, e := range s.sessions {
		if now.Sub(e.lastUsed) >= s.idleTTL {
			idle = append(idle, e)
			delete(s.sessions, k)
		}
	}
	s.mu.Unlock()

	for _, e := range idle {
		if err := e.agent.Clear(ctx); err != nil {
			logx.Warn().Err(err).Str("identity", e.agent.Identity()).Msg("failed to clear idle session")
			continue
		}
		logx.Info().Str("identity", e.agent.Identity()).Msg("idle session evicted")
	}
	return len(idle)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || s.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		logx.Info().Dur("interval", interval).Dur("idle_ttl", s.idleTTL).Msg("session sweeper started")
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				logx.Info().Err(ctx.Err()).Msg("session sweeper shutting down")
				return
			}
		}
	}()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
