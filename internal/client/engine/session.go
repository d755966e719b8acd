package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/cache"
	"github.com/dmitrijs2005/goalkeeper/internal/client/derive"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote"
	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

const lastUserMetaKey = "last_user"

// StoreFactory builds a remote store scoped to the signed-in user. A fresh
// store is constructed on every sign-in so no handle outlives its session.
type StoreFactory func(userID string) remote.Store

// MirrorFactory opens the local cache for a session.
type MirrorFactory func(ctx context.Context) (*cache.Mirror, error)

// Session ties the lifetime of the mirror, the write pipeline and the change
// feed subscription to the identity of the signed-in user. OnAuthChange is
// the single entry point: the auth layer calls it with the current user id
// (empty on sign-out) and the session starts or tears down accordingly.
type Session struct {
	log       logging.Logger
	newStore  StoreFactory
	newMirror MirrorFactory

	mu       sync.Mutex
	userID   string
	mirror   *cache.Mirror
	pipeline *Pipeline
	sub      *Subscriber
	cancel   context.CancelFunc
}

func NewSession(newStore StoreFactory, newMirror MirrorFactory, log logging.Logger) *Session {
	return &Session{log: log, newStore: newStore, newMirror: newMirror}
}

// OnAuthChange reacts to an identity transition. Safe to call repeatedly
// with the same user id.
func (s *Session) OnAuthChange(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID == s.userID {
		return nil
	}
	s.teardownLocked()
	if userID == "" {
		return nil
	}
	if err := s.startLocked(userID); err != nil {
		s.teardownLocked()
		return err
	}
	return nil
}

func (s *Session) startLocked(userID string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	mirror, err := s.newMirror(ctx)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	s.mirror = mirror

	// cached rows belong to whoever signed in last; a different user
	// must never see them
	last, err := mirror.GetMeta(ctx, lastUserMetaKey)
	if err != nil {
		return err
	}
	if last != nil && string(last) != userID {
		s.log.Info(ctx, "user changed, purging cache", "user", userID)
		if err := mirror.Purge(ctx); err != nil {
			return err
		}
	}
	if err := mirror.SetMeta(ctx, lastUserMetaKey, []byte(userID)); err != nil {
		return err
	}

	store := s.newStore(userID)

	gate := NewMigrationGate(store, mirror, s.log)
	if err := gate.Run(ctx, userID); err != nil {
		return err
	}

	s.pipeline = NewPipeline(ctx, store, mirror, s.log)

	sub, err := StartSubscriber(ctx, store, mirror, s.pipeline, s.log)
	if err != nil {
		return fmt.Errorf("starting subscription: %w", err)
	}
	s.sub = sub
	s.userID = userID
	s.log.Info(ctx, "session started", "user", userID)
	return nil
}

func (s *Session) teardownLocked() {
	if s.sub != nil {
		s.sub.Stop()
		s.sub = nil
	}
	if s.pipeline != nil {
		s.pipeline.Close()
		s.pipeline = nil
	}
	if s.mirror != nil {
		if err := s.mirror.Close(); err != nil {
			s.log.Warn(context.Background(), "closing cache", "error", err)
		}
		s.mirror = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.userID = ""
}

// Pipeline returns the write pipeline of the active session.
func (s *Session) Pipeline() (*Pipeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipeline == nil {
		return nil, shared.ErrNotSignedIn
	}
	return s.pipeline, nil
}

// Mirror returns the local cache of the active session.
func (s *Session) Mirror() (*cache.Mirror, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mirror == nil {
		return nil, shared.ErrNotSignedIn
	}
	return s.mirror, nil
}

// UserID returns the id of the signed-in user, or "" when signed out.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Dashboard computes the full view model from the current cache contents.
func (s *Session) Dashboard(ctx context.Context) (derive.Dashboard, error) {
	mirror, err := s.Mirror()
	if err != nil {
		return derive.Dashboard{}, err
	}
	goals, err := mirror.Goals(ctx)
	if err != nil {
		return derive.Dashboard{}, err
	}
	deposits, err := mirror.Deposits(ctx)
	if err != nil {
		return derive.Dashboard{}, err
	}
	accounts, err := mirror.Accounts(ctx)
	if err != nil {
		return derive.Dashboard{}, err
	}
	return derive.BuildDashboard(goals, deposits, accounts, time.Now()), nil
}
