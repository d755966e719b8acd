package engine

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/goalkeeper/internal/client/cache"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote"
	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
)

// Subscriber holds one live change-feed subscription per collection and
// translates notifications into idempotent cache mirror operations. It is
// bound to a single authenticated user; the session tears it down on every
// auth transition so a stale subscription can never reintroduce another
// user's documents into the cache.
type Subscriber struct {
	mirror   *cache.Mirror
	pipeline *Pipeline
	log      logging.Logger
	cancels  []func()
}

// StartSubscriber opens the three collection watches. If any watch fails to
// open, the ones already started are cancelled and the error is returned.
func StartSubscriber(ctx context.Context, store remote.Store, mirror *cache.Mirror, pipeline *Pipeline, log logging.Logger) (*Subscriber, error) {
	s := &Subscriber{mirror: mirror, pipeline: pipeline, log: log}

	for _, collection := range []string{models.CollectionAccounts, models.CollectionGoals, models.CollectionDeposits} {
		collection := collection
		cancel, err := store.Watch(ctx, collection,
			func(ev remote.Event) { s.handle(ctx, collection, ev) },
			func(err error) {
				// no retry in the core: the subscription stays inactive
				s.log.Error(ctx, "change feed subscription failed", "collection", collection, "error", err)
			},
		)
		if err != nil {
			s.Stop()
			return nil, err
		}
		s.cancels = append(s.cancels, cancel)
	}
	return s, nil
}

// Stop cancels all watches. Safe to call more than once.
func (s *Subscriber) Stop() {
	for _, cancel := range s.cancels {
		cancel()
	}
	s.cancels = nil
}

func (s *Subscriber) handle(ctx context.Context, collection string, ev remote.Event) {
	s.log.Debug(ctx, "feed event", "collection", collection, "type", string(ev.Type), "id", ev.ID)

	switch ev.Type {
	case remote.ChangeAdded, remote.ChangeModified:
		if err := s.mirror.Upsert(ctx, collection, ev.Doc); err != nil {
			s.log.Error(ctx, "cache upsert failed", "collection", collection, "id", ev.ID, "error", err)
			return
		}
		if collection == models.CollectionDeposits {
			if goalID := depositGoalID(ev.Doc); goalID != "" {
				s.pipeline.SyncCompletion(ctx, goalID)
			}
		}

	case remote.ChangeRemoved:
		// the goal id must be captured from the cached row before removal:
		// a removed notification carries no document body
		var goalID string
		if collection == models.CollectionDeposits {
			if d, err := s.mirror.Deposit(ctx, ev.ID); err == nil {
				goalID = d.GoalID
			} else if !errors.Is(err, shared.ErrNotFound) {
				s.log.Error(ctx, "cache read failed", "collection", collection, "id", ev.ID, "error", err)
			}
		}
		if err := s.mirror.Remove(ctx, collection, ev.ID); err != nil {
			s.log.Error(ctx, "cache remove failed", "collection", collection, "id", ev.ID, "error", err)
			return
		}
		if goalID != "" {
			s.pipeline.SyncCompletion(ctx, goalID)
		}

	default:
		s.log.Warn(ctx, "unknown change type", "collection", collection, "type", string(ev.Type))
	}
}

func depositGoalID(doc json.RawMessage) string {
	var d struct {
		GoalID string `json:"goalId"`
	}
	if err := json.Unmarshal(doc, &d); err != nil {
		return ""
	}
	return d.GoalID
}
