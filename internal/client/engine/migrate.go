package engine

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dmitrijs2005/goalkeeper/internal/client/cache"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote"
	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/google/uuid"
)

const migratedMetaPrefix = "migrated_"

// MigrationGate uploads pre-existing local-only records to the remote store,
// at most once per user, and only into an empty remote namespace. It runs
// before the first subscription is established, so nothing it writes can
// race the change feed.
type MigrationGate struct {
	remote remote.Store
	mirror *cache.Mirror
	log    logging.Logger

	running atomic.Bool
}

func NewMigrationGate(store remote.Store, mirror *cache.Mirror, log logging.Logger) *MigrationGate {
	return &MigrationGate{remote: store, mirror: mirror, log: log}
}

// Run performs the gate check and, when warranted, the upload. The per-user
// flag is persisted only after the outcome is settled, so a failed probe or
// upload is retried on the next sign-in. A second Run while one is still in
// flight is refused rather than queued.
func (g *MigrationGate) Run(ctx context.Context, userID string) error {
	if !g.running.CompareAndSwap(false, true) {
		return shared.ErrMigrationInProgress
	}
	defer g.running.Store(false)

	key := migratedMetaPrefix + userID

	done, err := g.mirror.GetMeta(ctx, key)
	if err != nil {
		return err
	}
	if done != nil {
		return nil
	}

	empty, err := g.remote.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("migration probe failed: %w", err)
	}
	if !empty {
		// remote store is the source of truth; local rows will be
		// overwritten by the change feed
		return g.mirror.SetMeta(ctx, key, []byte("true"))
	}

	if err := g.upload(ctx); err != nil {
		return fmt.Errorf("migration upload failed: %w", err)
	}
	return g.mirror.SetMeta(ctx, key, []byte("true"))
}

// upload pushes accounts, then goals, then deposits, minting fresh remote
// ids and rewriting the foreign keys through id maps so the relationships
// survive the move.
func (g *MigrationGate) upload(ctx context.Context) error {
	accounts, err := g.mirror.Accounts(ctx)
	if err != nil {
		return err
	}
	goals, err := g.mirror.Goals(ctx)
	if err != nil {
		return err
	}
	deposits, err := g.mirror.Deposits(ctx)
	if err != nil {
		return err
	}

	accountIDs := make(map[string]string, len(accounts))
	for _, a := range accounts {
		oldID := a.ID
		a.ID = uuid.NewString()
		accountIDs[oldID] = a.ID
		if err := g.remote.Create(ctx, models.CollectionAccounts, a.ID, a); err != nil {
			return err
		}
	}

	goalIDs := make(map[string]string, len(goals))
	for _, goal := range goals {
		oldID := goal.ID
		goal.ID = uuid.NewString()
		goalIDs[oldID] = goal.ID
		if mapped, ok := accountIDs[goal.AccountID]; ok {
			goal.AccountID = mapped
		}
		if err := g.remote.Create(ctx, models.CollectionGoals, goal.ID, goal); err != nil {
			return err
		}
	}

	for _, d := range deposits {
		d.ID = uuid.NewString()
		if mapped, ok := goalIDs[d.GoalID]; ok {
			d.GoalID = mapped
		}
		if err := g.remote.Create(ctx, models.CollectionDeposits, d.ID, d); err != nil {
			return err
		}
	}

	g.log.Info(ctx, "local records migrated",
		"accounts", len(accounts), "goals", len(goals), "deposits", len(deposits))
	return nil
}
