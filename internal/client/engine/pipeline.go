// Package engine wires the sync core together: the optimistic write
// pipeline, the change-feed subscriber, the completion-sync step, the
// one-time migration gate and the auth-driven session lifecycle.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/cache"
	"github.com/dmitrijs2005/goalkeeper/internal/client/derive"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote"
	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Pipeline issues optimistic writes to the remote store. Validation happens
// synchronously at the call boundary; the remote requests themselves run on
// a single background writer in call order, and the call returns as soon as
// the work is enqueued. The caller is never told whether the server accepted
// the write: reconciliation arrives through the change feed.
//
// Funnelling every write through one worker also serializes this client's
// ledger read-modify-writes per goal; the two-request shape (goal patch,
// then deposit write) is kept as-is and stays non-atomic across clients.
type Pipeline struct {
	remote   remote.Store
	mirror   *cache.Mirror
	log      logging.Logger
	validate *validator.Validate

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []job
	running bool
	closed  bool
	done    chan struct{}
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// NewPipeline starts the writer goroutine bound to ctx; remote calls issued
// by queued jobs are cancelled with it.
func NewPipeline(ctx context.Context, store remote.Store, mirror *cache.Mirror, log logging.Logger) *Pipeline {
	p := &Pipeline{
		remote:   store,
		mirror:   mirror,
		log:      log,
		validate: validator.New(),
		done:     make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.worker(ctx)
	return p
}

func (p *Pipeline) worker(ctx context.Context) {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			close(p.done)
			return
		}
		j := p.queue[0]
		p.queue = p.queue[1:]
		p.running = true
		p.mu.Unlock()

		p.log.Debug(ctx, "running write", "op", j.name)
		if err := j.run(ctx); err != nil {
			// optimistic writes are not awaited by callers: a failure means
			// the operation did not take effect, never a crash
			p.log.Error(ctx, "remote write failed", "op", j.name, "error", err)
		}

		p.mu.Lock()
		p.running = false
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *Pipeline) enqueue(name string, run func(ctx context.Context) error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.queue = append(p.queue, job{name: name, run: run})
	p.cond.Broadcast()
}

// Flush blocks until every write enqueued so far (and any follow-up writes
// they trigger) has been attempted.
func (p *Pipeline) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) > 0 || p.running {
		p.cond.Wait()
	}
}

// Close drains the queue and stops the writer.
func (p *Pipeline) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	<-p.done
}

// CreateAccountParams are the caller-supplied account fields.
type CreateAccountParams struct {
	Name           string  `validate:"required"`
	InitialBalance float64 `validate:"gte=0"`
}

// CreateAccount mints the account id, enqueues the create and returns the id
// immediately.
func (p *Pipeline) CreateAccount(ctx context.Context, params CreateAccountParams) (string, error) {
	if err := p.validate.Struct(params); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	acc := models.Account{
		ID:             uuid.NewString(),
		Name:           params.Name,
		InitialBalance: derive.Round2(params.InitialBalance),
		CreatedAt:      time.Now().UTC(),
	}
	p.enqueue("createAccount", func(ctx context.Context) error {
		return p.remote.Create(ctx, models.CollectionAccounts, acc.ID, acc)
	})
	return acc.ID, nil
}

// DeleteAccount refuses to remove an account that is still referenced by a
// goal; the check runs against the cache mirror, synchronously.
func (p *Pipeline) DeleteAccount(ctx context.Context, id string) error {
	goals, err := p.mirror.GoalsByAccount(ctx, id)
	if err != nil {
		return err
	}
	if len(goals) > 0 {
		return fmt.Errorf("%w: %d goal(s)", shared.ErrAccountInUse, len(goals))
	}
	p.enqueue("deleteAccount", func(ctx context.Context) error {
		return p.remote.Delete(ctx, models.CollectionAccounts, id)
	})
	return nil
}

// CreateGoalParams covers both goal modes; Denominations is read only when
// Mode is challenge, and TotalAmount only when Mode is normal (a challenge
// goal's target is always derived from its denominations).
type CreateGoalParams struct {
	Name          string          `validate:"required"`
	Emoji         string          `validate:"-"`
	Mode          models.GoalMode `validate:"required,oneof=normal challenge"`
	TotalAmount   float64         `validate:"-"`
	TargetDate    string          `validate:"required"`
	AccountID     string          `validate:"required"`
	Denominations []models.Denomination
}

// CreateGoal validates, mints the id, builds the full document and enqueues
// the create.
func (p *Pipeline) CreateGoal(ctx context.Context, params CreateGoalParams) (string, error) {
	if err := p.validate.Struct(params); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	id := uuid.NewString()
	now := time.Now()

	var g *models.Goal
	var err error
	if params.Mode == models.ModeChallenge {
		g, err = models.NewChallengeGoal(id, params.Name, params.Emoji, params.TargetDate, params.AccountID, params.Denominations, now)
	} else {
		g, err = models.NewGoal(id, params.Name, params.Emoji, derive.Round2(params.TotalAmount), params.TargetDate, params.AccountID, now)
	}
	if err != nil {
		return "", err
	}

	p.enqueue("createGoal", func(ctx context.Context) error {
		return p.remote.Create(ctx, models.CollectionGoals, g.ID, g)
	})
	return g.ID, nil
}

// GoalUpdate lists the editable goal fields; nil means "leave unchanged".
type GoalUpdate struct {
	Name          *string
	Emoji         *string
	TotalAmount   *float64
	TargetDate    *string
	AccountID     *string
	Denominations *[]models.Denomination
}

// UpdateGoal builds a field-level patch so concurrent editors of disjoint
// fields both survive the merge. Editing the denominations of a challenge
// goal recomputes and overwrites totalAmount.
func (p *Pipeline) UpdateGoal(ctx context.Context, id string, upd GoalUpdate) error {
	patch := map[string]any{}
	if upd.Name != nil {
		if *upd.Name == "" {
			return fmt.Errorf("%w: goal name is required", shared.ErrValidation)
		}
		patch["name"] = *upd.Name
	}
	if upd.Emoji != nil {
		patch["emoji"] = *upd.Emoji
	}
	if upd.TotalAmount != nil {
		if *upd.TotalAmount <= 0 {
			return fmt.Errorf("%w: totalAmount must be positive", shared.ErrValidation)
		}
		patch["totalAmount"] = derive.Round2(*upd.TotalAmount)
	}
	if upd.TargetDate != nil {
		if _, err := time.Parse(models.TargetDateLayout, *upd.TargetDate); err != nil {
			return fmt.Errorf("%w: targetDate must be YYYY-MM-DD", shared.ErrValidation)
		}
		patch["targetDate"] = *upd.TargetDate
	}
	if upd.AccountID != nil {
		if *upd.AccountID == "" {
			return fmt.Errorf("%w: accountId is required", shared.ErrValidation)
		}
		patch["accountId"] = *upd.AccountID
	}
	if upd.Denominations != nil {
		denoms := *upd.Denominations
		if len(denoms) == 0 {
			return fmt.Errorf("%w: challenge goal needs at least one denomination", shared.ErrValidation)
		}
		patch["denominations"] = denoms
		patch["totalAmount"] = models.DenominationsTotal(denoms)
	}
	if len(patch) == 0 {
		return nil
	}

	p.enqueue("updateGoal", func(ctx context.Context) error {
		return p.remote.Update(ctx, models.CollectionGoals, id, patch)
	})
	return nil
}

// ArchiveGoal hides a goal from the active dashboard without touching its
// deposits.
func (p *Pipeline) ArchiveGoal(ctx context.Context, id string) error {
	now := time.Now().UTC()
	p.enqueue("archiveGoal", func(ctx context.Context) error {
		return p.remote.Update(ctx, models.CollectionGoals, id, map[string]any{
			"isArchived": true,
			"archivedAt": now,
		})
	})
	return nil
}

// RestoreGoal brings an archived goal back.
func (p *Pipeline) RestoreGoal(ctx context.Context, id string) error {
	p.enqueue("restoreGoal", func(ctx context.Context) error {
		return p.remote.Update(ctx, models.CollectionGoals, id, map[string]any{
			"isArchived": false,
			"archivedAt": nil,
		})
	})
	return nil
}

// DeleteGoal cascade-deletes the goal's deposits before the goal itself, so
// no orphaned deposits survive on the remote store. The deposit set is taken
// from the cache mirror at execution time.
func (p *Pipeline) DeleteGoal(ctx context.Context, id string) error {
	p.enqueue("deleteGoal", func(ctx context.Context) error {
		deposits, err := p.mirror.DepositsByGoal(ctx, id)
		if err != nil {
			return err
		}
		for _, d := range deposits {
			if err := p.remote.Delete(ctx, models.CollectionDeposits, d.ID); err != nil {
				return err
			}
		}
		return p.remote.Delete(ctx, models.CollectionGoals, id)
	})
	return nil
}
