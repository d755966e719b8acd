package engine

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/cache"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote/remotetest"
	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fixture struct {
	fake     *remotetest.Fake
	mirror   *cache.Mirror
	pipeline *Pipeline
	sub      *Subscriber
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	mirror, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })

	fake := remotetest.NewFake()
	log := testLogger()

	p := NewPipeline(ctx, fake, mirror, log)
	t.Cleanup(p.Close)

	sub, err := StartSubscriber(ctx, fake, mirror, p, log)
	require.NoError(t, err)
	t.Cleanup(sub.Stop)

	return &fixture{fake: fake, mirror: mirror, pipeline: p, sub: sub}
}

// mustAccount creates an account and waits for it to land in the cache.
func (f *fixture) mustAccount(t *testing.T, name string) string {
	t.Helper()
	id, err := f.pipeline.CreateAccount(context.Background(), CreateAccountParams{Name: name})
	require.NoError(t, err)
	f.pipeline.Flush()
	return id
}

func (f *fixture) mustGoal(t *testing.T, params CreateGoalParams) string {
	t.Helper()
	id, err := f.pipeline.CreateGoal(context.Background(), params)
	require.NoError(t, err)
	f.pipeline.Flush()
	return id
}

func (f *fixture) cachedGoal(t *testing.T, id string) *models.Goal {
	t.Helper()
	g, err := f.mirror.Goal(context.Background(), id)
	require.NoError(t, err)
	return g
}

func TestCreateAccount_LandsInCacheViaFeed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	id, err := f.pipeline.CreateAccount(ctx, CreateAccountParams{Name: "GCash", InitialBalance: 150.505})
	require.NoError(t, err)
	f.pipeline.Flush()

	a, err := f.mirror.Account(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "GCash", a.Name)
	assert.Equal(t, 150.51, a.InitialBalance)
	assert.False(t, a.UpdatedAt.IsZero(), "feed assigns the server timestamp")
}

func TestCreateAccount_Validation(t *testing.T) {
	f := setup(t)
	_, err := f.pipeline.CreateAccount(context.Background(), CreateAccountParams{Name: ""})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = f.pipeline.CreateAccount(context.Background(), CreateAccountParams{Name: "x", InitialBalance: -1})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteAccount_RefusedWhileReferenced(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Bank")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Laptop", Mode: models.ModeNormal, TotalAmount: 50000,
		TargetDate: "2026-12-31", AccountID: accID,
	})

	err := f.pipeline.DeleteAccount(ctx, accID)
	assert.ErrorIs(t, err, shared.ErrAccountInUse)
	assert.Equal(t, 1, f.fake.Len(models.CollectionAccounts))

	require.NoError(t, f.pipeline.DeleteGoal(ctx, goalID))
	f.pipeline.Flush()

	require.NoError(t, f.pipeline.DeleteAccount(ctx, accID))
	f.pipeline.Flush()
	assert.Equal(t, 0, f.fake.Len(models.CollectionAccounts))
}

func TestCreateGoal_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.pipeline.CreateGoal(ctx, CreateGoalParams{
		Name: "", Mode: models.ModeNormal, TotalAmount: 10,
		TargetDate: "2026-01-01", AccountID: "a",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.pipeline.CreateGoal(ctx, CreateGoalParams{
		Name: "x", Mode: "weird", TotalAmount: 10,
		TargetDate: "2026-01-01", AccountID: "a",
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCompletion_FlipsOnceThenBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Bank")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Trip", Mode: models.ModeNormal, TotalAmount: 1000,
		TargetDate: "2026-12-31", AccountID: accID,
	})

	_, err := f.pipeline.CreateDeposit(ctx, CreateDepositParams{GoalID: goalID, Amount: 999.99})
	require.NoError(t, err)
	f.pipeline.Flush()
	assert.False(t, f.cachedGoal(t, goalID).IsCompleted)

	lastID, err := f.pipeline.CreateDeposit(ctx, CreateDepositParams{GoalID: goalID, Amount: 0.01})
	require.NoError(t, err)
	f.pipeline.Flush()

	g := f.cachedGoal(t, goalID)
	assert.True(t, g.IsCompleted, "999.99 + 0.01 reaches the target exactly")
	require.NotNil(t, g.CompletedAt)

	// an already-completed goal must not be patched again on further
	// deposits: exactly one write (the deposit create)
	before := f.fake.Writes
	_, err = f.pipeline.CreateDeposit(ctx, CreateDepositParams{GoalID: goalID, Amount: 5})
	require.NoError(t, err)
	f.pipeline.Flush()
	assert.Equal(t, before+1, f.fake.Writes)

	// dropping back below the target flips completion off
	require.NoError(t, f.pipeline.DeleteDeposit(ctx, lastID))
	f.pipeline.Flush()
	g = f.cachedGoal(t, goalID)
	assert.True(t, g.IsCompleted, "999.99 + 5 still above target")

	deposits, err := f.mirror.DepositsByGoal(ctx, goalID)
	require.NoError(t, err)
	for _, d := range deposits {
		if d.Amount == 5 {
			require.NoError(t, f.pipeline.DeleteDeposit(ctx, d.ID))
		}
	}
	f.pipeline.Flush()

	g = f.cachedGoal(t, goalID)
	assert.False(t, g.IsCompleted)
	assert.Nil(t, g.CompletedAt)
}

func TestChallengeLedger_CreateEditDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Cash")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Coins", Mode: models.ModeChallenge,
		TargetDate: "2026-12-31", AccountID: accID,
		Denominations: []models.Denomination{
			{Value: 100, TargetQty: 10},
			{Value: 50, TargetQty: 20},
		},
	})
	assert.Equal(t, 2000.0, f.cachedGoal(t, goalID).TotalAmount)

	depID, err := f.pipeline.CreateDeposit(ctx, CreateDepositParams{
		GoalID: goalID, DenominationValue: 100, Quantity: 3,
	})
	require.NoError(t, err)
	f.pipeline.Flush()

	g := f.cachedGoal(t, goalID)
	assert.Equal(t, int64(3), g.Denominations[0].CurrentQty)
	dep, err := f.mirror.Deposit(ctx, depID)
	require.NoError(t, err)
	assert.Equal(t, 300.0, dep.Amount)

	qty := int64(1)
	require.NoError(t, f.pipeline.UpdateDeposit(ctx, depID, DepositUpdate{Quantity: &qty}))
	f.pipeline.Flush()

	g = f.cachedGoal(t, goalID)
	assert.Equal(t, int64(1), g.Denominations[0].CurrentQty)
	dep, err = f.mirror.Deposit(ctx, depID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, dep.Amount)

	require.NoError(t, f.pipeline.DeleteDeposit(ctx, depID))
	f.pipeline.Flush()

	g = f.cachedGoal(t, goalID)
	assert.Equal(t, int64(0), g.Denominations[0].CurrentQty)
	assert.Equal(t, int64(0), g.Denominations[1].CurrentQty)
	_, err = f.mirror.Deposit(ctx, depID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestChallengeDeposit_UnknownDenomination(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Cash")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Coins", Mode: models.ModeChallenge,
		TargetDate: "2026-12-31", AccountID: accID,
		Denominations: []models.Denomination{{Value: 20, TargetQty: 5}},
	})

	_, err := f.pipeline.CreateDeposit(ctx, CreateDepositParams{
		GoalID: goalID, DenominationValue: 7, Quantity: 1,
	})
	assert.ErrorIs(t, err, shared.ErrUnknownDenomination)
}

func TestChallenge_CompletesWhenDenominationsFilled(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Cash")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Coins", Mode: models.ModeChallenge,
		TargetDate: "2026-12-31", AccountID: accID,
		Denominations: []models.Denomination{{Value: 50, TargetQty: 4}},
	})

	_, err := f.pipeline.CreateDeposit(ctx, CreateDepositParams{
		GoalID: goalID, DenominationValue: 50, Quantity: 4,
	})
	require.NoError(t, err)
	f.pipeline.Flush()

	g := f.cachedGoal(t, goalID)
	assert.Equal(t, int64(4), g.Denominations[0].CurrentQty)
	assert.True(t, g.IsCompleted)
}

func TestNormalDeposit_RejectsDenominationFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Bank")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Trip", Mode: models.ModeNormal, TotalAmount: 500,
		TargetDate: "2026-12-31", AccountID: accID,
	})

	_, err := f.pipeline.CreateDeposit(ctx, CreateDepositParams{
		GoalID: goalID, Amount: 10, DenominationValue: 5, Quantity: 2,
	})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateDeposit_VanishedIsDropped(t *testing.T) {
	f := setup(t)

	before := f.fake.Writes
	amount := 25.0
	require.NoError(t, f.pipeline.UpdateDeposit(context.Background(), "ghost", DepositUpdate{Amount: &amount}))
	f.pipeline.Flush()
	assert.Equal(t, before, f.fake.Writes)
}

func TestArchiveRestore(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Bank")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Trip", Mode: models.ModeNormal, TotalAmount: 500,
		TargetDate: "2026-12-31", AccountID: accID,
	})

	require.NoError(t, f.pipeline.ArchiveGoal(ctx, goalID))
	f.pipeline.Flush()
	g := f.cachedGoal(t, goalID)
	assert.True(t, g.IsArchived)
	assert.NotNil(t, g.ArchivedAt)

	require.NoError(t, f.pipeline.RestoreGoal(ctx, goalID))
	f.pipeline.Flush()
	g = f.cachedGoal(t, goalID)
	assert.False(t, g.IsArchived)
	assert.Nil(t, g.ArchivedAt)
}

func TestUpdateGoal_DenominationsRecomputeTotal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Cash")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Coins", Mode: models.ModeChallenge,
		TargetDate: "2026-12-31", AccountID: accID,
		Denominations: []models.Denomination{{Value: 100, TargetQty: 5}},
	})

	denoms := []models.Denomination{{Value: 100, TargetQty: 5}, {Value: 20, TargetQty: 10}}
	require.NoError(t, f.pipeline.UpdateGoal(ctx, goalID, GoalUpdate{Denominations: &denoms}))
	f.pipeline.Flush()

	g := f.cachedGoal(t, goalID)
	assert.Equal(t, 700.0, g.TotalAmount)
	assert.Len(t, g.Denominations, 2)
}

func TestDeleteGoal_CascadesDeposits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	accID := f.mustAccount(t, "Bank")
	goalID := f.mustGoal(t, CreateGoalParams{
		Name: "Trip", Mode: models.ModeNormal, TotalAmount: 500,
		TargetDate: "2026-12-31", AccountID: accID,
	})
	for i := 0; i < 3; i++ {
		_, err := f.pipeline.CreateDeposit(ctx, CreateDepositParams{GoalID: goalID, Amount: 10})
		require.NoError(t, err)
	}
	f.pipeline.Flush()
	assert.Equal(t, 3, f.fake.Len(models.CollectionDeposits))

	require.NoError(t, f.pipeline.DeleteGoal(ctx, goalID))
	f.pipeline.Flush()

	assert.Equal(t, 0, f.fake.Len(models.CollectionDeposits))
	assert.Equal(t, 0, f.fake.Len(models.CollectionGoals))
	deposits, err := f.mirror.DepositsByGoal(ctx, goalID)
	require.NoError(t, err)
	assert.Empty(t, deposits)
}

func TestWatch_SnapshotPopulatesCache(t *testing.T) {
	ctx := context.Background()

	fake := remotetest.NewFake()
	require.NoError(t, fake.Create(ctx, models.CollectionAccounts, "a1", models.Account{
		ID: "a1", Name: "Bank", CreatedAt: time.Now().UTC(),
	}))

	mirror, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })

	p := NewPipeline(ctx, fake, mirror, testLogger())
	t.Cleanup(p.Close)
	sub, err := StartSubscriber(ctx, fake, mirror, p, testLogger())
	require.NoError(t, err)
	t.Cleanup(sub.Stop)

	a, err := mirror.Account(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Bank", a.Name)
}

func TestWriteFailure_DoesNotTouchCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.fake.SetWriteErr(assert.AnError)
	id, err := f.pipeline.CreateAccount(ctx, CreateAccountParams{Name: "Bank"})
	require.NoError(t, err, "optimistic call succeeds even when the write will fail")
	f.pipeline.Flush()

	_, err = f.mirror.Account(ctx, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDebugLogging_CoversWritesAndFeedEvents(t *testing.T) {
	ctx := context.Background()

	mirror, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })

	var buf bytes.Buffer
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(&buf,
		&slog.HandlerOptions{Level: slog.LevelDebug})))

	fake := remotetest.NewFake()
	p := NewPipeline(ctx, fake, mirror, log)
	t.Cleanup(p.Close)
	sub, err := StartSubscriber(ctx, fake, mirror, p, log)
	require.NoError(t, err)
	t.Cleanup(sub.Stop)

	_, err = p.CreateAccount(ctx, CreateAccountParams{Name: "Bank"})
	require.NoError(t, err)
	p.Flush()

	out := buf.String()
	assert.Contains(t, out, "running write")
	assert.Contains(t, out, "feed event")
}
