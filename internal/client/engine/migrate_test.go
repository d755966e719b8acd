package engine

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/cache"
	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote"
	"github.com/dmitrijs2005/goalkeeper/internal/client/remote/remotetest"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLocal(t *testing.T, m *cache.Mirror) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.UpsertAccount(ctx, models.Account{
		ID: "local-acc", Name: "Wallet", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, m.UpsertGoal(ctx, models.Goal{
		ID: "local-goal", Name: "Bike", Mode: models.ModeNormal,
		TotalAmount: 300, TargetDate: "2026-06-01", AccountID: "local-acc",
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, m.UpsertDeposit(ctx, models.Deposit{
		ID: "local-dep", GoalID: "local-goal", Amount: 50, Date: time.Now().UTC(),
	}))
}

func TestMigrationGate_UploadsOnceAndRemapsIDs(t *testing.T) {
	ctx := context.Background()
	mirror, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })
	seedLocal(t, mirror)

	fake := remotetest.NewFake()
	gate := NewMigrationGate(fake, mirror, testLogger())

	require.NoError(t, gate.Run(ctx, "u1"))
	assert.Equal(t, 3, fake.Writes)
	assert.Equal(t, 1, fake.Len(models.CollectionAccounts))
	assert.Equal(t, 1, fake.Len(models.CollectionGoals))
	assert.Equal(t, 1, fake.Len(models.CollectionDeposits))

	// relationships survive under freshly minted ids
	var uploadedAcc models.Account
	var uploadedGoal models.Goal
	var uploadedDep models.Deposit
	require.NoError(t, fakeFirstDoc(fake, models.CollectionAccounts, &uploadedAcc))
	require.NoError(t, fakeFirstDoc(fake, models.CollectionGoals, &uploadedGoal))
	require.NoError(t, fakeFirstDoc(fake, models.CollectionDeposits, &uploadedDep))

	assert.NotEqual(t, "local-acc", uploadedAcc.ID)
	assert.NotEqual(t, "local-goal", uploadedGoal.ID)
	assert.Equal(t, uploadedAcc.ID, uploadedGoal.AccountID)
	assert.Equal(t, uploadedGoal.ID, uploadedDep.GoalID)

	// second run is gated by the per-user flag: zero further uploads
	require.NoError(t, gate.Run(ctx, "u1"))
	assert.Equal(t, 3, fake.Writes)
}

func TestMigrationGate_NonEmptyRemoteSkipsUpload(t *testing.T) {
	ctx := context.Background()
	mirror, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })
	seedLocal(t, mirror)

	fake := remotetest.NewFake()
	require.NoError(t, fake.Create(ctx, models.CollectionGoals, "g-remote", models.Goal{
		ID: "g-remote", Name: "Existing", Mode: models.ModeNormal,
		TotalAmount: 10, TargetDate: "2026-01-01", AccountID: "a",
	}))
	writesBefore := fake.Writes

	gate := NewMigrationGate(fake, mirror, testLogger())
	require.NoError(t, gate.Run(ctx, "u1"))
	assert.Equal(t, writesBefore, fake.Writes)

	// the flag is still set: later runs do not probe again
	require.NoError(t, gate.Run(ctx, "u1"))
	assert.Equal(t, writesBefore, fake.Writes)
}

func TestMigrationGate_FailedUploadRetries(t *testing.T) {
	ctx := context.Background()
	mirror, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })
	seedLocal(t, mirror)

	fake := remotetest.NewFake()
	fake.SetWriteErr(assert.AnError)

	gate := NewMigrationGate(fake, mirror, testLogger())
	require.Error(t, gate.Run(ctx, "u1"))

	flag, err := mirror.GetMeta(ctx, "migrated_u1")
	require.NoError(t, err)
	assert.Nil(t, flag, "flag must not be set after a failed upload")

	fake.SetWriteErr(nil)
	require.NoError(t, gate.Run(ctx, "u1"))
	assert.Equal(t, 1, fake.Len(models.CollectionAccounts))
	assert.Equal(t, 1, fake.Len(models.CollectionGoals))
	assert.Equal(t, 1, fake.Len(models.CollectionDeposits))
}

// slowProbeStore parks IsEmpty until released so a second Run can be issued
// while the first is still inside the gate.
type slowProbeStore struct {
	remote.Store
	entered chan struct{}
	release chan struct{}
}

func (s *slowProbeStore) IsEmpty(ctx context.Context) (bool, error) {
	s.entered <- struct{}{}
	<-s.release
	return s.Store.IsEmpty(ctx)
}

func TestMigrationGate_RefusesOverlappingRun(t *testing.T) {
	ctx := context.Background()
	mirror, err := cache.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mirror.Close() })
	seedLocal(t, mirror)

	store := &slowProbeStore{
		Store:   remotetest.NewFake(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	gate := NewMigrationGate(store, mirror, testLogger())

	errCh := make(chan error, 1)
	go func() { errCh <- gate.Run(ctx, "u1") }()
	<-store.entered

	assert.ErrorIs(t, gate.Run(ctx, "u1"), shared.ErrMigrationInProgress)

	close(store.release)
	require.NoError(t, <-errCh)

	// the guard clears once the first run settles
	require.NoError(t, gate.Run(ctx, "u1"))
}

// fakeFirstDoc decodes the only document of a collection.
func fakeFirstDoc(f *remotetest.Fake, collection string, out any) error {
	ids := f.IDs(collection)
	if len(ids) != 1 {
		return assert.AnError
	}
	return f.Doc(collection, ids[0], out)
}
