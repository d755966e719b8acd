package ledger

import (
	"testing"

	"github.com/dmitrijs2005/goalkeeper/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func denoms() []models.Denomination {
	return []models.Denomination{
		{Value: 100, TargetQty: 5, CurrentQty: 0},
		{Value: 50, TargetQty: 10, CurrentQty: 2},
	}
}

func TestAdd(t *testing.T) {
	out := Add(denoms(), 100, 3)

	require.Len(t, out, 2)
	assert.Equal(t, int64(3), out[0].CurrentQty)
	assert.Equal(t, int64(2), out[1].CurrentQty, "other entries untouched")
}

func TestAdd_UnknownValueIsNoop(t *testing.T) {
	in := denoms()
	out := Add(in, 200, 3)
	assert.Equal(t, in, out)
}

func TestSubtract_FlooredAtZero(t *testing.T) {
	out := Subtract(denoms(), 50, 5)
	assert.Equal(t, int64(0), out[1].CurrentQty, "never negative")
}

func TestMove_EditSequence(t *testing.T) {
	// create qty 3, edit to qty 1, delete
	d := denoms()

	d = Add(d, 100, 3)
	require.Equal(t, int64(3), d[0].CurrentQty)

	d = Move(d, 100, 3, 100, 1)
	require.Equal(t, int64(1), d[0].CurrentQty, "edit yields 1, not 4 and not -2")

	d = Subtract(d, 100, 1)
	require.Equal(t, int64(0), d[0].CurrentQty)
}

func TestMove_AcrossValues(t *testing.T) {
	d := Add(denoms(), 100, 2)

	d = Move(d, 100, 2, 50, 4)

	assert.Equal(t, int64(0), d[0].CurrentQty)
	assert.Equal(t, int64(6), d[1].CurrentQty)
}

func TestMove_MissingOldSideStillAppliesNew(t *testing.T) {
	d := Move(denoms(), 0, 0, 100, 2)
	assert.Equal(t, int64(2), d[0].CurrentQty)
}

func TestPatchesDoNotMutateInput(t *testing.T) {
	in := denoms()
	_ = Add(in, 100, 3)
	_ = Subtract(in, 50, 1)

	assert.Equal(t, denoms(), in)
}

func TestEntriesNeverRemovedOrReordered(t *testing.T) {
	d := Subtract(Add(denoms(), 100, 1), 100, 1)
	require.Len(t, d, 2)
	assert.Equal(t, 100.0, d[0].Value)
	assert.Equal(t, 50.0, d[1].Value)
}
