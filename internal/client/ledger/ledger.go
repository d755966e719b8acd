// Package ledger patches the denormalized per-denomination counters kept on
// challenge goals. Patches are incremental, never a recompute from scratch:
// each deposit mutation adjusts currentQty by the deposit's contribution.
//
// The functions are pure: they return a fresh slice, match entries by value,
// floor currentQty at zero, and never delete or reorder entries. An
// unmatched value leaves the slice unchanged.
package ledger

import "github.com/dmitrijs2005/goalkeeper/internal/client/models"

func clone(denoms []models.Denomination) []models.Denomination {
	out := make([]models.Denomination, len(denoms))
	copy(out, denoms)
	return out
}

// Add applies a created deposit: currentQty += qty on the matching entry.
func Add(denoms []models.Denomination, value float64, qty int64) []models.Denomination {
	out := clone(denoms)
	for i := range out {
		if out[i].Value == value {
			out[i].CurrentQty += qty
		}
	}
	return out
}

// Subtract applies a deleted deposit: currentQty -= qty on the matching
// entry, floored at zero.
func Subtract(denoms []models.Denomination, value float64, qty int64) []models.Denomination {
	out := clone(denoms)
	for i := range out {
		if out[i].Value == value {
			out[i].CurrentQty -= qty
			if out[i].CurrentQty < 0 {
				out[i].CurrentQty = 0
			}
		}
	}
	return out
}

// Move applies an edited deposit against a single snapshot of the goal's
// denominations: the old contribution is undone first, then the new one is
// applied, so the edit cannot race a lost update against itself.
func Move(denoms []models.Denomination, oldValue float64, oldQty int64, newValue float64, newQty int64) []models.Denomination {
	out := denoms
	if oldValue > 0 && oldQty > 0 {
		out = Subtract(out, oldValue, oldQty)
	}
	if newValue > 0 && newQty > 0 {
		out = Add(out, newValue, newQty)
	}
	return out
}
