package ledger

import (
	"math/big"
	"sort"
)

// ChangeSet maps owner id -> item id -> signed delta. A single ChangeSet is
// applied atomically: either every delta lands or none do.
//
// Quantities are arbitrary precision. Counters accumulate without bound over
// long play sessions, so fixed-width integers are not trusted here.
type ChangeSet map[string]map[string]*big.Int

// Add accumulates a delta for (owner, item), creating the nested map as
// needed. Deltas for the same key are summed.
func (c ChangeSet) Add(ownerID, itemID string, delta *big.Int) {
	items, ok := c[ownerID]
	if !ok {
		items = make(map[string]*big.Int)
		c[ownerID] = items
	}
	if existing, ok := items[itemID]; ok {
		items[itemID] = new(big.Int).Add(existing, delta)
	} else {
		items[itemID] = new(big.Int).Set(delta)
	}
}

// AddInt is Add for small literal deltas.
func (c ChangeSet) AddInt(ownerID, itemID string, delta int64) {
	c.Add(ownerID, itemID, big.NewInt(delta))
}

// Negate returns a new ChangeSet with every delta sign-flipped. Applying a
// set and then its negation restores every touched record.
func (c ChangeSet) Negate() ChangeSet {
	negated := make(ChangeSet, len(c))
	for ownerID, items := range c {
		for itemID, delta := range items {
			negated.Add(ownerID, itemID, new(big.Int).Neg(delta))
		}
	}
	return negated
}

// SortedOwners returns owner ids in ascending order. Lock acquisition walks
// owners in this order, then items in the order of SortedItems, so that any
// two overlapping applications serialize instead of deadlocking.
func (c ChangeSet) SortedOwners() []string {
	owners := make([]string, 0, len(c))
	for ownerID := range c {
		owners = append(owners, ownerID)
	}
	sort.Strings(owners)
	return owners
}

// SortedItems returns the item ids of one owner in ascending order.
func (c ChangeSet) SortedItems(ownerID string) []string {
	items := make([]string, 0, len(c[ownerID]))
	for itemID := range c[ownerID] {
		items = append(items, itemID)
	}
	sort.Strings(items)
	return items
}
