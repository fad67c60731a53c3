package persistence

import (
	"fmt"
	"math/big"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/longwelwind/spacebo-go/internal/domain/ledger"
)

// withRowLock adds SELECT ... FOR UPDATE on dialects that support it.
// SQLite has no row locks; its single-writer model already serializes
// transactions, and FOR UPDATE is not part of its grammar.
func withRowLock(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// tableSpec names the columns of one quantity table.
type tableSpec struct {
	name        string
	ownerColumn string
	itemColumn  string
}

type recordKey struct {
	ownerID string
	itemID  string
}

// QuantityLedger applies atomic multi-owner, multi-item counter changes to
// one quantity table. Both the ship ledger and the inventory ledger run the
// same algorithm; the ship ledger additionally destroys fleets whose ship set
// becomes empty, via the onApplied hook.
//
// Row locks are acquired in a fixed global order (owners ascending, then
// items ascending) before any delta is evaluated, so two overlapping
// applications serialize instead of deadlocking.
type QuantityLedger struct {
	spec      tableSpec
	onApplied func(tx *gorm.DB, ownerIDs []string) error
}

// NewInventoryLedger creates the ledger over inventory_items.
func NewInventoryLedger() *QuantityLedger {
	return &QuantityLedger{
		spec: tableSpec{name: "inventory_items", ownerColumn: "inventory_id", itemColumn: "resource_id"},
	}
}

// NewShipLedger creates the ledger over fleet_ships. A fleet whose last ship
// record is removed by a change set is destroyed in the same transaction.
func NewShipLedger() *QuantityLedger {
	return &QuantityLedger{
		spec:      tableSpec{name: "fleet_ships", ownerColumn: "fleet_id", itemColumn: "ship_type_id"},
		onApplied: destroyEmptiedFleets,
	}
}

// ApplyChanges applies every delta of the change set, or none of them.
//
// The boolean result is the business outcome: false means some decrement
// would have driven a counter negative and nothing was applied. A non-nil
// error is a store failure; the caller must roll back its transaction.
//
// Records are created implicitly when a positive delta targets a missing key
// and deleted when a resulting quantity is exactly zero. A zero delta leaves
// its record untouched but still takes part in lock acquisition.
func (l *QuantityLedger) ApplyChanges(tx *gorm.DB, changes ledger.ChangeSet) (bool, error) {
	if len(changes) == 0 {
		return true, nil
	}

	owners := changes.SortedOwners()

	// Lock and read every listed record in the global order, before looking
	// at a single delta. Missing records count as quantity 0.
	current := make(map[recordKey]*big.Int)
	exists := make(map[recordKey]bool)
	for _, ownerID := range owners {
		for _, itemID := range changes.SortedItems(ownerID) {
			qty, found, err := l.lockRead(tx, ownerID, itemID)
			if err != nil {
				return false, err
			}
			key := recordKey{ownerID, itemID}
			current[key] = qty
			exists[key] = found
		}
	}

	// Reject the whole set if any resulting quantity would be negative.
	for _, ownerID := range owners {
		for itemID, delta := range changes[ownerID] {
			result := new(big.Int).Add(current[recordKey{ownerID, itemID}], delta)
			if result.Sign() < 0 {
				return false, nil
			}
		}
	}

	for _, ownerID := range owners {
		for _, itemID := range changes.SortedItems(ownerID) {
			delta := changes[ownerID][itemID]
			key := recordKey{ownerID, itemID}
			result := new(big.Int).Add(current[key], delta)

			switch {
			case delta.Sign() == 0:
				// Listed for locking only.
			case !exists[key]:
				if err := l.create(tx, ownerID, itemID, result); err != nil {
					return false, err
				}
			case result.Sign() == 0:
				if err := l.delete(tx, ownerID, itemID); err != nil {
					return false, err
				}
			default:
				if err := l.update(tx, ownerID, itemID, result); err != nil {
					return false, err
				}
			}
		}
	}

	if l.onApplied != nil {
		if err := l.onApplied(tx, owners); err != nil {
			return false, err
		}
	}

	return true, nil
}

func (l *QuantityLedger) keyCondition() string {
	return fmt.Sprintf("%s = ? AND %s = ?", l.spec.ownerColumn, l.spec.itemColumn)
}

func (l *QuantityLedger) lockRead(tx *gorm.DB, ownerID, itemID string) (*big.Int, bool, error) {
	var rows []struct {
		Quantity string
	}
	err := withRowLock(tx).
		Table(l.spec.name).
		Select("quantity").
		Where(l.keyCondition(), ownerID, itemID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("failed to lock %s record (%s, %s): %w", l.spec.name, ownerID, itemID, err)
	}
	if len(rows) == 0 {
		return new(big.Int), false, nil
	}

	qty, ok := new(big.Int).SetString(rows[0].Quantity, 10)
	if !ok {
		return nil, false, fmt.Errorf("corrupt quantity %q in %s for (%s, %s)", rows[0].Quantity, l.spec.name, ownerID, itemID)
	}
	return qty, true, nil
}

func (l *QuantityLedger) create(tx *gorm.DB, ownerID, itemID string, qty *big.Int) error {
	err := tx.Table(l.spec.name).Create(map[string]interface{}{
		l.spec.ownerColumn: ownerID,
		l.spec.itemColumn:  itemID,
		"quantity":         qty.String(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to create %s record (%s, %s): %w", l.spec.name, ownerID, itemID, err)
	}
	return nil
}

func (l *QuantityLedger) update(tx *gorm.DB, ownerID, itemID string, qty *big.Int) error {
	err := tx.Table(l.spec.name).
		Where(l.keyCondition(), ownerID, itemID).
		Update("quantity", qty.String()).Error
	if err != nil {
		return fmt.Errorf("failed to update %s record (%s, %s): %w", l.spec.name, ownerID, itemID, err)
	}
	return nil
}

func (l *QuantityLedger) delete(tx *gorm.DB, ownerID, itemID string) error {
	err := tx.Exec(
		fmt.Sprintf("DELETE FROM %s WHERE %s", l.spec.name, l.keyCondition()),
		ownerID, itemID,
	).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s record (%s, %s): %w", l.spec.name, ownerID, itemID, err)
	}
	return nil
}

// destroyEmptiedFleets deletes every touched fleet that has no ship records
// left. Only the ship ledger triggers this; an empty cargo hold is fine, a
// fleet without ships is not allowed to exist.
func destroyEmptiedFleets(tx *gorm.DB, fleetIDs []string) error {
	var stillCrewed []string
	err := tx.Model(&FleetShipModel{}).
		Where("fleet_id IN ?", fleetIDs).
		Distinct("fleet_id").
		Pluck("fleet_id", &stillCrewed).Error
	if err != nil {
		return fmt.Errorf("failed to check remaining ship records: %w", err)
	}

	remaining := make(map[string]bool, len(stillCrewed))
	for _, id := range stillCrewed {
		remaining[id] = true
	}

	emptied := make([]string, 0)
	for _, id := range fleetIDs {
		if !remaining[id] {
			emptied = append(emptied, id)
		}
	}
	if len(emptied) == 0 {
		return nil
	}

	if err := tx.Where("id IN ?", emptied).Delete(&FleetModel{}).Error; err != nil {
		return fmt.Errorf("failed to destroy emptied fleets: %w", err)
	}
	return nil
}
