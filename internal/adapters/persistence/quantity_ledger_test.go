package persistence_test

import (
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/adapters/persistence"
	"github.com/longwelwind/spacebo-go/internal/domain/ledger"
	"github.com/longwelwind/spacebo-go/test/helpers"
)

func applyChanges(t *testing.T, db *gorm.DB, l *persistence.QuantityLedger, changes ledger.ChangeSet) bool {
	t.Helper()

	var applied bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		applied, err = l.ApplyChanges(tx, changes)
		return err
	})
	require.NoError(t, err)
	return applied
}

func TestInventoryLedger_CreatesRecordOnFirstCredit(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", 30)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert
	require.True(t, applied)
	qty, exists := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	assert.True(t, exists)
	assert.Equal(t, "30", qty)
}

func TestInventoryLedger_DeletesRecordAtExactlyZero(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "30")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", -30)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert - the record is gone, not stored as 0
	require.True(t, applied)
	_, exists := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	assert.False(t, exists)
}

func TestInventoryLedger_RejectsInsufficientQuantity(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "10")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", -11)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert - business failure, state untouched
	assert.False(t, applied)
	qty, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	assert.Equal(t, "10", qty)
}

func TestInventoryLedger_DecrementOfMissingRecordIsRejected(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", -1)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert - a missing record counts as quantity 0
	assert.False(t, applied)
}

func TestInventoryLedger_MultiOwnerChangeSetIsAtomic(t *testing.T) {
	// Arrange - inv-1 can pay, inv-2 cannot
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.CreateInventory(t, db, "inv-2")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "100")
	helpers.SetInventoryItem(t, db, "inv-2", "iron", "5")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", -50)
	changes.AddInt("inv-2", "iron", -50)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert - the solvent owner's quantity is also untouched
	assert.False(t, applied)
	qty1, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	qty2, _ := helpers.InventoryQuantity(t, db, "inv-2", "iron")
	assert.Equal(t, "100", qty1)
	assert.Equal(t, "5", qty2)
}

func TestInventoryLedger_TransferBetweenOwners(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.CreateInventory(t, db, "inv-2")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "100")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", -40)
	changes.AddInt("inv-2", "iron", 40)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert
	require.True(t, applied)
	qty1, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	qty2, _ := helpers.InventoryQuantity(t, db, "inv-2", "iron")
	assert.Equal(t, "60", qty1)
	assert.Equal(t, "40", qty2)
}

func TestInventoryLedger_NegationRestoresState(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.CreateInventory(t, db, "inv-2")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "100")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", -25)
	changes.AddInt("inv-2", "iron", 25)

	// Act
	require.True(t, applyChanges(t, db, l, changes))
	require.True(t, applyChanges(t, db, l, changes.Negate()))

	// Assert - every touched record is back where it started
	qty1, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	assert.Equal(t, "100", qty1)
	_, exists := helpers.InventoryQuantity(t, db, "inv-2", "iron")
	assert.False(t, exists)
}

func TestInventoryLedger_EmptyChangeSetSucceeds(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	l := persistence.NewInventoryLedger()

	// Act
	applied := applyChanges(t, db, l, ledger.ChangeSet{})

	// Assert
	assert.True(t, applied)
}

func TestInventoryLedger_ZeroDeltaLeavesRecordUntouched(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "7")
	l := persistence.NewInventoryLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", 0)
	changes.AddInt("inv-1", "fuel", 0)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert - no record created for fuel, iron unchanged
	require.True(t, applied)
	qty, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	assert.Equal(t, "7", qty)
	_, exists := helpers.InventoryQuantity(t, db, "inv-1", "fuel")
	assert.False(t, exists)
}

func TestInventoryLedger_AccumulatedDeltasForSameKey(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "10")
	l := persistence.NewInventoryLedger()

	// Two deltas for the same key sum before application
	changes := ledger.ChangeSet{}
	changes.AddInt("inv-1", "iron", -15)
	changes.AddInt("inv-1", "iron", 20)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert
	require.True(t, applied)
	qty, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	assert.Equal(t, "15", qty)
}

func TestInventoryLedger_ConcurrentTransfersSharingKeySerialize(t *testing.T) {
	// Arrange - both workers draw from the same source record
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.CreateInventory(t, db, "inv-2")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "100")
	l := persistence.NewInventoryLedger()

	const workers = 2
	const transfersPerWorker = 25
	errCh := make(chan error, workers*transfersPerWorker)

	// Act
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < transfersPerWorker; i++ {
				changes := ledger.ChangeSet{}
				changes.AddInt("inv-1", "iron", -1)
				changes.AddInt("inv-2", "iron", 1)
				errCh <- db.Transaction(func(tx *gorm.DB) error {
					applied, err := l.ApplyChanges(tx, changes)
					if err == nil && !applied {
						err = errors.New("transfer rejected")
					}
					return err
				})
			}
		}()
	}
	wg.Wait()
	close(errCh)

	// Assert - no lost updates, every transfer counted exactly once
	for err := range errCh {
		require.NoError(t, err)
	}
	qty1, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	qty2, _ := helpers.InventoryQuantity(t, db, "inv-2", "iron")
	assert.Equal(t, "50", qty1)
	assert.Equal(t, "50", qty2)
}

func TestInventoryLedger_ConcurrentDisjointKeySetsBothSucceed(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.CreateInventory(t, db, "inv-2")
	l := persistence.NewInventoryLedger()

	const creditsPerInventory = 20
	errCh := make(chan error, 2*creditsPerInventory)

	// Act - one worker per inventory, key sets never overlap
	var wg sync.WaitGroup
	for _, inventoryID := range []string{"inv-1", "inv-2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < creditsPerInventory; i++ {
				changes := ledger.ChangeSet{}
				changes.AddInt(inventoryID, "iron", 1)
				errCh <- db.Transaction(func(tx *gorm.DB) error {
					applied, err := l.ApplyChanges(tx, changes)
					if err == nil && !applied {
						err = errors.New("credit rejected")
					}
					return err
				})
			}
		}()
	}
	wg.Wait()
	close(errCh)

	// Assert
	for err := range errCh {
		require.NoError(t, err)
	}
	qty1, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	qty2, _ := helpers.InventoryQuantity(t, db, "inv-2", "iron")
	assert.Equal(t, "20", qty1)
	assert.Equal(t, "20", qty2)
}

func TestInventoryLedger_QuantitiesBeyondInt64(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.CreateInventory(t, db, "inv-1")
	helpers.SetInventoryItem(t, db, "inv-1", "iron", "92233720368547758070") // 10 * MaxInt64
	l := persistence.NewInventoryLedger()

	big10, ok := new(big.Int).SetString("92233720368547758070", 10)
	require.True(t, ok)

	changes := ledger.ChangeSet{}
	changes.Add("inv-1", "iron", big10)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert
	require.True(t, applied)
	qty, _ := helpers.InventoryQuantity(t, db, "inv-1", "iron")
	assert.Equal(t, "184467440737095516140", qty)
}

func TestShipLedger_DestroysFleetLeftWithoutShips(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	helpers.CreateIdleFleet(t, db, "fleet-1", helpers.SystemSol, map[string]string{
		helpers.ShipTypeMiner: "2",
	})
	l := persistence.NewShipLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("fleet-1", helpers.ShipTypeMiner, -2)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert - last ship record removed, fleet destroyed with it
	require.True(t, applied)
	assert.False(t, helpers.FleetExists(t, db, "fleet-1"))
}

func TestShipLedger_KeepsFleetWithRemainingShipRecords(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	helpers.CreateIdleFleet(t, db, "fleet-1", helpers.SystemSol, map[string]string{
		helpers.ShipTypeMiner: "2",
		helpers.ShipTypeScout: "1",
	})
	l := persistence.NewShipLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("fleet-1", helpers.ShipTypeMiner, -2)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert - scout record still there, fleet survives
	require.True(t, applied)
	assert.True(t, helpers.FleetExists(t, db, "fleet-1"))
	_, minerExists := helpers.ShipQuantity(t, db, "fleet-1", helpers.ShipTypeMiner)
	assert.False(t, minerExists)
	scouts, _ := helpers.ShipQuantity(t, db, "fleet-1", helpers.ShipTypeScout)
	assert.Equal(t, "1", scouts)
}

func TestShipLedger_RejectedChangeSetDoesNotDestroyFleet(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	helpers.CreateIdleFleet(t, db, "fleet-1", helpers.SystemSol, map[string]string{
		helpers.ShipTypeMiner: "2",
	})
	l := persistence.NewShipLedger()

	changes := ledger.ChangeSet{}
	changes.AddInt("fleet-1", helpers.ShipTypeMiner, -3)

	// Act
	applied := applyChanges(t, db, l, changes)

	// Assert
	assert.False(t, applied)
	assert.True(t, helpers.FleetExists(t, db, "fleet-1"))
	qty, _ := helpers.ShipQuantity(t, db, "fleet-1", helpers.ShipTypeMiner)
	assert.Equal(t, "2", qty)
}
