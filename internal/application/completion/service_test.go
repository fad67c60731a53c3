package completion_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/adapters/persistence"
	"github.com/longwelwind/spacebo-go/internal/application/completion"
	"github.com/longwelwind/spacebo-go/internal/application/scheduler"
	"github.com/longwelwind/spacebo-go/test/helpers"
)

func newService(t *testing.T, db *gorm.DB) (*completion.Service, *scheduler.Scheduler) {
	t.Helper()

	catalog := helpers.LoadTestCatalog(t, db)
	fleetRepo := persistence.NewGormFleetRepository(db)
	stationRepo := persistence.NewGormStationRepository(db)
	sched := scheduler.New(nil)
	t.Cleanup(sched.Stop)

	service := completion.NewService(
		db, fleetRepo, fleetRepo, stationRepo, catalog,
		persistence.NewInventoryLedger(), sched,
	)
	return service, sched
}

func seedTravelingFleet(t *testing.T, db *gorm.DB, fleetID string, arrival time.Time) {
	t.Helper()

	helpers.CreateInventory(t, db, fleetID+"-inv")
	from := helpers.SystemSol
	to := helpers.SystemVega
	departure := arrival.Add(-time.Minute)
	err := db.Create(&persistence.FleetModel{
		ID:                    fleetID,
		LocationSystemID:      helpers.SystemSol,
		InventoryID:           fleetID + "-inv",
		CurrentAction:         "traveling",
		TravelingFromSystemID: &from,
		TravelingToSystemID:   &to,
		DepartureTime:         &departure,
		ArrivalTime:           &arrival,
	}).Error
	require.NoError(t, err)
}

func seedMiningFleet(t *testing.T, db *gorm.DB, fleetID string, finish time.Time, shipCounts map[string]string) {
	t.Helper()

	helpers.CreateInventory(t, db, fleetID+"-inv")
	resource := helpers.ResourceIron
	err := db.Create(&persistence.FleetModel{
		ID:               fleetID,
		LocationSystemID: helpers.SystemSol,
		InventoryID:      fleetID + "-inv",
		CurrentAction:    "mining",
		MiningResourceID: &resource,
		MiningFinishTime: &finish,
	}).Error
	require.NoError(t, err)

	for shipTypeID, quantity := range shipCounts {
		err := db.Create(&persistence.FleetShipModel{
			FleetID:    fleetID,
			ShipTypeID: shipTypeID,
			Quantity:   quantity,
		}).Error
		require.NoError(t, err)
	}
}

func fleetState(t *testing.T, db *gorm.DB, fleetID string) persistence.FleetModel {
	t.Helper()

	var model persistence.FleetModel
	require.NoError(t, db.Where("id = ?", fleetID).First(&model).Error)
	return model
}

// currentAction is the polling variant of fleetState, safe inside Eventually
// callbacks.
func currentAction(db *gorm.DB, fleetID string) string {
	var model persistence.FleetModel
	if err := db.Where("id = ?", fleetID).First(&model).Error; err != nil {
		return ""
	}
	return model.CurrentAction
}

func TestCompletion_FleetArrival(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, _ := newService(t, db)
	seedTravelingFleet(t, db, "fleet-1", time.Now().UTC())

	// Act - already past due, fires immediately
	service.ScheduleFleetArrival("fleet-1", time.Now().UTC())

	// Assert
	require.Eventually(t, func() bool {
		return currentAction(db, "fleet-1") == "idling"
	}, 2*time.Second, 10*time.Millisecond)

	state := fleetState(t, db, "fleet-1")
	assert.Equal(t, helpers.SystemVega, state.LocationSystemID)
	assert.Nil(t, state.TravelingFromSystemID)
	assert.Nil(t, state.TravelingToSystemID)
	assert.Nil(t, state.DepartureTime)
	assert.Nil(t, state.ArrivalTime)
}

func TestCompletion_MiningFinishCreditsInventory(t *testing.T) {
	// Arrange - 3 miners with power 5 and a scout with power 0
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, _ := newService(t, db)
	seedMiningFleet(t, db, "fleet-1", time.Now().UTC(), map[string]string{
		helpers.ShipTypeMiner: "3",
		helpers.ShipTypeScout: "1",
	})

	// Act
	service.ScheduleMiningFinish("fleet-1", time.Now().UTC())

	// Assert
	require.Eventually(t, func() bool {
		return currentAction(db, "fleet-1") == "idling"
	}, 2*time.Second, 10*time.Millisecond)

	qty, _ := helpers.InventoryQuantity(t, db, "fleet-1-inv", helpers.ResourceIron)
	assert.Equal(t, "15", qty)

	state := fleetState(t, db, "fleet-1")
	assert.Nil(t, state.MiningResourceID)
	assert.Nil(t, state.MiningFinishTime)
}

func TestCompletion_StaleArrivalIsDropped(t *testing.T) {
	// Arrange - the fleet is idling, not traveling
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, sched := newService(t, db)
	helpers.CreateIdleFleet(t, db, "fleet-1", helpers.SystemSol, map[string]string{
		helpers.ShipTypeMiner: "1",
	})

	// Act
	service.ScheduleFleetArrival("fleet-1", time.Now().UTC())

	// Assert - nothing changes, the fire is swallowed
	require.Eventually(t, func() bool {
		return sched.PendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	state := fleetState(t, db, "fleet-1")
	assert.Equal(t, "idling", state.CurrentAction)
	assert.Equal(t, helpers.SystemSol, state.LocationSystemID)
}

func TestCompletion_ArrivalForDestroyedFleetIsDropped(t *testing.T) {
	// Arrange - no fleet row at all
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, sched := newService(t, db)

	// Act
	service.ScheduleFleetArrival("fleet-gone", time.Now().UTC())

	// Assert - no panic, timer drains
	require.Eventually(t, func() bool {
		return sched.PendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCompletion_RefineryJobProducesOutputsAndDeletesJob(t *testing.T) {
	// Arrange - a job refining 3 batches of 2 iron -> 1 plate
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, _ := newService(t, db)
	moduleID, inventoryID := helpers.CreateStation(t, db, "user-1", helpers.SystemSol)

	err := db.Create(&persistence.ModuleRefineryJobModel{
		ID:          "job-1",
		ModuleID:    moduleID,
		BlueprintID: helpers.BlueprintIronPlate,
		Count:       3,
		FinishTime:  time.Now().UTC(),
	}).Error
	require.NoError(t, err)

	// Act
	service.ScheduleRefineryJobFinish("job-1", time.Now().UTC())

	// Assert - outputs credited, job row gone
	require.Eventually(t, func() bool {
		var count int64
		db.Model(&persistence.ModuleRefineryJobModel{}).Where("id = ?", "job-1").Count(&count)
		return count == 0
	}, 2*time.Second, 10*time.Millisecond)

	qty, _ := helpers.InventoryQuantity(t, db, inventoryID, helpers.ResourcePlate)
	assert.Equal(t, "3", qty)
}

func TestCompletion_RefineryJobAlreadyGoneIsDropped(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, sched := newService(t, db)

	// Act
	service.ScheduleRefineryJobFinish("job-gone", time.Now().UTC())

	// Assert
	require.Eventually(t, func() bool {
		return sched.PendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCompletion_RecoverPendingResolvesPastDueActions(t *testing.T) {
	// Arrange - persisted state encodes three pending completions, all past due
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, _ := newService(t, db)

	pastDue := time.Now().UTC().Add(-time.Minute)
	seedTravelingFleet(t, db, "fleet-t", pastDue)
	seedMiningFleet(t, db, "fleet-m", pastDue, map[string]string{helpers.ShipTypeMiner: "2"})

	moduleID, inventoryID := helpers.CreateStation(t, db, "user-1", helpers.SystemSol)
	err := db.Create(&persistence.ModuleRefineryJobModel{
		ID:          "job-1",
		ModuleID:    moduleID,
		BlueprintID: helpers.BlueprintIronPlate,
		Count:       1,
		FinishTime:  pastDue,
	}).Error
	require.NoError(t, err)

	// Act - what boot does after connecting
	require.NoError(t, service.RecoverPending(context.Background()))

	// Assert - all three completions resolve
	require.Eventually(t, func() bool {
		if currentAction(db, "fleet-t") != "idling" {
			return false
		}
		if currentAction(db, "fleet-m") != "idling" {
			return false
		}
		var count int64
		db.Model(&persistence.ModuleRefineryJobModel{}).Where("id = ?", "job-1").Count(&count)
		return count == 0
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, helpers.SystemVega, fleetState(t, db, "fleet-t").LocationSystemID)
	qtyIron, _ := helpers.InventoryQuantity(t, db, "fleet-m-inv", helpers.ResourceIron)
	assert.Equal(t, "10", qtyIron)
	qtyPlate, _ := helpers.InventoryQuantity(t, db, inventoryID, helpers.ResourcePlate)
	assert.Equal(t, "1", qtyPlate)
}

func TestCompletion_RecoverPendingTwiceResolvesOnce(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	helpers.SeedStaticData(t, db)
	service, _ := newService(t, db)
	seedMiningFleet(t, db, "fleet-1", time.Now().UTC().Add(-time.Minute), map[string]string{
		helpers.ShipTypeMiner: "2",
	})

	// Act - a second scan before the first fire replaces the same key; after
	// resolution a third scan finds nothing pending
	require.NoError(t, service.RecoverPending(context.Background()))
	require.NoError(t, service.RecoverPending(context.Background()))

	require.Eventually(t, func() bool {
		return currentAction(db, "fleet-1") == "idling"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, service.RecoverPending(context.Background()))
	time.Sleep(50 * time.Millisecond)

	// Assert - the credit happened exactly once
	qty, _ := helpers.InventoryQuantity(t, db, "fleet-1-inv", helpers.ResourceIron)
	assert.Equal(t, "10", qty)
}
