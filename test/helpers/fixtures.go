package helpers

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/adapters/persistence"
	"github.com/longwelwind/spacebo-go/internal/domain/staticdata"
)

// Ids of the static fixture universe, shared by most integration tests.
const (
	ShipTypeMiner = "miner"
	ShipTypeScout = "scout"

	ResourceIron  = "iron"
	ResourcePlate = "plate"

	SystemSol   = "sol"
	SystemVega  = "vega"
	SystemRigel = "rigel"

	BlueprintIronPlate = "iron-plate"
)

// SeedStaticData inserts a small fixture universe: sol (starting system, has
// iron) linked to vega, rigel off the grid, a miner and a scout ship type,
// and one blueprint refining 2 iron into 1 plate in 10 seconds.
func SeedStaticData(t *testing.T, db *gorm.DB) {
	t.Helper()

	rows := []interface{}{
		&persistence.ShipTypeModel{ID: ShipTypeMiner, Name: "Miner", MiningPower: 5},
		&persistence.ShipTypeModel{ID: ShipTypeScout, Name: "Scout", MiningPower: 0},
		&persistence.ResourceModel{ID: ResourceIron, Name: "Iron"},
		&persistence.ResourceModel{ID: ResourcePlate, Name: "Iron Plate"},
		&persistence.SystemModel{ID: SystemSol, Name: "Sol", X: 0, Y: 0, StartingSystem: true},
		&persistence.SystemModel{ID: SystemVega, Name: "Vega", X: 3, Y: 4},
		&persistence.SystemModel{ID: SystemRigel, Name: "Rigel", X: 10, Y: 0},
		&persistence.SystemLinkModel{FirstSystemID: SystemSol, SecondSystemID: SystemVega},
		&persistence.SystemResourceModel{SystemID: SystemSol, ResourceID: ResourceIron},
		&persistence.BlueprintModel{ID: BlueprintIronPlate, DurationSeconds: 10},
		&persistence.BlueprintInputResourceModel{BlueprintID: BlueprintIronPlate, ResourceID: ResourceIron, Quantity: 2},
		&persistence.BlueprintOutputResourceModel{BlueprintID: BlueprintIronPlate, ResourceID: ResourcePlate, Quantity: 1},
	}
	for _, row := range rows {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("failed to seed static data: %v", err)
		}
	}
}

// LoadTestCatalog loads the seeded static data into a catalog.
func LoadTestCatalog(t *testing.T, db *gorm.DB) *staticdata.Catalog {
	t.Helper()

	catalog, err := persistence.NewGormStaticDataRepository(db).LoadCatalog(context.Background())
	if err != nil {
		t.Fatalf("failed to load test catalog: %v", err)
	}
	return catalog
}

// CreateUser inserts a user row.
func CreateUser(t *testing.T, db *gorm.DB, id string) {
	t.Helper()

	if err := db.Create(&persistence.UserModel{ID: id, Name: id, Token: "token-" + id}).Error; err != nil {
		t.Fatalf("failed to create user %s: %v", id, err)
	}
}

// CreateInventory inserts an inventory anchor row.
func CreateInventory(t *testing.T, db *gorm.DB, id string) {
	t.Helper()

	if err := db.Create(&persistence.InventoryModel{ID: id}).Error; err != nil {
		t.Fatalf("failed to create inventory %s: %v", id, err)
	}
}

// CreateIdleFleet inserts an idling fleet with its inventory and the given
// ship records.
func CreateIdleFleet(t *testing.T, db *gorm.DB, fleetID, systemID string, shipCounts map[string]string) {
	t.Helper()

	CreateInventory(t, db, fleetID+"-inv")
	err := db.Create(&persistence.FleetModel{
		ID:               fleetID,
		LocationSystemID: systemID,
		InventoryID:      fleetID + "-inv",
		CurrentAction:    "idling",
	}).Error
	if err != nil {
		t.Fatalf("failed to create fleet %s: %v", fleetID, err)
	}

	for shipTypeID, quantity := range shipCounts {
		err := db.Create(&persistence.FleetShipModel{
			FleetID:    fleetID,
			ShipTypeID: shipTypeID,
			Quantity:   quantity,
		}).Error
		if err != nil {
			t.Fatalf("failed to create ship record for fleet %s: %v", fleetID, err)
		}
	}
}

// CreateStation inserts a user, their station inventory at a system and a
// refinery module, returning the module and inventory ids.
func CreateStation(t *testing.T, db *gorm.DB, userID, systemID string) (moduleID, inventoryID string) {
	t.Helper()

	CreateUser(t, db, userID)
	inventoryID = userID + "-station-inv"
	CreateInventory(t, db, inventoryID)

	err := db.Create(&persistence.StationInventoryModel{
		UserID:      userID,
		SystemID:    systemID,
		InventoryID: inventoryID,
	}).Error
	if err != nil {
		t.Fatalf("failed to create station inventory: %v", err)
	}

	moduleID = userID + "-refinery"
	err = db.Create(&persistence.ModuleModel{
		ID:           moduleID,
		UserID:       userID,
		SystemID:     systemID,
		ModuleTypeID: "refinery",
	}).Error
	if err != nil {
		t.Fatalf("failed to create module: %v", err)
	}
	return moduleID, inventoryID
}

// SetInventoryItem inserts one inventory quantity record.
func SetInventoryItem(t *testing.T, db *gorm.DB, inventoryID, resourceID, quantity string) {
	t.Helper()

	err := db.Create(&persistence.InventoryItemModel{
		InventoryID: inventoryID,
		ResourceID:  resourceID,
		Quantity:    quantity,
	}).Error
	if err != nil {
		t.Fatalf("failed to set inventory item: %v", err)
	}
}

// InventoryQuantity reads one inventory record's quantity; missing records
// read as "0" with ok=false.
func InventoryQuantity(t *testing.T, db *gorm.DB, inventoryID, resourceID string) (string, bool) {
	t.Helper()

	var rows []persistence.InventoryItemModel
	err := db.Where("inventory_id = ? AND resource_id = ?", inventoryID, resourceID).Limit(1).Find(&rows).Error
	if err != nil {
		t.Fatalf("failed to read inventory item: %v", err)
	}
	if len(rows) == 0 {
		return "0", false
	}
	return rows[0].Quantity, true
}

// ShipQuantity reads one fleet ship record's quantity; missing records read
// as "0" with ok=false.
func ShipQuantity(t *testing.T, db *gorm.DB, fleetID, shipTypeID string) (string, bool) {
	t.Helper()

	var rows []persistence.FleetShipModel
	err := db.Where("fleet_id = ? AND ship_type_id = ?", fleetID, shipTypeID).Limit(1).Find(&rows).Error
	if err != nil {
		t.Fatalf("failed to read ship record: %v", err)
	}
	if len(rows) == 0 {
		return "0", false
	}
	return rows[0].Quantity, true
}

// FleetExists reports whether a fleet row exists.
func FleetExists(t *testing.T, db *gorm.DB, fleetID string) bool {
	t.Helper()

	var count int64
	if err := db.Model(&persistence.FleetModel{}).Where("id = ?", fleetID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count fleets: %v", err)
	}
	return count > 0
}

// FutureTime is a fixed instant comfortably in the future of any test clock.
func FutureTime() time.Time {
	return time.Now().UTC().Add(time.Hour)
}
