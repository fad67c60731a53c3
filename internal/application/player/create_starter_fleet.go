package player

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/application/common"
	"github.com/longwelwind/spacebo-go/internal/domain/fleet"
	"github.com/longwelwind/spacebo-go/internal/domain/ledger"
	"github.com/longwelwind/spacebo-go/internal/domain/station"
	"github.com/longwelwind/spacebo-go/internal/domain/staticdata"
)

// CreateStarterFleetCommand provisions a new user's first fleet: a fresh
// inventory plus one starter mining ship, idling in the starting system
type CreateStarterFleetCommand struct {
	UserID string
}

// CreateStarterFleetResponse represents the result of the bootstrap
type CreateStarterFleetResponse struct {
	FleetID     string
	InventoryID string
	SystemID    string
}

// CreateStarterFleetHandler handles the CreateStarterFleet command
type CreateStarterFleetHandler struct {
	db       *gorm.DB
	fleets   fleet.Repository
	stations station.Repository
	ships    ledger.QuantityLedger
	catalog  *staticdata.Catalog

	// Ship type granted to new users
	starterShipTypeID string
}

// NewCreateStarterFleetHandler creates a new CreateStarterFleetHandler
func NewCreateStarterFleetHandler(
	db *gorm.DB,
	fleets fleet.Repository,
	stations station.Repository,
	ships ledger.QuantityLedger,
	catalog *staticdata.Catalog,
	starterShipTypeID string,
) *CreateStarterFleetHandler {
	return &CreateStarterFleetHandler{
		db:                db,
		fleets:            fleets,
		stations:          stations,
		ships:             ships,
		catalog:           catalog,
		starterShipTypeID: starterShipTypeID,
	}
}

// Handle executes the CreateStarterFleet command
func (h *CreateStarterFleetHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*CreateStarterFleetCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *CreateStarterFleetCommand")
	}

	if _, err := h.catalog.ShipType(h.starterShipTypeID); err != nil {
		return nil, err
	}
	start, err := h.catalog.StartingSystem()
	if err != nil {
		return nil, err
	}

	inventoryID := uuid.NewString()
	fleetID := uuid.NewString()

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := h.stations.CreateInventory(tx, &station.Inventory{ID: inventoryID}); err != nil {
			return err
		}

		userID := cmd.UserID
		if err := h.fleets.Create(tx, fleet.NewFleet(fleetID, &userID, start.ID, inventoryID)); err != nil {
			return err
		}

		changes := ledger.ChangeSet{}
		changes.AddInt(fleetID, h.starterShipTypeID, 1)

		applied, err := h.ships.ApplyChanges(tx, changes)
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("ship ledger rejected starter ship for fleet %s", fleetID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[player] user %s granted starter fleet %s in %s", cmd.UserID, fleetID, start.ID)

	return &CreateStarterFleetResponse{
		FleetID:     fleetID,
		InventoryID: inventoryID,
		SystemID:    start.ID,
	}, nil
}
