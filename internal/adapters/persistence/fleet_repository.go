package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/domain/fleet"
)

// GormFleetRepository implements fleet.Repository and fleet.CompositionReader
// using GORM.
type GormFleetRepository struct {
	db *gorm.DB
}

// NewGormFleetRepository creates a new GORM fleet repository
func NewGormFleetRepository(db *gorm.DB) *GormFleetRepository {
	return &GormFleetRepository{db: db}
}

// FindForUpdate loads a fleet inside the caller's transaction, holding its
// row lock until the transaction ends.
func (r *GormFleetRepository) FindForUpdate(tx *gorm.DB, fleetID string) (*fleet.Fleet, error) {
	var model FleetModel
	result := withRowLock(tx).Where("id = ?", fleetID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", fleet.ErrNotFound, fleetID)
		}
		return nil, fmt.Errorf("failed to find fleet: %w", result.Error)
	}

	return modelToFleet(&model), nil
}

// Save persists a fleet's current state inside the caller's transaction.
func (r *GormFleetRepository) Save(tx *gorm.DB, f *fleet.Fleet) error {
	model := fleetToModel(f)
	// Save with Select("*") so cleared action fields are written back as NULL
	// instead of being skipped as zero values.
	if err := tx.Model(&FleetModel{}).Where("id = ?", model.ID).Select("*").Updates(model).Error; err != nil {
		return fmt.Errorf("failed to save fleet %s: %w", f.ID(), err)
	}
	return nil
}

// Create inserts a new fleet inside the caller's transaction.
func (r *GormFleetRepository) Create(tx *gorm.DB, f *fleet.Fleet) error {
	if err := tx.Create(fleetToModel(f)).Error; err != nil {
		return fmt.Errorf("failed to create fleet %s: %w", f.ID(), err)
	}
	return nil
}

// ListByAction returns every fleet currently in the given action. Used by the
// boot recovery scan to re-derive pending completions.
func (r *GormFleetRepository) ListByAction(ctx context.Context, action fleet.Action) ([]*fleet.Fleet, error) {
	var models []FleetModel
	result := r.db.WithContext(ctx).Where("current_action = ?", string(action)).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list %s fleets: %w", action, result.Error)
	}

	fleets := make([]*fleet.Fleet, 0, len(models))
	for i := range models {
		fleets = append(fleets, modelToFleet(&models[i]))
	}
	return fleets, nil
}

// ListComposition returns a fleet's ship records inside the caller's
// transaction.
func (r *GormFleetRepository) ListComposition(tx *gorm.DB, fleetID string) ([]fleet.Composition, error) {
	var models []FleetShipModel
	if err := tx.Where("fleet_id = ?", fleetID).Order("ship_type_id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list composition of fleet %s: %w", fleetID, err)
	}

	composition := make([]fleet.Composition, 0, len(models))
	for _, m := range models {
		composition = append(composition, fleet.Composition{
			ShipTypeID: m.ShipTypeID,
			Quantity:   m.Quantity,
		})
	}
	return composition, nil
}

func modelToFleet(model *FleetModel) *fleet.Fleet {
	return fleet.FromData(&fleet.Data{
		ID:                    model.ID,
		OwnerUserID:           model.OwnerUserID,
		LocationSystemID:      model.LocationSystemID,
		InventoryID:           model.InventoryID,
		Action:                model.CurrentAction,
		TravelingFromSystemID: model.TravelingFromSystemID,
		TravelingToSystemID:   model.TravelingToSystemID,
		DepartureTime:         model.DepartureTime,
		ArrivalTime:           model.ArrivalTime,
		MiningResourceID:      model.MiningResourceID,
		MiningFinishTime:      model.MiningFinishTime,
	})
}

func fleetToModel(f *fleet.Fleet) *FleetModel {
	data := f.ToData()
	return &FleetModel{
		ID:                    data.ID,
		OwnerUserID:           data.OwnerUserID,
		LocationSystemID:      data.LocationSystemID,
		InventoryID:           data.InventoryID,
		CurrentAction:         data.Action,
		TravelingFromSystemID: data.TravelingFromSystemID,
		TravelingToSystemID:   data.TravelingToSystemID,
		DepartureTime:         data.DepartureTime,
		ArrivalTime:           data.ArrivalTime,
		MiningResourceID:      data.MiningResourceID,
		MiningFinishTime:      data.MiningFinishTime,
	}
}
