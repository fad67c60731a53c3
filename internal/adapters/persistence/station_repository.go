package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/domain/station"
)

// GormStationRepository implements station.Repository using GORM
type GormStationRepository struct {
	db *gorm.DB
}

// NewGormStationRepository creates a new GORM station repository
func NewGormStationRepository(db *gorm.DB) *GormStationRepository {
	return &GormStationRepository{db: db}
}

// FindJobForUpdate loads a refinery job inside the caller's transaction,
// holding its row lock until the transaction ends.
func (r *GormStationRepository) FindJobForUpdate(tx *gorm.DB, jobID string) (*station.RefineryJob, error) {
	var model ModuleRefineryJobModel
	result := withRowLock(tx).Where("id = ?", jobID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", station.ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to find refinery job: %w", result.Error)
	}

	return &station.RefineryJob{
		ID:          model.ID,
		ModuleID:    model.ModuleID,
		BlueprintID: model.BlueprintID,
		Count:       model.Count,
		FinishTime:  model.FinishTime,
	}, nil
}

// CreateJob inserts a refinery job inside the caller's transaction.
func (r *GormStationRepository) CreateJob(tx *gorm.DB, job *station.RefineryJob) error {
	model := &ModuleRefineryJobModel{
		ID:          job.ID,
		ModuleID:    job.ModuleID,
		BlueprintID: job.BlueprintID,
		Count:       job.Count,
		FinishTime:  job.FinishTime,
	}
	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("failed to create refinery job %s: %w", job.ID, err)
	}
	return nil
}

// DeleteJob removes a completed refinery job inside the caller's transaction.
func (r *GormStationRepository) DeleteJob(tx *gorm.DB, jobID string) error {
	if err := tx.Where("id = ?", jobID).Delete(&ModuleRefineryJobModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete refinery job %s: %w", jobID, err)
	}
	return nil
}

// ListJobs returns every running refinery job. Used by the boot recovery
// scan; a job row existing is what "manufacturing" means.
func (r *GormStationRepository) ListJobs(ctx context.Context) ([]*station.RefineryJob, error) {
	var models []ModuleRefineryJobModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list refinery jobs: %w", err)
	}

	jobs := make([]*station.RefineryJob, 0, len(models))
	for _, m := range models {
		jobs = append(jobs, &station.RefineryJob{
			ID:          m.ID,
			ModuleID:    m.ModuleID,
			BlueprintID: m.BlueprintID,
			Count:       m.Count,
			FinishTime:  m.FinishTime,
		})
	}
	return jobs, nil
}

// FindModule loads a module inside the caller's transaction.
func (r *GormStationRepository) FindModule(tx *gorm.DB, moduleID string) (*station.Module, error) {
	var model ModuleModel
	result := tx.Where("id = ?", moduleID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("module not found: %s", moduleID)
		}
		return nil, fmt.Errorf("failed to find module: %w", result.Error)
	}

	return &station.Module{
		ID:           model.ID,
		UserID:       model.UserID,
		SystemID:     model.SystemID,
		ModuleTypeID: model.ModuleTypeID,
	}, nil
}

// FindStationInventory loads a user's station inventory at a system, with
// its row lock held until the transaction ends.
func (r *GormStationRepository) FindStationInventory(tx *gorm.DB, userID, systemID string) (*station.StationInventory, error) {
	var model StationInventoryModel
	result := withRowLock(tx).Where("user_id = ? AND system_id = ?", userID, systemID).First(&model)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("station inventory not found for user %s at %s", userID, systemID)
		}
		return nil, fmt.Errorf("failed to find station inventory: %w", result.Error)
	}

	return &station.StationInventory{
		UserID:      model.UserID,
		SystemID:    model.SystemID,
		InventoryID: model.InventoryID,
	}, nil
}

// CreateInventory inserts an inventory anchor row inside the caller's
// transaction.
func (r *GormStationRepository) CreateInventory(tx *gorm.DB, inventory *station.Inventory) error {
	if err := tx.Create(&InventoryModel{ID: inventory.ID}).Error; err != nil {
		return fmt.Errorf("failed to create inventory %s: %w", inventory.ID, err)
	}
	return nil
}
