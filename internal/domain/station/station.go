package station

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrJobNotFound reports a refinery job id with no row. A completion firing
// for an already-deleted job treats this as stale, not as a failure.
var ErrJobNotFound = errors.New("refinery job not found")

// Module is a production facility owned by a user at a system's station.
type Module struct {
	ID           string
	UserID       string
	SystemID     string
	ModuleTypeID string
}

// RefineryJob is a running manufacturing batch on a module. Its existence is
// what marks the module as manufacturing: the job row is created when the
// batch starts and deleted when it completes.
type RefineryJob struct {
	ID          string
	ModuleID    string
	BlueprintID string
	Count       int64
	FinishTime  time.Time
}

// Inventory anchors a set of resource quantity records.
type Inventory struct {
	ID string
}

// StationInventory is a user's cargo space at a system's station.
type StationInventory struct {
	UserID      string
	SystemID    string
	InventoryID string
}

// Repository persists modules, refinery jobs and station inventories.
// Methods taking a *gorm.DB operate inside the caller's transaction.
type Repository interface {
	FindJobForUpdate(tx *gorm.DB, jobID string) (*RefineryJob, error)
	CreateJob(tx *gorm.DB, job *RefineryJob) error
	DeleteJob(tx *gorm.DB, jobID string) error
	ListJobs(ctx context.Context) ([]*RefineryJob, error)
	FindModule(tx *gorm.DB, moduleID string) (*Module, error)
	FindStationInventory(tx *gorm.DB, userID, systemID string) (*StationInventory, error)
	CreateInventory(tx *gorm.DB, inventory *Inventory) error
}
