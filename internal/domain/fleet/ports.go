package fleet

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound reports a fleet id with no row, e.g. a fleet destroyed while a
// completion for it was still pending.
var ErrNotFound = errors.New("fleet not found")

// Repository persists fleets.
//
// Methods taking a *gorm.DB operate inside the caller's transaction;
// FindForUpdate acquires the fleet's row lock, which is the only guard
// against two completion fires (or a fire racing a command) mutating the
// same fleet concurrently.
type Repository interface {
	FindForUpdate(tx *gorm.DB, fleetID string) (*Fleet, error)
	Save(tx *gorm.DB, fleet *Fleet) error
	Create(tx *gorm.DB, fleet *Fleet) error
	ListByAction(ctx context.Context, action Action) ([]*Fleet, error)
}

// Composition is one ship-count record of a fleet, read for effect
// computation (e.g. total mining power).
type Composition struct {
	ShipTypeID string
	Quantity   string
}

// CompositionReader loads a fleet's ship records inside a transaction.
type CompositionReader interface {
	ListComposition(tx *gorm.DB, fleetID string) ([]Composition, error)
}
