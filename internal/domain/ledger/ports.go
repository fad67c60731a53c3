package ledger

import "gorm.io/gorm"

// QuantityLedger atomically applies a ChangeSet of counter mutations inside
// the caller's transaction.
//
// The boolean result reports the business outcome: false means at least one
// decrement would have driven a counter negative, and nothing was applied.
// The error reports store failures; when it is non-nil the caller must roll
// the transaction back.
type QuantityLedger interface {
	ApplyChanges(tx *gorm.DB, changes ChangeSet) (bool, error)
}
