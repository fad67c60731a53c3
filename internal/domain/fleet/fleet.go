package fleet

import (
	"time"

	"github.com/longwelwind/spacebo-go/internal/domain/shared"
)

// Action is the long-running activity a fleet is engaged in. It gates which
// fields of the fleet are populated and which completion is pending.
type Action string

const (
	ActionIdling    Action = "idling"
	ActionTraveling Action = "traveling"
	ActionMining    Action = "mining"
)

// Fleet is a group of ships owned by a user (or abandoned), located in a
// system, performing at most one action at a time.
//
// Invariant: exactly the fields relevant to the current action are set; all
// others are nil. A fleet with no ship records left is destroyed by the ship
// ledger, not by this entity.
type Fleet struct {
	id               string
	ownerUserID      *string
	locationSystemID string
	inventoryID      string
	action           Action

	travelingFromSystemID *string
	travelingToSystemID   *string
	departureTime         *time.Time
	arrivalTime           *time.Time

	miningResourceID *string
	miningFinishTime *time.Time
}

// NewFleet creates an idle fleet at the given location.
func NewFleet(id string, ownerUserID *string, locationSystemID, inventoryID string) *Fleet {
	return &Fleet{
		id:               id,
		ownerUserID:      ownerUserID,
		locationSystemID: locationSystemID,
		inventoryID:      inventoryID,
		action:           ActionIdling,
	}
}

func (f *Fleet) ID() string                     { return f.id }
func (f *Fleet) OwnerUserID() *string           { return f.ownerUserID }
func (f *Fleet) LocationSystemID() string       { return f.locationSystemID }
func (f *Fleet) InventoryID() string            { return f.inventoryID }
func (f *Fleet) Action() Action                 { return f.action }
func (f *Fleet) TravelingFromSystemID() *string { return f.travelingFromSystemID }
func (f *Fleet) TravelingToSystemID() *string   { return f.travelingToSystemID }
func (f *Fleet) DepartureTime() *time.Time      { return f.departureTime }
func (f *Fleet) ArrivalTime() *time.Time        { return f.arrivalTime }
func (f *Fleet) MiningResourceID() *string      { return f.miningResourceID }
func (f *Fleet) MiningFinishTime() *time.Time   { return f.miningFinishTime }

// IsIdling reports whether the fleet can accept a new action.
func (f *Fleet) IsIdling() bool {
	return f.action == ActionIdling
}

// StartTravel transitions idling -> traveling toward the destination system.
func (f *Fleet) StartTravel(destinationSystemID string, departure, arrival time.Time) error {
	if f.action != ActionIdling {
		return shared.NewInvalidActionError(f.id, string(f.action), "start traveling")
	}

	from := f.locationSystemID
	f.action = ActionTraveling
	f.travelingFromSystemID = &from
	f.travelingToSystemID = &destinationSystemID
	f.departureTime = &departure
	f.arrivalTime = &arrival
	return nil
}

// Arrive transitions traveling -> idling at the destination. Returns a stale
// state error if the fleet is no longer traveling: the completion was already
// resolved or the persisted state changed under a racing fire.
func (f *Fleet) Arrive() error {
	if f.action != ActionTraveling {
		return shared.NewStaleActionStateError(f.id, string(ActionTraveling), string(f.action))
	}
	if f.travelingToSystemID == nil {
		return shared.NewMissingReferenceError("travel destination of fleet", f.id)
	}

	f.locationSystemID = *f.travelingToSystemID
	f.action = ActionIdling
	f.travelingFromSystemID = nil
	f.travelingToSystemID = nil
	f.departureTime = nil
	f.arrivalTime = nil
	return nil
}

// StartMining transitions idling -> mining the given resource.
func (f *Fleet) StartMining(resourceID string, finish time.Time) error {
	if f.action != ActionIdling {
		return shared.NewInvalidActionError(f.id, string(f.action), "start mining")
	}

	f.action = ActionMining
	f.miningResourceID = &resourceID
	f.miningFinishTime = &finish
	return nil
}

// FinishMining transitions mining -> idling, returning the mined resource id.
func (f *Fleet) FinishMining() (string, error) {
	if f.action != ActionMining {
		return "", shared.NewStaleActionStateError(f.id, string(ActionMining), string(f.action))
	}
	if f.miningResourceID == nil {
		return "", shared.NewMissingReferenceError("mining resource of fleet", f.id)
	}

	resourceID := *f.miningResourceID
	f.action = ActionIdling
	f.miningResourceID = nil
	f.miningFinishTime = nil
	return resourceID, nil
}

// Data is the DTO for persisting fleets.
type Data struct {
	ID                    string
	OwnerUserID           *string
	LocationSystemID      string
	InventoryID           string
	Action                string
	TravelingFromSystemID *string
	TravelingToSystemID   *string
	DepartureTime         *time.Time
	ArrivalTime           *time.Time
	MiningResourceID      *string
	MiningFinishTime      *time.Time
}

// ToData converts the entity to a DTO for persistence.
func (f *Fleet) ToData() *Data {
	return &Data{
		ID:                    f.id,
		OwnerUserID:           f.ownerUserID,
		LocationSystemID:      f.locationSystemID,
		InventoryID:           f.inventoryID,
		Action:                string(f.action),
		TravelingFromSystemID: f.travelingFromSystemID,
		TravelingToSystemID:   f.travelingToSystemID,
		DepartureTime:         f.departureTime,
		ArrivalTime:           f.arrivalTime,
		MiningResourceID:      f.miningResourceID,
		MiningFinishTime:      f.miningFinishTime,
	}
}

// FromData reconstructs a Fleet entity from persisted data.
func FromData(data *Data) *Fleet {
	return &Fleet{
		id:                    data.ID,
		ownerUserID:           data.OwnerUserID,
		locationSystemID:      data.LocationSystemID,
		inventoryID:           data.InventoryID,
		action:                Action(data.Action),
		travelingFromSystemID: data.TravelingFromSystemID,
		travelingToSystemID:   data.TravelingToSystemID,
		departureTime:         data.DepartureTime,
		arrivalTime:           data.ArrivalTime,
		miningResourceID:      data.MiningResourceID,
		miningFinishTime:      data.MiningFinishTime,
	}
}
