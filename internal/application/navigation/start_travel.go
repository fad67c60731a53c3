package navigation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/application/common"
	"github.com/longwelwind/spacebo-go/internal/application/completion"
	"github.com/longwelwind/spacebo-go/internal/domain/fleet"
	"github.com/longwelwind/spacebo-go/internal/domain/shared"
	"github.com/longwelwind/spacebo-go/internal/domain/staticdata"
)

// StartTravelCommand sends an idling fleet toward a linked system
type StartTravelCommand struct {
	FleetID             string
	DestinationSystemID string
}

// StartTravelResponse represents the result of starting travel
type StartTravelResponse struct {
	Status        string
	DepartureTime time.Time
	ArrivalTime   time.Time
	Error         string
}

// StartTravelHandler handles the StartTravel command
type StartTravelHandler struct {
	db          *gorm.DB
	fleets      fleet.Repository
	catalog     *staticdata.Catalog
	completions *completion.Service
	clock       shared.Clock

	// Fleet speed in map units per second
	speed float64
}

// NewStartTravelHandler creates a new StartTravelHandler
func NewStartTravelHandler(
	db *gorm.DB,
	fleets fleet.Repository,
	catalog *staticdata.Catalog,
	completions *completion.Service,
	clock shared.Clock,
	speed float64,
) *StartTravelHandler {
	return &StartTravelHandler{
		db:          db,
		fleets:      fleets,
		catalog:     catalog,
		completions: completions,
		clock:       clock,
		speed:       speed,
	}
}

// Handle executes the StartTravel command
func (h *StartTravelHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*StartTravelCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *StartTravelCommand")
	}

	destination, err := h.catalog.System(cmd.DestinationSystemID)
	if err != nil {
		return nil, err
	}

	var departure, arrival time.Time
	var businessErr string

	err = h.db.Transaction(func(tx *gorm.DB) error {
		f, err := h.fleets.FindForUpdate(tx, cmd.FleetID)
		if err != nil {
			return err
		}

		if !h.catalog.Linked(f.LocationSystemID(), cmd.DestinationSystemID) {
			businessErr = fmt.Sprintf("system %s is not linked to %s", cmd.DestinationSystemID, f.LocationSystemID())
			return nil
		}

		origin, err := h.catalog.System(f.LocationSystemID())
		if err != nil {
			return err
		}

		departure = h.clock.Now()
		arrival = departure.Add(h.travelDuration(origin, destination))

		if err := f.StartTravel(cmd.DestinationSystemID, departure, arrival); err != nil {
			var invalid *shared.InvalidActionError
			if errors.As(err, &invalid) {
				businessErr = err.Error()
				return nil
			}
			return err
		}

		return h.fleets.Save(tx, f)
	})
	if err != nil {
		return nil, err
	}
	if businessErr != "" {
		return &StartTravelResponse{Status: "error", Error: businessErr}, nil
	}

	// The fleet is committed as traveling; the timer only resolves it.
	h.completions.ScheduleFleetArrival(cmd.FleetID, arrival)

	log.Printf("[navigation] fleet %s traveling to %s, arrival %s", cmd.FleetID, cmd.DestinationSystemID, arrival.Format(time.RFC3339))

	return &StartTravelResponse{
		Status:        "traveling",
		DepartureTime: departure,
		ArrivalTime:   arrival,
	}, nil
}

// travelDuration is distance over speed, in wall-clock time.
func (h *StartTravelHandler) travelDuration(origin, destination *staticdata.System) time.Duration {
	seconds := staticdata.Distance(origin, destination) / h.speed
	return time.Duration(seconds * float64(time.Second))
}
