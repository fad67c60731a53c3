package mining

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

// StartMiningCommand puts an idling fleet to work mining a resource present
// in its current system
type StartMiningCommand struct {
	FleetID    string
	ResourceID string
}

// StartMiningResponse represents the result of starting mining
type StartMiningResponse struct {
	Status     string
	FinishTime time.Time
	Error      string
}

// StartMiningHandler handles the StartMining command
type StartMiningHandler struct {
	db          *gorm.DB
	fleets      fleet.Repository
	catalog     *staticdata.Catalog
	completions *completion.Service
	clock       shared.Clock
	duration    time.Duration
}

// NewStartMiningHandler creates a new StartMiningHandler
func NewStartMiningHandler(
	db *gorm.DB,
	fleets fleet.Repository,
	catalog *staticdata.Catalog,
	completions *completion.Service,
	clock shared.Clock,
	duration time.Duration,
) *StartMiningHandler {
	return &StartMiningHandler{
		db:          db,
		fleets:      fleets,
		catalog:     catalog,
		completions: completions,
		clock:       clock,
		duration:    duration,
	}
}

// Handle executes the StartMining command
func (h *StartMiningHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*StartMiningCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *StartMiningCommand")
	}

	if _, err := h.catalog.Resource(cmd.ResourceID); err != nil {
		return nil, err
	}

	var finish time.Time
	var businessErr string

	err := h.db.Transaction(func(tx *gorm.DB) error {
		f, err := h.fleets.FindForUpdate(tx, cmd.FleetID)
		if err != nil {
			return err
		}

		system, err := h.catalog.System(f.LocationSystemID())
		if err != nil {
			return err
		}
		if !system.HasResource(cmd.ResourceID) {
			businessErr = fmt.Sprintf("resource %s is not present in system %s", cmd.ResourceID, system.ID)
			return nil
		}

		finish = h.clock.Now().Add(h.duration)

		if err := f.StartMining(cmd.ResourceID, finish); err != nil {
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
		return &StartMiningResponse{Status: "error", Error: businessErr}, nil
	}

	h.completions.ScheduleMiningFinish(cmd.FleetID, finish)

	log.Printf("[mining] fleet %s mining %s until %s", cmd.FleetID, cmd.ResourceID, finish.Format(time.RFC3339))

	return &StartMiningResponse{
		Status:     "mining",
		FinishTime: finish,
	}, nil
}
