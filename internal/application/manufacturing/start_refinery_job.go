package manufacturing

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/adapters/metrics"
	"github.com/longwelwind/spacebo-go/internal/application/common"
	"github.com/longwelwind/spacebo-go/internal/application/completion"
	"github.com/longwelwind/spacebo-go/internal/domain/ledger"
	"github.com/longwelwind/spacebo-go/internal/domain/shared"
	"github.com/longwelwind/spacebo-go/internal/domain/station"
	"github.com/longwelwind/spacebo-go/internal/domain/staticdata"
)

// StartRefineryJobCommand starts a manufacturing batch on a refinery module.
// The blueprint's inputs times Count are consumed from the owner's station
// inventory up front; the outputs are produced when the job completes.
type StartRefineryJobCommand struct {
	ModuleID    string
	BlueprintID string
	Count       int64
}

// StartRefineryJobResponse represents the result of starting a refinery job
type StartRefineryJobResponse struct {
	Status     string
	JobID      string
	FinishTime time.Time
	Error      string
}

// StartRefineryJobHandler handles the StartRefineryJob command
type StartRefineryJobHandler struct {
	db          *gorm.DB
	stations    station.Repository
	catalog     *staticdata.Catalog
	inventory   ledger.QuantityLedger
	completions *completion.Service
	clock       shared.Clock
}

// NewStartRefineryJobHandler creates a new StartRefineryJobHandler
func NewStartRefineryJobHandler(
	db *gorm.DB,
	stations station.Repository,
	catalog *staticdata.Catalog,
	inventory ledger.QuantityLedger,
	completions *completion.Service,
	clock shared.Clock,
) *StartRefineryJobHandler {
	return &StartRefineryJobHandler{
		db:          db,
		stations:    stations,
		catalog:     catalog,
		inventory:   inventory,
		completions: completions,
		clock:       clock,
	}
}

// Handle executes the StartRefineryJob command
func (h *StartRefineryJobHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*StartRefineryJobCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *StartRefineryJobCommand")
	}

	if cmd.Count <= 0 {
		return &StartRefineryJobResponse{Status: "error", Error: "count must be positive"}, nil
	}

	blueprint, err := h.catalog.Blueprint(cmd.BlueprintID)
	if err != nil {
		return nil, err
	}

	var jobID string
	var finish time.Time
	var businessErr string

	err = h.db.Transaction(func(tx *gorm.DB) error {
		module, err := h.stations.FindModule(tx, cmd.ModuleID)
		if err != nil {
			return err
		}

		stationInv, err := h.stations.FindStationInventory(tx, module.UserID, module.SystemID)
		if err != nil {
			return err
		}

		// Consume all inputs up front; the outputs land at completion.
		count := big.NewInt(cmd.Count)
		changes := ledger.ChangeSet{}
		for resourceID, quantity := range blueprint.Inputs {
			changes.Add(stationInv.InventoryID, resourceID, new(big.Int).Neg(new(big.Int).Mul(big.NewInt(quantity), count)))
		}

		applied, err := h.inventory.ApplyChanges(tx, changes)
		if err != nil {
			return err
		}
		if !applied {
			metrics.RecordLedgerRejection("inventory")
			businessErr = fmt.Sprintf("insufficient inputs for blueprint %s x%d", cmd.BlueprintID, cmd.Count)
			return nil
		}

		jobID = uuid.NewString()
		finish = h.clock.Now().Add(time.Duration(cmd.Count) * blueprint.Duration)

		return h.stations.CreateJob(tx, &station.RefineryJob{
			ID:          jobID,
			ModuleID:    cmd.ModuleID,
			BlueprintID: cmd.BlueprintID,
			Count:       cmd.Count,
			FinishTime:  finish,
		})
	})
	if err != nil {
		return nil, err
	}
	if businessErr != "" {
		return &StartRefineryJobResponse{Status: "error", Error: businessErr}, nil
	}

	h.completions.ScheduleRefineryJobFinish(jobID, finish)

	log.Printf("[manufacturing] refinery job %s started on module %s (%s x%d), finish %s",
		jobID, cmd.ModuleID, cmd.BlueprintID, cmd.Count, finish.Format(time.RFC3339))

	return &StartRefineryJobResponse{
		Status:     "manufacturing",
		JobID:      jobID,
		FinishTime: finish,
	}, nil
}
