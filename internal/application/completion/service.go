package completion

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"gorm.io/gorm"

	"github.com/longwelwind/spacebo-go/internal/adapters/metrics"
	"github.com/longwelwind/spacebo-go/internal/application/scheduler"
	"github.com/longwelwind/spacebo-go/internal/domain/fleet"
	"github.com/longwelwind/spacebo-go/internal/domain/ledger"
	"github.com/longwelwind/spacebo-go/internal/domain/shared"
	"github.com/longwelwind/spacebo-go/internal/domain/station"
	"github.com/longwelwind/spacebo-go/internal/domain/staticdata"
)

// Service resolves the delayed completion of long-running actions: fleet
// arrivals, mining finishes and refinery job finishes.
//
// Every completion runs the same template: open a transaction, row-lock the
// entity, re-validate that it is still in the action the task was scheduled
// for, apply the effect through the ledgers, clear the action, commit. A
// stale entity (already resolved, or destroyed) makes the fire a logged
// no-op. A store failure rolls everything back; the persisted state still
// encodes the pending completion, so the reconciliation sweep retries it.
type Service struct {
	db        *gorm.DB
	fleets    fleet.Repository
	ships     fleet.CompositionReader
	stations  station.Repository
	catalog   *staticdata.Catalog
	inventory ledger.QuantityLedger
	sched     *scheduler.Scheduler
}

// NewService creates a completion service.
func NewService(
	db *gorm.DB,
	fleets fleet.Repository,
	ships fleet.CompositionReader,
	stations station.Repository,
	catalog *staticdata.Catalog,
	inventory ledger.QuantityLedger,
	sched *scheduler.Scheduler,
) *Service {
	return &Service{
		db:        db,
		fleets:    fleets,
		ships:     ships,
		stations:  stations,
		catalog:   catalog,
		inventory: inventory,
		sched:     sched,
	}
}

// A fleet has at most one action, so one scheduler key per fleet covers both
// arrival and mining finish.
func fleetKey(fleetID string) string {
	return "fleet:" + fleetID
}

func jobKey(jobID string) string {
	return "job:" + jobID
}

// ScheduleFleetArrival registers the arrival completion of a traveling fleet.
func (s *Service) ScheduleFleetArrival(fleetID string, at time.Time) {
	s.sched.Schedule(fleetKey(fleetID), at, func(traceID string) {
		s.completeFleetArrival(traceID, fleetID)
	})
}

// ScheduleMiningFinish registers the mining completion of a mining fleet.
func (s *Service) ScheduleMiningFinish(fleetID string, at time.Time) {
	s.sched.Schedule(fleetKey(fleetID), at, func(traceID string) {
		s.completeMiningFinish(traceID, fleetID)
	})
}

// ScheduleRefineryJobFinish registers the completion of a refinery job.
func (s *Service) ScheduleRefineryJobFinish(jobID string, at time.Time) {
	s.sched.Schedule(jobKey(jobID), at, func(traceID string) {
		s.completeRefineryJob(traceID, jobID)
	})
}

func (s *Service) completeFleetArrival(traceID, fleetID string) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		f, err := s.fleets.FindForUpdate(tx, fleetID)
		if err != nil {
			if errors.Is(err, fleet.ErrNotFound) {
				log.Printf("[completion] [%s] fleet %s destroyed before arrival, dropping", traceID, fleetID)
				return nil
			}
			return err
		}

		if err := f.Arrive(); err != nil {
			var stale *shared.StaleActionStateError
			if errors.As(err, &stale) {
				log.Printf("[completion] [%s] fleet %s is %s, arrival already resolved, dropping", traceID, fleetID, stale.Actual)
				return nil
			}
			return err
		}

		if err := s.fleets.Save(tx, f); err != nil {
			return err
		}

		log.Printf("[completion] [%s] fleet %s arrived at %s", traceID, fleetID, f.LocationSystemID())
		return nil
	})
	if err != nil {
		metrics.RecordCompletion("arrival", false)
		log.Printf("[completion] [%s] fleet %s arrival failed: %v", traceID, fleetID, err)
		return
	}
	metrics.RecordCompletion("arrival", true)
}

func (s *Service) completeMiningFinish(traceID, fleetID string) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		f, err := s.fleets.FindForUpdate(tx, fleetID)
		if err != nil {
			if errors.Is(err, fleet.ErrNotFound) {
				log.Printf("[completion] [%s] fleet %s destroyed before mining finish, dropping", traceID, fleetID)
				return nil
			}
			return err
		}

		resourceID, err := f.FinishMining()
		if err != nil {
			var stale *shared.StaleActionStateError
			if errors.As(err, &stale) {
				log.Printf("[completion] [%s] fleet %s is %s, mining already resolved, dropping", traceID, fleetID, stale.Actual)
				return nil
			}
			return err
		}

		mined, err := s.minedQuantity(tx, fleetID)
		if err != nil {
			return err
		}

		if mined.Sign() > 0 {
			changes := ledger.ChangeSet{}
			changes.Add(f.InventoryID(), resourceID, mined)
			ok, err := s.inventory.ApplyChanges(tx, changes)
			if err != nil {
				return err
			}
			if !ok {
				// Crediting cannot drive a quantity negative.
				return fmt.Errorf("inventory ledger rejected mining credit for fleet %s", fleetID)
			}
		}

		if err := s.fleets.Save(tx, f); err != nil {
			return err
		}

		log.Printf("[completion] [%s] fleet %s mined %s %s", traceID, fleetID, mined.String(), resourceID)
		return nil
	})
	if err != nil {
		metrics.RecordCompletion("mining", false)
		log.Printf("[completion] [%s] fleet %s mining finish failed: %v", traceID, fleetID, err)
		return
	}
	metrics.RecordCompletion("mining", true)
}

// minedQuantity is the sum over the fleet's ships of mining power times ship
// count.
func (s *Service) minedQuantity(tx *gorm.DB, fleetID string) (*big.Int, error) {
	composition, err := s.ships.ListComposition(tx, fleetID)
	if err != nil {
		return nil, err
	}

	mined := new(big.Int)
	for _, record := range composition {
		shipType, err := s.catalog.ShipType(record.ShipTypeID)
		if err != nil {
			return nil, err
		}

		count, ok := new(big.Int).SetString(record.Quantity, 10)
		if !ok {
			return nil, fmt.Errorf("corrupt ship count %q for fleet %s", record.Quantity, fleetID)
		}

		mined.Add(mined, count.Mul(count, big.NewInt(shipType.MiningPower)))
	}
	return mined, nil
}

func (s *Service) completeRefineryJob(traceID, jobID string) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		job, err := s.stations.FindJobForUpdate(tx, jobID)
		if err != nil {
			if errors.Is(err, station.ErrJobNotFound) {
				log.Printf("[completion] [%s] refinery job %s already resolved, dropping", traceID, jobID)
				return nil
			}
			return err
		}

		module, err := s.stations.FindModule(tx, job.ModuleID)
		if err != nil {
			return err
		}

		blueprint, err := s.catalog.Blueprint(job.BlueprintID)
		if err != nil {
			return err
		}

		stationInv, err := s.stations.FindStationInventory(tx, module.UserID, module.SystemID)
		if err != nil {
			return err
		}

		count := big.NewInt(job.Count)
		changes := ledger.ChangeSet{}
		for resourceID, quantity := range blueprint.Outputs {
			changes.Add(stationInv.InventoryID, resourceID, new(big.Int).Mul(big.NewInt(quantity), count))
		}

		ok, err := s.inventory.ApplyChanges(tx, changes)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("inventory ledger rejected refinery output for job %s", jobID)
		}

		if err := s.stations.DeleteJob(tx, jobID); err != nil {
			return err
		}

		log.Printf("[completion] [%s] refinery job %s produced %s x%d", traceID, jobID, blueprint.ID, job.Count)
		return nil
	})
	if err != nil {
		metrics.RecordCompletion("refinery", false)
		log.Printf("[completion] [%s] refinery job %s finish failed: %v", traceID, jobID, err)
		return
	}
	metrics.RecordCompletion("refinery", true)
}

// RecoverPending re-derives every pending completion from persisted entity
// state and schedules it. Run once at boot, before accepting commands, and
// periodically by the reconciliation sweep. Past-due completions fire
// immediately; a scan racing a live timer is harmless because scheduling
// replaces the key and every fire re-validates under the row lock.
func (s *Service) RecoverPending(ctx context.Context) error {
	recovered := 0

	traveling, err := s.fleets.ListByAction(ctx, fleet.ActionTraveling)
	if err != nil {
		return err
	}
	for _, f := range traveling {
		if f.ArrivalTime() == nil {
			log.Printf("[completion] traveling fleet %s has no arrival time, skipping", f.ID())
			continue
		}
		s.ScheduleFleetArrival(f.ID(), *f.ArrivalTime())
		recovered++
	}

	mining, err := s.fleets.ListByAction(ctx, fleet.ActionMining)
	if err != nil {
		return err
	}
	for _, f := range mining {
		if f.MiningFinishTime() == nil {
			log.Printf("[completion] mining fleet %s has no finish time, skipping", f.ID())
			continue
		}
		s.ScheduleMiningFinish(f.ID(), *f.MiningFinishTime())
		recovered++
	}

	jobs, err := s.stations.ListJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.ScheduleRefineryJobFinish(job.ID, job.FinishTime)
		recovered++
	}

	if recovered > 0 {
		metrics.RecordRecoveredTasks(recovered)
		log.Printf("[completion] recovered %d pending completions (%d arrivals, %d mining, %d refinery jobs)",
			recovered, len(traveling), len(mining), len(jobs))
	}
	return nil
}

// Sweep is the reconciliation pass run by the scheduler's background
// sweeper.
func (s *Service) Sweep() {
	if err := s.RecoverPending(context.Background()); err != nil {
		log.Printf("[completion] reconciliation sweep failed: %v", err)
	}
}
