package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/longwelwind/spacebo-go/internal/adapters/metrics"
	"github.com/longwelwind/spacebo-go/internal/adapters/persistence"
	"github.com/longwelwind/spacebo-go/internal/application/common"
	"github.com/longwelwind/spacebo-go/internal/application/completion"
	"github.com/longwelwind/spacebo-go/internal/application/manufacturing"
	"github.com/longwelwind/spacebo-go/internal/application/mining"
	"github.com/longwelwind/spacebo-go/internal/application/navigation"
	"github.com/longwelwind/spacebo-go/internal/application/player"
	"github.com/longwelwind/spacebo-go/internal/application/scheduler"
	"github.com/longwelwind/spacebo-go/internal/domain/shared"
	"github.com/longwelwind/spacebo-go/internal/infrastructure/config"
	"github.com/longwelwind/spacebo-go/internal/infrastructure/database"
)

// Ship type granted by the starter fleet bootstrap.
const starterShipTypeID = "miner"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "spacebo-server",
		Short: "Spacebo simulation server",
		Long:  "Runs the simulation backbone: quantity ledgers, delayed completions and the fleet action state machine.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(config.MustLoadConfig(configPath))
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run(cfg *config.Config) error {
	fmt.Printf("Connecting to %s database...\n", cfg.Database.Type)
	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	fmt.Println("Database connected")

	// Static game data is loaded once; everything downstream treats the
	// catalog as immutable.
	staticRepo := persistence.NewGormStaticDataRepository(db)
	catalog, err := staticRepo.LoadCatalog(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load static game data: %w", err)
	}
	fmt.Println("Static game data loaded")

	metrics.InitRegistry()
	collector := metrics.NewSimulationMetricsCollector()
	if err := collector.Register(); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}
	metrics.SetGlobalCollector(collector)

	clock := shared.NewRealClock()
	fleetRepo := persistence.NewGormFleetRepository(db)
	stationRepo := persistence.NewGormStationRepository(db)
	inventoryLedger := persistence.NewInventoryLedger()
	shipLedger := persistence.NewShipLedger()

	sched := scheduler.New(clock)
	completions := completion.NewService(db, fleetRepo, fleetRepo, stationRepo, catalog, inventoryLedger, sched)

	mediator := common.NewMediator()
	handlers := []error{
		common.RegisterHandler[*navigation.StartTravelCommand](mediator,
			navigation.NewStartTravelHandler(db, fleetRepo, catalog, completions, clock, cfg.Game.Speed)),
		common.RegisterHandler[*mining.StartMiningCommand](mediator,
			mining.NewStartMiningHandler(db, fleetRepo, catalog, completions, clock, cfg.Game.MiningDuration)),
		common.RegisterHandler[*manufacturing.StartRefineryJobCommand](mediator,
			manufacturing.NewStartRefineryJobHandler(db, stationRepo, catalog, inventoryLedger, completions, clock)),
		common.RegisterHandler[*player.CreateStarterFleetCommand](mediator,
			player.NewCreateStarterFleetHandler(db, fleetRepo, stationRepo, shipLedger, catalog, starterShipTypeID)),
	}
	for _, err := range handlers {
		if err != nil {
			return fmt.Errorf("failed to register handler: %w", err)
		}
	}

	// Re-derive pending completions before anything else can mutate state.
	if err := completions.RecoverPending(context.Background()); err != nil {
		return fmt.Errorf("failed to recover pending completions: %w", err)
	}

	if cfg.Game.SweeperInterval > 0 {
		sched.StartSweeper(cfg.Game.SweeperInterval, completions.Sweep)
	}

	fmt.Println("Simulation backbone running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down...")
	sched.Stop()
	return nil
}
