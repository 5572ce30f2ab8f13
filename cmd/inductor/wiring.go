package main

import (
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/metrorun/inductor/internal/cache"
	"github.com/metrorun/inductor/internal/config"
	"github.com/metrorun/inductor/internal/fleet"
	"github.com/metrorun/inductor/internal/fleet/fixture"
	"github.com/metrorun/inductor/internal/induction"
	"github.com/metrorun/inductor/internal/infrastructure/db"
	"github.com/metrorun/inductor/internal/roster"
	"github.com/metrorun/inductor/internal/solver"
)

// deps is everything a command needs to run the planner, plus the handles
// it must close on exit.
type deps struct {
	cfg     *config.Config
	planner *induction.Planner
	dbMgr   *db.Manager   // nil with --fixture
	redis   *redis.Client // nil unless the cache is enabled
}

func (d *deps) close() {
	if d.dbMgr != nil {
		d.dbMgr.Close()
	}
	if d.redis != nil {
		d.redis.Close()
	}
}

// buildDeps wires the planner from flags and config: fixture or postgres
// data source behind the circuit breaker, optional redis store, and the
// branch-and-bound solver.
func buildDeps(cmd *cobra.Command) (*deps, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.DefaultPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg}

	var source fleet.DataSource
	useFixture, _ := cmd.Flags().GetBool("fixture")
	if useFixture {
		seed, _ := cmd.Flags().GetInt64("seed")
		size, _ := cmd.Flags().GetInt("fleet-size")
		source = fixture.Generate(seed, size, time.Now().UTC())
	} else {
		mgr, err := db.NewManager(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database unavailable: %w", err)
		}
		d.dbMgr = mgr
		source = fleet.NewBreakerSource(mgr.FleetRepo(), fleet.DefaultBreakerConfig())
	}

	opts := induction.Options{
		Params:           paramsFromConfig(cfg.Scheduling),
		Budget:           time.Duration(cfg.Solver.BudgetSeconds) * time.Second,
		EnableRelaxation: cfg.Solver.EnableRelaxation,
	}
	if cfg.Cache.Enabled {
		d.redis = redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr, DB: cfg.Cache.DB})
		opts.Store = cache.NewRosterCache(d.redis, cfg.Cache.TTL)
	}

	d.planner = induction.New(source, solver.New(), opts)
	return d, nil
}

func paramsFromConfig(s config.SchedulingConfig) roster.Params {
	return roster.Params{
		TargetSize:          s.RosterSize,
		DepotBalanceLo:      s.DepotBalanceLo,
		DepotBalanceHi:      s.DepotBalanceHi,
		AgeNewYearsMax:      s.AgeNewYearsMax,
		AgeDiversityMin:     s.AgeDiversityMin,
		VendorMin:           s.VendorMin,
		CriticalBrandingMin: s.CriticalBrandMin,
		MileageBandLo:       s.MileageBandLowKM,
		MileageBandHi:       s.MileageBandHiKM,
		HomeBayMin:          s.HomeBayMin,
	}
}
