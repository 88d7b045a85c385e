package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// app holds everything a command needs after configuration is loaded.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	collector *observability.Collector // nil when metrics are disabled
	library   *scenario.Library
}

// loadApp reads configuration, builds the logger and metrics pipeline, and
// loads the ability and behavior library.
func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	a := &app{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled {
		if a.collector, err = observability.NewCollector(); err != nil {
			return nil, err
		}
	}
	a.library, err = scenario.LoadLibrary(cfg.Content.AbilitiesDir, cfg.Content.BehaviorsDir)
	if err != nil {
		return nil, err
	}
	logger.Debug("content library loaded",
		zap.Strings("abilities", a.library.AbilityIDs()),
		zap.Strings("behaviors", a.library.BehaviorIDs()),
	)
	return a, nil
}

func (a *app) metrics() *observability.Metrics {
	if a.collector == nil {
		return nil
	}
	return a.collector.Metrics
}

// roller returns a seeded roller when seed is non-zero, else a crypto one.
func (a *app) roller(seed uint64) *dice.Roller {
	if seed != 0 {
		return dice.NewRoller(dice.NewSeededSource(seed), a.logger)
	}
	return dice.NewRoller(dice.NewCryptoSource(), a.logger)
}

// scripts loads the Lua content tree into a new manager.
func (a *app) scripts(roller *dice.Roller) (*scripting.Manager, error) {
	mgr := scripting.NewManager(roller, a.logger)
	if err := mgr.LoadDir(a.cfg.Content.ScriptsDir, a.cfg.Scripting.InstructionLimit); err != nil {
		mgr.Close()
		return nil, err
	}
	return mgr, nil
}

// close logs metric totals and flushes the logger.
func (a *app) close(ctx context.Context) {
	if a.collector != nil {
		totals, err := a.collector.Totals(ctx)
		if err != nil {
			a.logger.Warn("collecting metrics", zap.Error(err))
		}
		for _, t := range totals {
			a.logger.Info("metric total",
				zap.String("metric", t.Name),
				zap.Uint64("count", t.Count),
				zap.Float64("sum", t.Sum),
			)
		}
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("shutting down metrics", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
