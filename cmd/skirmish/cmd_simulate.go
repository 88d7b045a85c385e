package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
	"github.com/cory-johannsen/skirmish/internal/game/sim"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/server"
)

// defaultSteps bounds a virtual-time run when neither the flag, the scenario
// nor the config sets a limit.
const defaultSteps = 10_000

type simulateFlags struct {
	scenario string
	steps    int
	seed     uint64
	realtime bool
}

func newSimulateCmd(root *rootFlags) *cobra.Command {
	var flags simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a scenario until one team is left standing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), root.configPath, flags)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.scenario, "scenario", "", "scenario ID or path to a scenario YAML file (required)")
	f.IntVar(&flags.steps, "steps", 0, "maximum steps; 0 uses the scenario or config value")
	f.Uint64Var(&flags.seed, "seed", 0, "dice seed; 0 uses the scenario or config value")
	f.BoolVar(&flags.realtime, "realtime", false, "step on the wall clock instead of virtual time")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func runSimulate(ctx context.Context, out io.Writer, configPath string, flags simulateFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	scn, err := findScenario(a.cfg.Content.ScenariosDir, flags.scenario)
	if err != nil {
		return err
	}
	seed := firstNonZero(flags.seed, scn.Seed, a.cfg.Sim.Seed)
	steps := int(firstNonZero(uint64(max(flags.steps, 0)), uint64(scn.MaxSteps), uint64(a.cfg.Sim.MaxSteps)))
	if steps == 0 && !flags.realtime {
		steps = defaultSteps
	}

	logger := observability.RunLogger(a.logger, scn.ID, seed, uuid.NewString())
	roller := a.roller(seed)
	scripts, err := a.scripts(roller)
	if err != nil {
		return err
	}
	defer scripts.Close()

	var clk clock.Clock = clock.Real{}
	var manual *clock.Manual
	if !flags.realtime {
		manual = clock.NewManual(time.Unix(0, 0))
		clk = manual
	}
	deps := scenario.Deps{
		Clock:   clk,
		Roller:  roller,
		Logger:  logger,
		Metrics: a.metrics(),
		Scripts: scripts,
	}
	if scn.Interval == 0 {
		deps.Interval = a.cfg.Sim.TickInterval
	}
	battle, err := scenario.Build(scn, a.library, deps)
	if err != nil {
		return err
	}

	logger.Info("simulation starting",
		zap.Int("max_steps", steps),
		zap.Bool("realtime", flags.realtime),
	)
	var winner string
	if flags.realtime {
		winner, err = runRealtime(ctx, logger, battle.Loop, steps)
	} else {
		winner, err = battle.Loop.Simulate(ctx, manual, steps)
	}
	switch {
	case err == nil, errors.Is(err, sim.ErrStepLimit):
	case errors.Is(err, context.Canceled):
		logger.Info("simulation interrupted")
		err = nil
	default:
		return err
	}
	report(out, battle, winner)
	return err
}

// runRealtime drives the loop on the wall clock alongside a referee that
// stops the run once a winner emerges or the step limit is reached.
func runRealtime(ctx context.Context, logger *zap.Logger, loop *sim.Loop, steps int) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var winner string
	var limitHit bool
	lc := server.NewLifecycle(logger)
	lc.Add("sim", server.ServiceFunc(loop.Run))
	lc.Add("referee", server.ServiceFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(loop.Interval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			if team, ok := loop.Winner(); ok {
				winner = team
				cancel()
				return nil
			}
			if steps > 0 && loop.Stats().Steps >= uint64(steps) {
				limitHit = true
				cancel()
				return nil
			}
		}
	}))
	if err := lc.Run(ctx); err != nil {
		return "", err
	}
	if limitHit {
		return "", sim.ErrStepLimit
	}
	if winner == "" {
		return "", ctx.Err()
	}
	return winner, nil
}

// findScenario loads ref as a file path when it names a YAML file, else
// looks it up by ID in dir.
func findScenario(dir, ref string) (*scenario.Scenario, error) {
	if strings.HasSuffix(ref, ".yaml") {
		return scenario.Load(ref)
	}
	all, err := scenario.LoadAll(dir)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for _, s := range all {
		if s.ID == ref {
			return s, nil
		}
		ids = append(ids, s.ID)
	}
	return nil, fmt.Errorf("scenario %q not found in %s (have: %s)", ref, filepath.Clean(dir), strings.Join(ids, ", "))
}

func report(out io.Writer, b *scenario.Battle, winner string) {
	stats := b.Loop.Stats()
	if winner == "" {
		winner = "none"
	}
	fmt.Fprintf(out, "scenario: %s\n", b.Scenario.ID)
	fmt.Fprintf(out, "winner:   %s\n", winner)
	fmt.Fprintf(out, "steps:    %d (%s simulated, %d deaths)\n", stats.Steps, stats.SimTime, stats.Deaths)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tTEAM\tHEALTH\tMANA\tSTAMINA\tSTATUS")
	for _, e := range b.World.Entities() {
		res := e.Resources()
		status := "alive"
		if !e.Alive() {
			status = "dead"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%d/%d\t%d/%d\t%s\n",
			e.Name(), e.Team(),
			res.Health(), res.MaxHealth(),
			res.Mana(), res.MaxMana(),
			res.Stamina(), res.MaxStamina(),
			status,
		)
	}
	_ = tw.Flush()
}

func firstNonZero(vals ...uint64) uint64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
