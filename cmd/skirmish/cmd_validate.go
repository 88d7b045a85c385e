package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/clock"
	"github.com/cory-johannsen/skirmish/internal/game/scenario"
)

func newValidateCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and check all abilities, behaviors, scripts and scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), root.configPath)
		},
	}
}

// runValidate loads every content file and assembles every scenario, so
// broken references and unbuildable trees surface without running anything.
func runValidate(ctx context.Context, out io.Writer, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	roller := a.roller(1)
	scripts, err := a.scripts(roller)
	if err != nil {
		return err
	}
	defer scripts.Close()

	all, err := scenario.LoadAll(a.cfg.Content.ScenariosDir)
	if err != nil {
		return err
	}
	var errs []error
	for _, s := range all {
		_, err := scenario.Build(s, a.library, scenario.Deps{
			Clock:   clock.NewManual(time.Unix(0, 0)),
			Roller:  roller,
			Logger:  a.logger,
			Scripts: scripts,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.logger.Debug("scenario ok", zap.String("scenario", s.ID))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	fmt.Fprintf(out, "ok: %d abilities, %d behaviors, %d script scopes, %d scenarios\n",
		len(a.library.AbilityIDs()), len(a.library.BehaviorIDs()), len(scripts.Scopes()), len(all))
	return nil
}
