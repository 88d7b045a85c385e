// skirmish runs headless NPC combat scenarios.
//
// Usage:
//
//	skirmish simulate --scenario=<id|path> [--steps=N] [--seed=N] [--realtime]
//	skirmish validate
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	root := &cobra.Command{
		Use:   "skirmish",
		Short: "Headless behavior-tree combat simulator",
		Long: "skirmish drives NPC behavior trees and ability state machines\n" +
			"through YAML-defined battle scenarios.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "configs/dev.yaml", "path to configuration file")
	root.AddCommand(newSimulateCmd(&flags))
	root.AddCommand(newValidateCmd(&flags))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
