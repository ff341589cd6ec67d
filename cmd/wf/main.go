// wf is the weft CLI: work units moving through a fixed lifecycle, with
// temporal-ordering validation, working-tree checkpoints, and a hook
// pipeline on every transition.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/telemetry"
)

// Version is stamped by the release build.
var Version = "dev"

var (
	jsonOutput bool

	// Signal-aware context for graceful cancellation.
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "wf",
	Short: "Lifecycle-managed work units with checkpoints and hooks",
	Long: `wf tracks work units through a fixed lifecycle
(backlog → specifying → testing → implementing → validating → done,
plus a blocked side-state).

Every transition is guarded: specification and test artifacts must have
been edited during the state that should have produced them, a dirty
working tree is checkpointed automatically before the state changes, and
pre/post hook pipelines run around each transition.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return telemetry.Init(cmd.Context(), "wf", Version)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output machine-readable JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "units", Title: "Work units:"},
		&cobra.Group{ID: "safety", Title: "Checkpoints:"},
		&cobra.Group{ID: "hooks", Title: "Hooks:"},
	)
}

func main() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	if err := rootCmd.ExecuteContext(rootCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
