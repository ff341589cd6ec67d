package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	weft "github.com/weftlabs/weft"
	"github.com/weftlabs/weft/internal/hooks"
	"github.com/weftlabs/weft/internal/temporal"
	"github.com/weftlabs/weft/internal/types"
	"github.com/weftlabs/weft/internal/ui"
)

var moveCmd = &cobra.Command{
	Use:     "move <id> <state>",
	GroupID: "units",
	Short:   "Move a work unit to another lifecycle state",
	Long: `Move a work unit to another lifecycle state.

The transition runs through the fixed sequence: automatic checkpoint of a
dirty tree, pre-hooks, temporal validation, state commit, post-hooks.
Temporal validation rejects entering testing (or implementing) when the
required specification (or test) artifacts predate the state that should
have produced them; --skip-temporal-validation bypasses the check for
this invocation only.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		target, err := types.ParseState(args[1])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		skip, _ := cmd.Flags().GetBool("skip-temporal-validation")
		reason, _ := cmd.Flags().GetString("reason")

		runTransition(cmd, args[0], target, weft.TransitionOptions{
			SkipTemporalValidation: skip,
			BlockedReason:          reason,
		})
	},
}

var blockCmd = &cobra.Command{
	Use:     "block <id>",
	GroupID: "units",
	Short:   "Mark a work unit blocked",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")
		runTransition(cmd, args[0], types.StateBlocked, weft.TransitionOptions{BlockedReason: reason})
	},
}

var doneCmd = &cobra.Command{
	Use:     "done <id>",
	GroupID: "units",
	Short:   "Mark a work unit done",
	Long: `Mark a work unit done.

On entering done the unit's virtual hooks run one last time in the
post-done pipeline, then they are removed from the unit.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		skip, _ := cmd.Flags().GetBool("skip-temporal-validation")
		runTransition(cmd, args[0], types.StateDone, weft.TransitionOptions{SkipTemporalValidation: skip})
	},
}

// runTransition invokes the coordinator and renders the outcome. Exit
// code 1 on any abort, and on a blocking post-hook failure even though
// the state change is committed.
func runTransition(cmd *cobra.Command, id string, target types.State, opts weft.TransitionOptions) {
	p := openProject()
	result, err := p.Transition(cmd.Context(), id, target, opts)

	if jsonOutput {
		out := map[string]any{"result": result}
		if err != nil {
			out["error"] = err.Error()
		}
		printJSON(out)
		if err != nil || (result != nil && result.Failed()) {
			os.Exit(1)
		}
		return
	}

	if result != nil {
		renderTransitionResult(result)
	}
	if err != nil {
		renderTransitionError(err)
		os.Exit(1)
	}
}

func renderTransitionResult(r *weft.TransitionResult) {
	if r.AutoCheckpoint != "" {
		fmt.Printf("%s checkpoint %s\n", ui.RenderMuted(ui.IconInfo), ui.RenderMuted(r.AutoCheckpoint))
	}
	if r.CheckpointWarning != "" {
		WarnError("%s", r.CheckpointWarning)
	}
	renderPipeline("pre", r.PreHooks)
	if r.Committed {
		fmt.Printf("%s %s: %s → %s\n",
			ui.RenderPass(ui.IconPass),
			ui.RenderAccent(r.UnitID),
			ui.RenderState(string(r.From)),
			ui.RenderState(string(r.To)),
		)
	}
	renderPipeline("post", r.PostHooks)
}

func renderPipeline(phase string, pr *hooks.PipelineResult) {
	if pr == nil || len(pr.Executed) == 0 {
		return
	}
	for _, h := range pr.Executed {
		icon := ui.RenderPass(ui.IconPass)
		if h.Failed() {
			icon = ui.RenderFail(ui.IconFail)
			if !h.Blocking {
				icon = ui.RenderWarn(ui.IconWarn)
			}
		}
		fmt.Printf("%s %s-hook %s %s\n", icon, phase, h.Name, ui.RenderMuted(h.Duration.String()))
	}
}

func renderTransitionError(err error) {
	var verr *temporal.ViolationError
	if errors.As(err, &verr) {
		fmt.Println(ui.RenderFail("temporal ordering violation:"))
		for _, v := range verr.Violations {
			fmt.Printf("  %s %s\n", ui.RenderFail(ui.IconFail), v.Path)
			fmt.Printf("    modified %s, state entered %s (%s earlier)\n",
				v.ModTime.Format("2006-01-02 15:04:05"),
				v.StateEnteredAt.Format("2006-01-02 15:04:05"),
				v.Gap.Round(time.Second),
			)
		}
		fmt.Println(ui.RenderMuted("edit the artifacts in their proper state, or pass --skip-temporal-validation"))
		return
	}
	var herr *hooks.BlockingHookError
	if errors.As(err, &herr) {
		fmt.Printf("%s %v\n", ui.RenderFail(ui.IconFail), herr)
		if herr.Stderr != "" {
			fmt.Println(ui.RenderMuted(herr.Stderr))
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

func init() {
	moveCmd.Flags().Bool("skip-temporal-validation", false, "bypass temporal validation for this transition")
	moveCmd.Flags().String("reason", "", "reason, recorded when moving to blocked")
	blockCmd.Flags().String("reason", "", "why the unit is blocked")
	doneCmd.Flags().Bool("skip-temporal-validation", false, "bypass temporal validation for this transition")
	rootCmd.AddCommand(moveCmd, blockCmd, doneCmd)
}
