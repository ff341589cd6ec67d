package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/checkpoint"
	"github.com/weftlabs/weft/internal/timeparsing"
	"github.com/weftlabs/weft/internal/ui"
)

var checkpointCmd = &cobra.Command{
	Use:     "checkpoint",
	GroupID: "safety",
	Short:   "Save, list, restore, and clean up working-tree checkpoints",
	Long: `Save, list, restore, and clean up working-tree checkpoints.

A checkpoint captures every modified and untracked file as a git object
reachable from refs/weft/snapshots/. Restore is all-or-nothing: if any
file conflicts with local modifications, nothing is written and the
conflict set is reported for you to resolve (commit, stash, or restore
after reverting).`,
}

var checkpointCreateCmd = &cobra.Command{
	Use:   "create <unit-id> <name>",
	Short: "Capture the dirty working tree as a named checkpoint",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		p := openProject()
		cp, err := p.CreateCheckpoint(cmd.Context(), args[0], args[1])
		if err != nil {
			if errors.Is(err, checkpoint.ErrCheckpointNameCollision) {
				FatalErrorWithHint(err.Error(),
					fmt.Sprintf("pick another name, or 'wf checkpoint cleanup %s --keep 0' to clear old ones", args[0]))
			}
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			printJSON(cp)
			return
		}
		fmt.Printf("%s checkpoint %s created for %s\n",
			ui.RenderPass(ui.IconPass), ui.RenderAccent(cp.Name), cp.WorkUnitID)
	},
}

var checkpointListCmd = &cobra.Command{
	Use:   "list <unit-id>",
	Short: "List a unit's checkpoints, newest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := openProject()
		cps, err := p.ListCheckpoints(cmd.Context(), args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			printJSON(cps)
			return
		}
		if len(cps) == 0 {
			fmt.Println(ui.RenderMuted("no checkpoints"))
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tCREATED")
		for _, cp := range cps {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				ui.RenderAccent(cp.Name), cp.Kind, cp.CreatedAt.Format(time.RFC3339))
		}
		_ = w.Flush()
	},
}

var checkpointRestoreCmd = &cobra.Command{
	Use:   "restore <unit-id> <name>",
	Short: "Restore the working tree from a checkpoint",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		p := openProject()
		result, err := p.RestoreCheckpoint(cmd.Context(), args[0], args[1])
		if err != nil {
			var conflict *checkpoint.ConflictError
			if errors.As(err, &conflict) {
				renderConflicts(conflict)
				os.Exit(1)
			}
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			printJSON(result)
			return
		}
		fmt.Printf("%s restored %d file(s) from %s\n",
			ui.RenderPass(ui.IconPass), len(result.Restored), ui.RenderAccent(result.Name))
		for _, path := range result.Restored {
			fmt.Printf("  %s\n", path)
		}
	},
}

// renderConflicts lists each conflicting path with both versions
// summarized. The engine wrote nothing; resolution is the caller's call.
func renderConflicts(conflict *checkpoint.ConflictError) {
	if jsonOutput {
		printJSON(map[string]any{"conflicts": conflict.Conflicts, "error": conflict.Error()})
		return
	}
	fmt.Printf("%s %s\n", ui.RenderFail(ui.IconFail), conflict.Error())
	for _, c := range conflict.Conflicts {
		fmt.Printf("  %s\n", c.Path)
		fmt.Printf("    working:  %s\n", ui.RenderMuted(summarizeContent(c.Working)))
		fmt.Printf("    snapshot: %s\n", ui.RenderMuted(summarizeContent(c.Snapshot)))
	}
	fmt.Println(ui.RenderMuted("resolve first: commit or stash your changes, then restore again"))
}

func summarizeContent(content []byte) string {
	if content == nil {
		return "(absent)"
	}
	const peek = 40
	head := string(content)
	if len(head) > peek {
		head = head[:peek] + "..."
	}
	for i, r := range head {
		if r == '\n' {
			head = head[:i] + "⏎..."
			break
		}
	}
	return fmt.Sprintf("%d bytes  %q", len(content), head)
}

var checkpointCleanupCmd = &cobra.Command{
	Use:   "cleanup <unit-id>",
	Short: "Delete old checkpoints, keeping the newest N",
	Long: `Delete old checkpoints.

--keep N preserves the N most recently created checkpoints; --older-than
drops everything created before the given time expression (2d, "last
friday", 2026-01-15). Manual and automatic checkpoints follow the same
retention rule.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		keep, _ := cmd.Flags().GetInt("keep")
		olderThan, _ := cmd.Flags().GetString("older-than")
		if !cmd.Flags().Changed("keep") && olderThan == "" {
			FatalErrorRespectJSON("pass --keep N and/or --older-than <expr>")
		}

		p := openProject()
		totalDeleted, totalPreserved := 0, 0

		if olderThan != "" {
			cutoff, err := timeparsing.ParsePast(olderThan, time.Now())
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			res, err := p.CleanupCheckpointsOlderThan(cmd.Context(), args[0], cutoff)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			totalDeleted += res.Deleted
			totalPreserved = res.Preserved
		}
		if cmd.Flags().Changed("keep") {
			res, err := p.CleanupCheckpoints(cmd.Context(), args[0], keep)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			totalDeleted += res.Deleted
			totalPreserved = res.Preserved
		}

		if jsonOutput {
			printJSON(map[string]int{"deleted": totalDeleted, "preserved": totalPreserved})
			return
		}
		fmt.Printf("%s deleted %d, preserved %d\n", ui.RenderPass(ui.IconPass), totalDeleted, totalPreserved)
	},
}

func init() {
	checkpointCleanupCmd.Flags().Int("keep", 0, "number of newest checkpoints to preserve")
	checkpointCleanupCmd.Flags().String("older-than", "", "drop checkpoints created before this time expression")
	checkpointCmd.AddCommand(checkpointCreateCmd, checkpointListCmd, checkpointRestoreCmd, checkpointCleanupCmd)
	rootCmd.AddCommand(checkpointCmd)
}
