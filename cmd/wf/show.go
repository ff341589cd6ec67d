package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	weft "github.com/weftlabs/weft"
	"github.com/weftlabs/weft/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	GroupID: "units",
	Short:   "Show one work unit in full",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		watch, _ := cmd.Flags().GetBool("watch")
		p := openProject()

		render := func() error {
			unit, err := p.GetUnit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cps, err := p.ListCheckpoints(cmd.Context(), unit.ID)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(map[string]any{"unit": unit, "checkpoints": cps})
				return nil
			}
			printUnitCard(unit, cps)
			return nil
		}

		if watch {
			if err := watchWeftDir(cmd.Context(), p.WeftDir(), render); err != nil {
				FatalError("%v", err)
			}
			return
		}
		if err := render(); err != nil {
			FatalErrorRespectJSON("%v", err)
		}
	},
}

func printUnitCard(unit *weft.WorkUnit, cps []*weft.Checkpoint) {
	fmt.Printf("%s %s %s\n",
		ui.RenderAccent(unit.ID),
		ui.RenderState(string(unit.Status)),
		unit.Title,
	)
	meta := []string{string(unit.Type)}
	if unit.Epic != "" {
		meta = append(meta, "epic:"+unit.Epic)
	}
	if unit.Estimate != nil {
		meta = append(meta, fmt.Sprintf("%dpt", *unit.Estimate))
	}
	if len(unit.Tags) > 0 {
		meta = append(meta, strings.Join(unit.Tags, ","))
	}
	fmt.Println(ui.RenderMuted(strings.Join(meta, "  ")))

	if unit.Description != "" {
		fmt.Println(ui.RenderMarkdown(unit.Description))
	}

	fmt.Println(ui.RenderCategory("history"))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, e := range unit.StateHistory {
		reason := ""
		if e.Reason != "" {
			reason = "(" + e.Reason + ")"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\n",
			ui.RenderState(string(e.State)),
			e.Timestamp.Format(time.RFC3339),
			ui.RenderMuted(reason),
		)
	}
	_ = w.Flush()

	if len(unit.VirtualHooks) > 0 {
		fmt.Println(ui.RenderCategory("virtual hooks"))
		for _, h := range unit.VirtualHooks {
			fmt.Printf("  %s %s  %s\n", h.Name, ui.RenderMuted(h.Event), ui.RenderMuted(h.Command))
		}
	}

	if len(cps) > 0 {
		fmt.Println(ui.RenderCategory("checkpoints"))
		max := 5
		if len(cps) < max {
			max = len(cps)
		}
		for _, cp := range cps[:max] {
			fmt.Printf("  %s %s %s\n",
				cp.Name,
				ui.RenderMuted(string(cp.Kind)),
				ui.RenderMuted(cp.CreatedAt.Format(time.RFC3339)),
			)
		}
		if len(cps) > max {
			fmt.Println(ui.RenderMuted(fmt.Sprintf("  ... %d more", len(cps)-max)))
		}
	}
}

func init() {
	showCmd.Flags().BoolP("watch", "w", false, "re-render on workspace changes")
	rootCmd.AddCommand(showCmd)
}
