package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/ui"
)

var historyCmd = &cobra.Command{
	Use:     "history <id>",
	GroupID: "units",
	Short:   "Show a unit's state history with time spent per state",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		p := openProject()
		unit, err := p.GetUnit(cmd.Context(), args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		if jsonOutput {
			printJSON(unit.StateHistory)
			return
		}

		fmt.Printf("%s %s\n", ui.RenderAccent(unit.ID), unit.Title)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STATE\tENTERED\tDURATION\tREASON")
		for i, e := range unit.StateHistory {
			var dur time.Duration
			if i+1 < len(unit.StateHistory) {
				dur = unit.StateHistory[i+1].Timestamp.Sub(e.Timestamp)
			} else {
				dur = time.Since(e.Timestamp)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				ui.RenderState(string(e.State)),
				e.Timestamp.Format("2006-01-02 15:04"),
				dur.Round(time.Minute),
				ui.RenderMuted(e.Reason),
			)
		}
		_ = w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
