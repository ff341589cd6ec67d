package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	weft "github.com/weftlabs/weft"
	"github.com/weftlabs/weft/internal/timeparsing"
	"github.com/weftlabs/weft/internal/types"
	"github.com/weftlabs/weft/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "units",
	Short:   "List work units",
	Long: `List work units, optionally filtered by status, type, tag, epic,
or last-update time (--since accepts 2d, "last friday", 2026-01-15).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		statusStr, _ := cmd.Flags().GetString("status")
		typeStr, _ := cmd.Flags().GetString("type")
		tag, _ := cmd.Flags().GetString("tag")
		epic, _ := cmd.Flags().GetString("epic")
		sinceStr, _ := cmd.Flags().GetString("since")
		watch, _ := cmd.Flags().GetBool("watch")

		var since time.Time
		if sinceStr != "" {
			t, err := timeparsing.ParsePast(sinceStr, time.Now())
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			since = t
		}
		if statusStr != "" {
			if _, err := types.ParseState(statusStr); err != nil {
				FatalErrorRespectJSON("%v", err)
			}
		}

		p := openProject()
		render := func() error {
			units, err := p.ListUnits(cmd.Context())
			if err != nil {
				return err
			}
			filtered := filterUnits(units, statusStr, typeStr, tag, epic, since)
			if jsonOutput {
				printJSON(filtered)
				return nil
			}
			printUnitTable(filtered)
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

func filterUnits(units []*weft.WorkUnit, status, unitType, tag, epic string, since time.Time) []*weft.WorkUnit {
	filtered := make([]*weft.WorkUnit, 0, len(units))
	for _, u := range units {
		if status != "" && string(u.Status) != status {
			continue
		}
		if unitType != "" && string(u.Type) != unitType {
			continue
		}
		if tag != "" && !u.HasTag(tag) {
			continue
		}
		if epic != "" && u.Epic != epic {
			continue
		}
		if !since.IsZero() && u.UpdatedAt.Before(since) {
			continue
		}
		filtered = append(filtered, u)
	}
	return filtered
}

func printUnitTable(units []*weft.WorkUnit) {
	if len(units) == 0 {
		fmt.Println(ui.RenderMuted("no work units"))
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tTITLE\tTAGS")
	for _, u := range units {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ui.RenderAccent(u.ID),
			u.Type,
			ui.RenderState(string(u.Status)),
			u.Title,
			strings.Join(u.Tags, ","),
		)
	}
	_ = w.Flush()
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "filter by status")
	listCmd.Flags().StringP("type", "t", "", "filter by type")
	listCmd.Flags().String("tag", "", "filter by tag")
	listCmd.Flags().String("epic", "", "filter by epic")
	listCmd.Flags().String("since", "", "only units updated since this time expression")
	listCmd.Flags().BoolP("watch", "w", false, "re-render on workspace changes")
	rootCmd.AddCommand(listCmd)
}
