package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/types"
	"github.com/weftlabs/weft/internal/ui"
)

var createCmd = &cobra.Command{
	Use:     "create [title]",
	GroupID: "units",
	Short:   "File a new work unit",
	Long: `File a new work unit in backlog.

The id is assigned from the workspace prefix (AUTH-001, AUTH-002, ...).
Use --form for an interactive form instead of flags.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		useForm, _ := cmd.Flags().GetBool("form")

		unit := &types.WorkUnit{}
		if useForm {
			if len(args) > 0 {
				unit.Title = args[0]
			}
			if err := runCreateForm(unit); err != nil {
				FatalErrorRespectJSON("%v", err)
			}
		} else {
			if len(args) == 0 {
				FatalErrorRespectJSON("a title is required (or use --form)")
			}
			unit.Title = args[0]
			typeStr, _ := cmd.Flags().GetString("type")
			unit.Type = types.UnitType(typeStr)
			unit.Description, _ = cmd.Flags().GetString("description")
			unit.Tags, _ = cmd.Flags().GetStringSlice("tag")
			unit.Epic, _ = cmd.Flags().GetString("epic")
			if cmd.Flags().Changed("estimate") {
				est, _ := cmd.Flags().GetInt("estimate")
				unit.Estimate = &est
			}
		}
		if !unit.Type.IsValid() {
			FatalErrorRespectJSON("invalid type %q (valid: story, bug, task)", unit.Type)
		}

		p := openProject()
		now := time.Now()
		seeded := types.NewWorkUnit("", unit.Type, unit.Title, now)
		seeded.Description = unit.Description
		seeded.Tags = unit.Tags
		seeded.Epic = unit.Epic
		seeded.Estimate = unit.Estimate

		created, err := p.CreateUnit(cmd.Context(), seeded)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		if jsonOutput {
			printJSON(created)
			return
		}
		fmt.Printf("%s created %s: %s\n", ui.RenderPass(ui.IconPass), ui.RenderAccent(created.ID), created.Title)
	},
}

func init() {
	createCmd.Flags().BoolP("form", "f", false, "interactive form")
	createCmd.Flags().StringP("type", "t", "story", "unit type: story, bug, task")
	createCmd.Flags().StringP("description", "d", "", "markdown description")
	createCmd.Flags().StringSlice("tag", nil, "tags (repeatable)")
	createCmd.Flags().String("epic", "", "epic this unit belongs to")
	createCmd.Flags().Int("estimate", 0, "estimate in points")
	rootCmd.AddCommand(createCmd)
}
