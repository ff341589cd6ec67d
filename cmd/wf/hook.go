package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/hookpack"
	"github.com/weftlabs/weft/internal/types"
	"github.com/weftlabs/weft/internal/ui"
)

var hookCmd = &cobra.Command{
	Use:     "hook",
	GroupID: "hooks",
	Short:   "Manage lifecycle hooks",
	Long: `Manage lifecycle hooks.

Hooks run around transitions: pre-<state> before the state change,
post-<state> after. Global hooks live in .weft/config.yaml and apply to
every unit their condition matches; virtual hooks are attached to one
unit (--unit) and are removed when that unit reaches done. For one event
the unit's virtual hooks run first in attachment order, then global
hooks in configuration order.`,
}

var hookAddCmd = &cobra.Command{
	Use:   "add <name> <event> <command>",
	Short: "Add a global hook, or a virtual hook with --unit",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		unitID, _ := cmd.Flags().GetString("unit")
		blocking, _ := cmd.Flags().GetBool("blocking")
		timeout, _ := cmd.Flags().GetInt("timeout")
		gitContext, _ := cmd.Flags().GetBool("git-context")

		hook := types.HookDefinition{
			Name:           args[0],
			Event:          args[1],
			Command:        args[2],
			Blocking:       blocking,
			TimeoutSeconds: timeout,
			GitContext:     gitContext,
			Condition:      conditionFromFlags(cmd),
		}

		p := openProject()
		if hook.TimeoutSeconds <= 0 {
			hook.TimeoutSeconds = config.HookTimeoutSeconds()
		}
		if err := p.AddHook(cmd.Context(), unitID, hook); err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		scope := "global"
		if unitID != "" {
			scope = "virtual on " + unitID
		}
		if jsonOutput {
			printJSON(map[string]any{"hook": hook, "scope": scope})
			return
		}
		fmt.Printf("%s hook %s added (%s, %s)\n",
			ui.RenderPass(ui.IconPass), ui.RenderAccent(hook.Name), hook.Event, scope)
	},
}

func conditionFromFlags(cmd *cobra.Command) *types.HookCondition {
	tags, _ := cmd.Flags().GetStringSlice("tag")
	prefixes, _ := cmd.Flags().GetStringSlice("id-prefix")
	epic, _ := cmd.Flags().GetString("epic")

	cond := &types.HookCondition{Tags: tags, IDPrefixes: prefixes, Epic: epic}
	if cmd.Flags().Changed("min-estimate") {
		n, _ := cmd.Flags().GetInt("min-estimate")
		cond.MinEstimate = &n
	}
	if cmd.Flags().Changed("max-estimate") {
		n, _ := cmd.Flags().GetInt("max-estimate")
		cond.MaxEstimate = &n
	}
	if len(cond.Tags) == 0 && len(cond.IDPrefixes) == 0 && cond.Epic == "" &&
		cond.MinEstimate == nil && cond.MaxEstimate == nil {
		return nil
	}
	return cond
}

var hookRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a global hook, or a virtual hook with --unit",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		unitID, _ := cmd.Flags().GetString("unit")
		p := openProject()
		if err := p.RemoveHook(cmd.Context(), unitID, args[0]); err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if jsonOutput {
			printJSON(map[string]string{"removed": args[0]})
			return
		}
		fmt.Printf("%s hook %s removed\n", ui.RenderPass(ui.IconPass), args[0])
	},
}

var hookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List hooks, or the resolution order for an event with --event --unit",
	Run: func(cmd *cobra.Command, args []string) {
		event, _ := cmd.Flags().GetString("event")
		unitID, _ := cmd.Flags().GetString("unit")
		p := openProject()

		// Resolution preview: the exact ordered pipeline one event would run
		// for one unit, conditions applied.
		if event != "" && unitID != "" {
			unit, err := p.GetUnit(cmd.Context(), unitID)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			resolved := p.Orchestrator().Resolve(event, unit)
			if jsonOutput {
				printJSON(resolved)
				return
			}
			if len(resolved) == 0 {
				fmt.Println(ui.RenderMuted("no hooks would run"))
				return
			}
			for i, h := range resolved {
				fmt.Printf("%d. %s  %s\n", i+1, ui.RenderAccent(h.Name), ui.RenderMuted(h.Command))
			}
			return
		}

		globals, err := config.GlobalHooks(p.WeftDir())
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		var virtuals []types.HookDefinition
		if unitID != "" {
			unit, err := p.GetUnit(cmd.Context(), unitID)
			if err != nil {
				FatalErrorRespectJSON("%v", err)
			}
			virtuals = unit.VirtualHooks
		}

		if jsonOutput {
			printJSON(map[string]any{"virtual": virtuals, "global": globals})
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSCOPE\tEVENT\tBLOCKING\tCOMMAND")
		for _, h := range virtuals {
			fmt.Fprintf(w, "%s\tvirtual\t%s\t%v\t%s\n", h.Name, h.Event, h.Blocking, h.Command)
		}
		for _, h := range globals {
			fmt.Fprintf(w, "%s\tglobal\t%s\t%v\t%s\n", h.Name, h.Event, h.Blocking, h.Command)
		}
		_ = w.Flush()
	},
}

var hookInstallCmd = &cobra.Command{
	Use:   "install <pack.toml>",
	Short: "Install a TOML bundle of hooks",
	Long: `Install a TOML bundle of hooks, globally or onto one unit with
--unit. The pack file lists [[hooks]] tables; every hook is validated
before any is installed.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		unitID, _ := cmd.Flags().GetString("unit")
		pack, err := hookpack.Load(args[0])
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}

		p := openProject()
		for _, hook := range pack.Hooks {
			if err := p.AddHook(cmd.Context(), unitID, hook); err != nil {
				FatalErrorRespectJSON("installing %s from pack %s: %v", hook.Name, pack.Name, err)
			}
		}

		if jsonOutput {
			printJSON(map[string]any{"pack": pack.Name, "installed": len(pack.Hooks)})
			return
		}
		fmt.Printf("%s installed %d hook(s) from pack %s\n",
			ui.RenderPass(ui.IconPass), len(pack.Hooks), ui.RenderAccent(pack.Name))
	},
}

func init() {
	hookAddCmd.Flags().String("unit", "", "attach as a virtual hook on this unit")
	hookAddCmd.Flags().Bool("blocking", false, "a failure halts the pipeline")
	hookAddCmd.Flags().Int("timeout", 0, "timeout in seconds (default from config)")
	hookAddCmd.Flags().Bool("git-context", false, "pass the current change-set to the hook on stdin")
	hookAddCmd.Flags().StringSlice("tag", nil, "only run for units with one of these tags")
	hookAddCmd.Flags().StringSlice("id-prefix", nil, "only run for units with one of these id prefixes")
	hookAddCmd.Flags().String("epic", "", "only run for units in this epic")
	hookAddCmd.Flags().Int("min-estimate", 0, "only run for units estimated at least this")
	hookAddCmd.Flags().Int("max-estimate", 0, "only run for units estimated at most this")

	hookRemoveCmd.Flags().String("unit", "", "remove from this unit's virtual hooks")
	hookListCmd.Flags().String("unit", "", "include this unit's virtual hooks")
	hookListCmd.Flags().String("event", "", "show resolution order for this event (with --unit)")
	hookInstallCmd.Flags().String("unit", "", "install onto this unit as virtual hooks")

	hookCmd.AddCommand(hookAddCmd, hookRemoveCmd, hookListCmd, hookInstallCmd)
	rootCmd.AddCommand(hookCmd)
}
