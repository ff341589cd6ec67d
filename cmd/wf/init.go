package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/config"
	"github.com/weftlabs/weft/internal/ui"
	"github.com/weftlabs/weft/internal/workspace"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a .weft workspace in the current directory",
	Long: `Initialize a .weft workspace in the current directory.

The directory must be inside a git repository: checkpoints are stored as
git objects. Creates .weft/ with the work-unit document, the checkpoint
log, and a default config.yaml carrying the id prefix.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		prefix, _ := cmd.Flags().GetString("prefix")
		if prefix == "" {
			prefix = config.DefaultIDPrefix
		}

		cwd, err := os.Getwd()
		if err != nil {
			FatalError("%v", err)
		}
		ws, err := workspace.Init(cwd)
		if err != nil {
			FatalErrorRespectJSON("%v", err)
		}
		if err := config.WriteDefault(ws.WeftDir, prefix); err != nil {
			FatalError("%v", err)
		}

		if jsonOutput {
			printJSON(map[string]string{"workspace": ws.WeftDir, "id_prefix": prefix})
			return
		}
		fmt.Printf("%s initialized %s (id prefix %s)\n", ui.RenderPass(ui.IconPass), ws.WeftDir, prefix)
	},
}

func init() {
	initCmd.Flags().String("prefix", "", "work unit id prefix (default WU)")
	rootCmd.AddCommand(initCmd)
}
