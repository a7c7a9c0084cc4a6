package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/recordstore/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty document",
		Run:   runInit,
	}

	cmd.Flags().Bool("force", false, "Replace an existing document")

	RootCmd.AddCommand(cmd)
}

func runInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	cfg := mustConfig()

	if err := store.InitFile(cfg.File, force); err != nil {
		exitErr("init", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"file":%q}`+"\n", cfg.File)
}
