package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/recordstore/internal/journal"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List applied update batches",
		Long:  "List entries of the update journal, newest first. Requires --journal or $RECORDSTORE_JOURNAL.",
		Run:   runHistory,
	}

	cmd.Flags().IntP("limit", "l", 20, "Max results")
	cmd.Flags().String("actor", "", "Filter by actor id")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")
	actor, _ := cmd.Flags().GetString("actor")
	cfg := mustConfig()

	j, err := openJournal(cfg)
	if err != nil {
		exitErr("open journal", err)
	}
	if j == nil {
		exitErr("history", errors.New("no journal configured"))
	}
	defer j.Close()

	entries, err := j.List(cmd.Context(), journal.ListParams{
		ActorID: actor,
		Limit:   limit,
	})
	if err != nil {
		exitErr("history", err)
	}
	if entries == nil {
		entries = []journal.Entry{}
	}

	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
