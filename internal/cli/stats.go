package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcliao/recordstore/internal/store"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show document and journal statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

type statsOutput struct {
	*store.Stats
	JournalPath    string `json:"journal_path,omitempty"`
	JournalEntries *int   `json:"journal_entries,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := mustConfig()
	s := openStore(cfg, newLogger(cfg))
	defer s.Close()

	st, err := s.Stats(cmd.Context())
	if err != nil {
		exitErr("stats", err)
	}
	out := statsOutput{Stats: st}

	j, err := openJournal(cfg)
	if err != nil {
		exitErr("open journal", err)
	}
	if j != nil {
		defer j.Close()
		n, err := j.Count(cmd.Context())
		if err != nil {
			exitErr("journal count", err)
		}
		out.JournalPath = cfg.Journal
		out.JournalEntries = &n
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
