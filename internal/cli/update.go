package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/recordstore/internal/journal"
	"github.com/rcliao/recordstore/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "update [batch-json]",
		Short: "Merge a batch of partial records",
		Long:  "Merge a JSON array of partial records into the document by id. The batch can be a positional arg or piped via stdin.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runUpdate,
	}

	cmd.Flags().String("user-id", "", "Actor id recorded in the journal")
	cmd.Flags().String("account", "", "Actor account recorded in the journal")

	RootCmd.AddCommand(cmd)
}

func runUpdate(cmd *cobra.Command, args []string) {
	userID, _ := cmd.Flags().GetString("user-id")
	account, _ := cmd.Flags().GetString("account")

	// Get batch: positional arg first, then piped input
	var raw string
	if len(args) > 0 {
		raw = args[0]
	} else {
		b, err := readPiped(cmd.InOrStdin())
		if err != nil {
			exitErr("read stdin", err)
		}
		raw = string(b)
	}

	batch, err := model.ParseBatch([]byte(strings.TrimSpace(raw)))
	if err != nil {
		exitErr("update", err)
	}

	cfg := mustConfig()
	s := openStore(cfg, newLogger(cfg))
	defer s.Close()

	res, err := s.MergeUpdate(cmd.Context(), batch)
	if err != nil {
		exitErr("update", err)
	}

	j, err := openJournal(cfg)
	if err != nil {
		exitErr("open journal", err)
	}
	if j != nil {
		defer j.Close()
		var compact bytes.Buffer
		json.Compact(&compact, []byte(raw))
		if _, err := j.Append(cmd.Context(), journal.Entry{
			ActorID:      userID,
			ActorAccount: account,
			Matched:      res.Matched,
			Ignored:      res.Ignored,
			Batch:        compact.Bytes(),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "warning: journal append: %v\n", err)
		}
	}

	b, _ := json.Marshal(res)
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

// readPiped reads r to the end unless it is an interactive terminal, which
// yields no input.
func readPiped(r io.Reader) ([]byte, error) {
	if f, ok := r.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", f.Name(), err)
		}
		if info.Mode()&os.ModeCharDevice != 0 {
			return nil, nil
		}
	}
	return io.ReadAll(r)
}
