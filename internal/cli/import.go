package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/recordstore/internal/model"
)

func init() {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Replace the document from JSON",
		Long:  "Replace the whole document with a JSON document read from a file or stdin. Every record must have a distinct id.",
		Args:  cobra.MaximumNArgs(1),
		Run:   runImport,
	}

	RootCmd.AddCommand(cmd)
}

func runImport(cmd *cobra.Command, args []string) {
	var data []byte
	var err error
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		exitErr("read input", err)
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		exitErr("parse json", err)
	}

	cfg := mustConfig()
	s := openStore(cfg, newLogger(cfg))
	defer s.Close()

	if err := s.Import(cmd.Context(), &doc); err != nil {
		exitErr("import", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), `{"ok":true,"imported":%d}`+"\n", len(doc.Data))
}
