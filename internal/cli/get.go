package cli

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the document",
		Run:   runGet,
	}

	cmd.Flags().Bool("compact", false, "Print without indentation")

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	compact, _ := cmd.Flags().GetBool("compact")
	cfg := mustConfig()

	s := openStore(cfg, newLogger(cfg))
	defer s.Close()

	doc, err := s.GetAll(cmd.Context())
	if err != nil {
		exitErr("get", err)
	}

	b, err := doc.MarshalJSON()
	if err != nil {
		exitErr("encode", err)
	}
	if !compact {
		var out bytes.Buffer
		if err := json.Indent(&out, b, "", "  "); err == nil {
			b = out.Bytes()
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}
