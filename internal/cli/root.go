// Package cli implements the recordstore CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rcliao/recordstore/internal/config"
	"github.com/rcliao/recordstore/internal/journal"
	"github.com/rcliao/recordstore/internal/logging"
	"github.com/rcliao/recordstore/internal/store"
)

var (
	configPath  string
	filePath    string
	journalPath string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "recordstore",
	Short:        "File-backed JSON record store",
	Long:         "Serves a JSON document of records over HTTP and merges partial updates into it by id.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	RootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "Document path (default: $RECORDSTORE_FILE or ./data.json)")
	RootCmd.PersistentFlags().StringVar(&journalPath, "journal", "", "Update journal path (default: $RECORDSTORE_JOURNAL, disabled when empty)")
}

// loadConfig layers flags over the config file and environment.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if filePath != "" {
		cfg.File = filePath
	}
	if journalPath != "" {
		cfg.Journal = journalPath
	}
	return cfg, nil
}

func mustConfig() config.Config {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load config", err)
	}
	return cfg
}

func newLogger(cfg config.Config) zerolog.Logger {
	log, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		exitErr("logger", err)
	}
	return log
}

func openStore(cfg config.Config, log zerolog.Logger) *store.FileStore {
	return store.NewFileStore(cfg.File, store.WithLogger(log))
}

// openJournal returns nil when no journal is configured.
func openJournal(cfg config.Config) (*journal.SQLiteJournal, error) {
	if cfg.Journal == "" {
		return nil, nil
	}
	return journal.NewSQLiteJournal(cfg.Journal)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
