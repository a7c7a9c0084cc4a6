package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rcliao/recordstore/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document over HTTP",
		Long:  "Serve GET /data and POST /updateData until interrupted.",
		Run:   runServe,
	}

	cmd.Flags().StringP("addr", "a", "", "Listen address (default: config addr or :3000)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := mustConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Addr = addr
	}
	log := newLogger(cfg)

	s := openStore(cfg, log)
	defer s.Close()

	opts := server.Options{Logger: log}
	j, err := openJournal(cfg)
	if err != nil {
		exitErr("open journal", err)
	}
	if j != nil {
		defer j.Close()
		opts.Journal = j
	}

	if _, err := s.Stats(cmd.Context()); err != nil {
		log.Warn().Err(err).Str("file", cfg.File).Msg("document not readable yet")
	}

	srv := server.New(s, cfg, opts)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-ctx.Done()
		return srv.Shutdown(context.Background())
	})
	if err := g.Wait(); err != nil {
		exitErr("serve", err)
	}
}
