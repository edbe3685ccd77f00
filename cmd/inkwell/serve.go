package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/inkwell/internal/loop"
	"github.com/dshills/inkwell/internal/remote"
)

const shutdownTimeout = 5 * time.Second

type serveFlags struct {
	addr string
}

func newServeCmd(root *rootFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editor over a websocket until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, root, flags, cmd)
		},
	}

	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides remote.addr)")

	return cmd
}

func serve(ctx context.Context, root *rootFlags, flags *serveFlags, cmd *cobra.Command) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Remote.Addr = flags.addr
	}
	log, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	names, err := eventNames(cfg)
	if err != nil {
		return err
	}

	// The loop outlives ctx so shutdown work can still run on it.
	lp := loop.New(loop.DefaultQueueSize)
	go func() { _ = lp.Run(context.Background()) }()
	defer lp.Close()

	ed, ids, err := buildEditor(cfg, lp, log)
	if err != nil {
		return err
	}
	if err := lp.Do(ctx, func() error {
		if err := ed.Load(ctx); err != nil {
			return err
		}
		enablePlugins(ed, cfg, ids, log)
		return nil
	}); err != nil {
		return err
	}

	bridge, err := remote.NewServer(ed, lp,
		remote.WithLogger(log),
		remote.WithAllowedOrigins(cfg.Remote.AllowedOrigins...),
		remote.WithEvents(names...),
	)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Remote.Path, bridge)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", cfg.Remote.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Remote.Addr, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "listening on ws://%s%s\n", ln.Addr(), cfg.Remote.Path)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "http server stopped")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{bridge.Close(), srv.Shutdown(shutdownCtx)}
	errs = append(errs, lp.Do(shutdownCtx, ed.Close))
	return errors.Join(errs...)
}
