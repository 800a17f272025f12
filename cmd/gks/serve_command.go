package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gksapp/gks/internal/playback"
	"github.com/gksapp/gks/internal/quiz"
	"github.com/gksapp/gks/internal/remote"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local store to remote clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Server.Listen
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runServer(signalCtx, ctx, listen, func(addr string) {
				fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	return cmd
}

// runServer serves until runCtx is cancelled. ready receives the bound
// address once the listener is open.
func runServer(runCtx context.Context, ctx *commandContext, listen string, ready func(addr string)) error {
	logger := ctx.log()
	st, err := ctx.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	bridge := remote.NewServer(st, logger, playback.SongsCollection, quiz.Collection)
	srv := &http.Server{
		Handler:           bridge.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", listen, err)
	}
	logger.Info("server listening", "address", listener.Addr().String())
	if ready != nil {
		ready(listener.Addr().String())
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		bridge.Close()
		return err
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}
