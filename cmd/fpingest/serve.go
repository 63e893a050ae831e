package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/fpingest/internal/receiver"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local ingest endpoint that records what it receives",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if cmd.Flags().Changed("addr") {
				a.cfg.Receiver.Addr = addr
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $RECEIVER_ADDR)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	submissions := &receiver.Log{}
	handler := receiver.NewHTTPHandler(submissions, a.logger, a.cfg.Receiver.DecodeCodes)

	server := &http.Server{
		Addr:         a.cfg.Receiver.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  a.cfg.Receiver.ReadTimeout,
		WriteTimeout: a.cfg.Receiver.WriteTimeout,
		IdleTimeout:  a.cfg.Receiver.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown failed", zap.Error(err))
		}
	}()

	a.logger.Info("receiver starting", zap.String("addr", a.cfg.Receiver.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("http server failed", zap.Error(err))
		return err
	}
	a.logger.Info("receiver stopped", zap.Int("submissions", submissions.Len()))
	return nil
}
