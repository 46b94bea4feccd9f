// Command stubapi serves the in-memory backend for local bot development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ad/go-scholar-wizard/internal/logging"
	"github.com/ad/go-scholar-wizard/internal/stubapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		addr    string
		baseURL string
		level   string
		debug   bool
	)

	cmd := &cobra.Command{
		Use:          "stubapi",
		Short:        "In-memory scholarship backend",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(level, debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if baseURL == "" {
				baseURL = "http://" + addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, addr, stubapi.New(logger, stubapi.WithBaseURL(baseURL)), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8081", "Listen address")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public URL prefix for file and checkout links (default http://<addr>)")
	cmd.Flags().StringVar(&level, "log-level", "info", "Log level")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable development logging")
	return cmd
}

func serve(ctx context.Context, addr string, s *stubapi.Server, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("stub api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("stub api shutting down")
	return srv.Shutdown(shutdownCtx)
}
