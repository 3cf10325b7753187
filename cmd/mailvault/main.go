package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailvault/pkg/logger"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mailvault",
		Short:         "Send templated email and keep a replayable record of every message",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newCleanupCmd(),
		newResendCmd(),
		newSendTestCmd(),
	)
	return root
}

// withApp loads configuration, wires the app, runs fn and releases everything.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log)
	defer logger.Flush(2 * time.Second)
	slog.SetDefault(log)

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			log.Error("shutdown failed", slog.String("error", err.Error()))
		}
	}()

	return fn(ctx, a)
}
