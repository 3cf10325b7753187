package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/internal/httpapi"
	"github.com/dmitrymomot/mailvault/pkg/db"
	"github.com/dmitrymomot/mailvault/pkg/health"
	"github.com/dmitrymomot/mailvault/pkg/job"
	"github.com/dmitrymomot/mailvault/pkg/logger"
	"github.com/dmitrymomot/mailvault/pkg/store"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				retention, err := a.cfg.Mail.Retention()
				if err != nil {
					return err
				}

				jobs, err := job.NewManager(a.pool,
					job.WithLogger(a.log),
					job.WithMaxWorkers(a.cfg.JobMaxWorkers),
					job.WithTask(mailvault.NewResendTask(a.pipeline)),
					job.WithScheduledTask(mailvault.NewCleanupTask(a.pipeline, a.cfg.Mail.RetentionSchedule, retention)),
				)
				if err != nil {
					return err
				}
				// Stop drains jobs on shutdown; signal cancellation must not cut them off first.
				if err := jobs.Start(context.WithoutCancel(ctx)); err != nil {
					return err
				}
				a.checks["jobs"] = jobs.Healthcheck

				if a.cfg.HTTP.AdminToken == "" {
					a.log.Warn("MAILVAULT_ADMIN_TOKEN is not set; the admin API is unauthenticated")
				}
				checker := health.New(a.checks, health.WithLogger(a.log))
				srv := httpapi.New(a.cfg.HTTP, a.pipeline, a.sent,
					httpapi.WithLogger(a.log),
					httpapi.WithEnqueuer(jobs),
					httpapi.WithHealth(checker),
				)
				return srv.Run(ctx, jobs.Stop)
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				table := a.cfg.DB.MigrationsTable
				if status {
					list, err := db.MigrationStatus(ctx, a.pool, store.Migrations(), table, a.log)
					if err != nil {
						return err
					}
					for _, m := range list {
						fmt.Fprintf(cmd.OutOrStdout(), "%-8s %d %s\n", m.State, m.Source.Version, m.Source.Path)
					}
					return nil
				}

				if err := db.Migrate(ctx, a.pool, store.Migrations(), table, a.log); err != nil {
					return err
				}
				return job.Migrate(ctx, a.pool, a.log)
			})
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of migrating")
	return cmd
}

func newCleanupCmd() *cobra.Command {
	var count, unit string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete sent messages older than a retention window",
		Example: "  mailvault cleanup --count 90 --unit days\n" +
			"  mailvault cleanup --count 1 --unit years",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Validate before connecting anywhere; a bad window deletes nothing.
			retention, err := mailvault.ParseRetention(count, unit)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n, err := a.pipeline.Cleanup(ctx, retention)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d sent messages older than %s\n", n, retention)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&count, "count", "", "number of units to keep (required)")
	cmd.Flags().StringVar(&unit, "unit", "", "seconds, minutes, hours, days, weeks, months or years (required)")
	return cmd
}

func newResendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resend <sent-message-id>",
		Short: "Resend a stored message exactly as it was sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid sent message id %q: %w", args[0], err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx = logger.WithAttrs(ctx, slog.String("command", "resend"))
				d, err := a.pipeline.Resend(ctx, id)
				if err != nil {
					return err
				}
				return printDelivery(cmd.OutOrStdout(), d)
			})
		},
	}
}

func newSendTestCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "send-test <template-identifier>",
		Short: "Send a template to its test address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ctx = logger.WithAttrs(ctx, slog.String("command", "send-test"))
				d, err := a.pipeline.SendTest(ctx, args[0], to)
				if err != nil {
					return err
				}
				return printDelivery(cmd.OutOrStdout(), d)
			})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "recipient (default: the template test address, then the admin address)")
	return cmd
}

func printDelivery(w io.Writer, d *mailvault.Delivery) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"id":        d.ID,
		"state":     d.State.String(),
		"to":        d.Email.To,
		"subject":   d.Email.Subject,
		"test_mode": d.TestMode,
	})
}
