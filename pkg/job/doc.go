// Package job runs background tasks on River, a PostgreSQL-backed job queue.
//
// Tasks are plain types. A task with a payload implements Name and
// Handle(ctx, P); the payload is stored as JSON. A scheduled task implements
// Name, Schedule (a 5-field cron expression) and Handle(ctx).
//
//	m, err := job.NewManager(pool,
//		job.WithLogger(log),
//		job.WithTask(mailvault.NewResendTask(pipeline)),
//		job.WithScheduledTask(mailvault.NewCleanupTask(pipeline, "0 3 * * *", retention)),
//	)
//	if err := m.Start(ctx); err != nil {
//		return err
//	}
//	defer m.Stop(context.Background())
//
//	err = m.Enqueue(ctx, mailvault.ResendTaskName, mailvault.ResendPayload{SentMessageID: id},
//		job.UniqueFor(time.Minute), job.UniqueKey(id.String()))
//
// All tasks share one River job kind; the worker looks the task up by name.
// Payloads that cannot be decoded cancel the job instead of retrying it.
// River's schema must exist before NewManager is used: run Migrate first.
package job
