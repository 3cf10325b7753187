package job

import (
	"log/slog"
)

type config struct {
	registry   *registry
	queues     map[string]int
	logger     *slog.Logger
	scheduled  []ScheduledTask
	maxWorkers int
}

func newConfig() *config {
	return &config{
		registry:   newRegistry(),
		queues:     make(map[string]int),
		maxWorkers: defaultMaxWorkers,
	}
}

// Option configures a Manager.
type Option func(*config)

// WithTask registers a task. The payload type is inferred from Handle.
//
//	job.WithTask(mailvault.NewResendTask(pipeline))
func WithTask[P any, T Task[P]](task T) Option {
	return func(c *config) {
		c.registry.register(task.Name(), typedExecutor[P]{task: task})
	}
}

// WithScheduledTask registers a periodic task.
//
//	job.WithScheduledTask(mailvault.NewCleanupTask(pipeline, "0 3 * * *", retention))
func WithScheduledTask[T ScheduledTask](task T) Option {
	return func(c *config) {
		c.scheduled = append(c.scheduled, task)
		c.registry.register(task.Name(), scheduledExecutor{task: task})
	}
}

// WithQueue adds a named queue with its own worker limit.
func WithQueue(name string, workers int) Option {
	return func(c *config) {
		if name != "" && workers > 0 {
			c.queues[name] = workers
		}
	}
}

// WithLogger sets the logger used by the manager and River.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxWorkers limits concurrent jobs on the default queue. Default: 10.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}
