package job

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/riverqueue/river"
)

// taskArgs is the River job payload shared by all tasks. Uniqueness is
// computed from the task name and unique key only.
type taskArgs struct {
	Task      string          `json:"task" river:"unique"`
	UniqueKey string          `json:"unique_key,omitempty" river:"unique"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (taskArgs) Kind() string { return "mailvault:task" }

type enqueueConfig struct {
	queue       string
	uniqueKey   string
	delay       time.Duration
	uniqueFor   time.Duration
	maxAttempts int
}

// EnqueueOption configures a single Enqueue call.
type EnqueueOption func(*enqueueConfig)

// InQueue routes the job to a queue registered with WithQueue.
func InQueue(name string) EnqueueOption {
	return func(c *enqueueConfig) { c.queue = name }
}

// ScheduledIn delays the job by d.
func ScheduledIn(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) { c.delay = d }
}

// MaxAttempts caps retries. River's default applies when unset.
func MaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) { c.maxAttempts = n }
}

// UniqueFor skips the job if one with the same task name and key was
// inserted within d.
//
//	m.Enqueue(ctx, "resend", payload, job.UniqueFor(time.Minute), job.UniqueKey(id.String()))
func UniqueFor(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) { c.uniqueFor = d }
}

// UniqueKey sets the deduplication key used with UniqueFor.
func UniqueKey(key string) EnqueueOption {
	return func(c *enqueueConfig) { c.uniqueKey = key }
}

func buildArgs(name string, payload any, now time.Time, opts ...EnqueueOption) (taskArgs, *river.InsertOpts, error) {
	args := taskArgs{Task: name}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return taskArgs{}, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		args.Payload = raw
	}

	cfg := enqueueConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	insert := &river.InsertOpts{Queue: cfg.queue}
	if cfg.delay > 0 {
		insert.ScheduledAt = now.Add(cfg.delay)
	}
	if cfg.maxAttempts > 0 {
		insert.MaxAttempts = cfg.maxAttempts
	}
	if cfg.uniqueFor > 0 {
		args.UniqueKey = cfg.uniqueKey
		insert.UniqueOpts = river.UniqueOpts{ByArgs: true, ByPeriod: cfg.uniqueFor}
	}
	return args, insert, nil
}
