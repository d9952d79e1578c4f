// Package worker moves planning runs off the request path. Runs are queued
// as asynq tasks and executed one at a time.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/kiranshivaraju/shopplan/internal/planning"
)

const (
	TaskPlanRun   = "planning:run"
	QueuePlanning = "planning"
)

const (
	maxRetry       = 5
	busyRetryDelay = 15 * time.Second
)

type planRunPayload struct {
	RunID uuid.UUID `json:"run_id"`
}

// NewPlanRunTask builds the task that executes run runID.
func NewPlanRunTask(runID uuid.UUID) (*asynq.Task, error) {
	data, err := json.Marshal(planRunPayload{RunID: runID})
	if err != nil {
		return nil, fmt.Errorf("marshal plan run payload: %w", err)
	}
	return asynq.NewTask(TaskPlanRun, data), nil
}

// Client enqueues planning runs. It satisfies planning.Enqueuer.
type Client struct {
	client *asynq.Client
}

// NewClient creates a Client from a Redis URL.
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) EnqueuePlanRun(ctx context.Context, runID uuid.UUID) error {
	task, err := NewPlanRunTask(runID)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueuePlanning),
		asynq.MaxRetry(maxRetry),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return fmt.Errorf("enqueue plan run: %w", err)
	}
	slog.Debug("plan run enqueued", "run_id", runID, "task_id", info.ID)
	return nil
}

// Runner executes a pending planning run.
type Runner interface {
	ExecuteRun(ctx context.Context, runID uuid.UUID) error
}

// PlanWorker processes planning:run tasks.
type PlanWorker struct {
	runner Runner
}

func NewPlanWorker(r Runner) *PlanWorker {
	return &PlanWorker{runner: r}
}

// ProcessTask executes one run. A busy planning lock is retried; any other
// failure has already been recorded on the run and is not.
func (w *PlanWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p planRunPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal plan run payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.RunID == uuid.Nil {
		return fmt.Errorf("plan run payload without run_id: %w", asynq.SkipRetry)
	}

	slog.Info("starting plan run", "run_id", p.RunID)
	err := w.runner.ExecuteRun(ctx, p.RunID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, planning.ErrPlanningInProgress):
		slog.Info("planning busy, run will be retried", "run_id", p.RunID)
		return err
	default:
		slog.Error("plan run failed", "run_id", p.RunID, "error", err)
		return fmt.Errorf("plan run %s: %v: %w", p.RunID, err, asynq.SkipRetry)
	}
}

// NewServer creates the asynq server that drains the planning queue.
func NewServer(redisURL string, concurrency int) (*asynq.Server, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         map[string]int{QueuePlanning: 1},
		RetryDelayFunc: retryDelay,
	}), nil
}

// NewMux routes planning tasks to w.
func NewMux(w *PlanWorker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPlanRun, w.ProcessTask)
	return mux
}

func retryDelay(n int, err error, t *asynq.Task) time.Duration {
	if errors.Is(err, planning.ErrPlanningInProgress) {
		return busyRetryDelay
	}
	return asynq.DefaultRetryDelayFunc(n, err, t)
}
