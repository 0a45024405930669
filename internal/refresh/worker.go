package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	MaxAttempts    = 3
	popTimeout     = 5 * time.Second
	requeueTimeout = 5 * time.Second
)

type Pusher interface {
	Push(ctx context.Context, data string) error
}

type Queue interface {
	Pusher
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}

type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Job is the payload kept on the refresh queue.
type Job struct {
	ID          string    `json:"id"`
	Attempts    int       `json:"attempts"`
	LastError   string    `json:"last_error,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// Enqueue schedules a refresh and returns the queued job.
func Enqueue(ctx context.Context, q Pusher) (*Job, error) {
	job := &Job{ID: uuid.NewString(), RequestedAt: time.Now().UTC()}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}
	if err := q.Push(ctx, string(data)); err != nil {
		return nil, fmt.Errorf("enqueue refresh: %w", err)
	}
	return job, nil
}

type Worker struct {
	runner     Runner
	queue      Queue
	deadLetter Pusher
	backoff    func(attempt int) time.Duration
}

func NewWorker(runner Runner, queue Queue, deadLetter Pusher) *Worker {
	return &Worker{
		runner:     runner,
		queue:      queue,
		deadLetter: deadLetter,
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt) * 5 * time.Second
		},
	}
}

// Run processes jobs until ctx is cancelled or the queue fails.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := w.ProcessNext(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// ProcessNext pops one job and runs it. A failed run is re-queued after a
// backoff until it reaches MaxAttempts, then moved to the dead letter queue.
func (w *Worker) ProcessNext(ctx context.Context) error {
	data, err := w.queue.Pop(ctx, popTimeout)
	if err != nil {
		return fmt.Errorf("pop refresh job: %w", err)
	}
	if data == "" {
		return nil
	}

	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		slog.Error("invalid refresh job in queue", "data", data, "error", err)
		return nil
	}

	result, err := w.runner.Run(ctx)
	if err == nil {
		slog.Info("refresh job complete", "job_id", job.ID, "narratives", result.Narratives, "edges", result.Edges)
		return nil
	}

	job.Attempts++
	job.LastError = err.Error()
	slog.Error("refresh job failed", "job_id", job.ID, "attempt", job.Attempts, "error", err)

	payload, _ := json.Marshal(job)

	if job.Attempts >= MaxAttempts {
		slog.Warn("refresh job exceeded max retries, moving to dead letter", "job_id", job.ID)
		if err := w.deadLetter.Push(ctx, string(payload)); err != nil {
			slog.Error("error pushing to dead letter queue", "job_id", job.ID, "error", err)
		}
		return nil
	}

	select {
	case <-ctx.Done():
		// shutting down: hand the job back so the next worker retries it
		requeueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requeueTimeout)
		defer cancel()
		if err := w.queue.Push(requeueCtx, string(payload)); err != nil {
			slog.Error("error re-queueing refresh job on shutdown", "job_id", job.ID, "error", err)
		}
		return ctx.Err()
	case <-time.After(w.backoff(job.Attempts)):
	}

	if err := w.queue.Push(ctx, string(payload)); err != nil {
		slog.Error("error re-queueing refresh job", "job_id", job.ID, "error", err)
	}
	return nil
}

// Schedule runs a refresh immediately and then on every tick of interval.
func Schedule(ctx context.Context, runner Runner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := runner.Run(ctx); err != nil {
			slog.Error("scheduled refresh failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
