package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
)

const popTimeout = time.Second

type WorkerConfig struct {
	MaxRetries uint64
	RetryDelay time.Duration
}

// Worker drains the notification queue. A message that still fails after
// MaxRetries redeliveries is moved to the dead list untouched.
type Worker struct {
	queue  *Queue
	sender Sender
	cfg    WorkerConfig
	logger *slog.Logger
}

func NewWorker(queue *Queue, sender Sender, cfg WorkerConfig, logger *slog.Logger) *Worker {
	return &Worker{
		queue:  queue,
		sender: sender,
		cfg:    cfg,
		logger: logger,
	}
}

// Start blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("notification worker started", "queue", w.queue.Key())

	for {
		if ctx.Err() != nil {
			w.logger.Info("notification worker stopped")
			return
		}

		if _, err := w.processNext(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("notification worker poll failed", "error", err)
			w.pause(ctx)
		}
	}
}

// processNext waits up to popTimeout for one message and handles it. It
// reports false when the queue was empty.
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	res, err := w.queue.client.BRPop(ctx, popTimeout, w.queue.Key()).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("processNext: %w", err)
	}

	// BRPOP replies with [key, value].
	raw := res[1]
	w.handle(ctx, raw)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, raw string) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		w.logger.Error("malformed notification", "error", err)
		w.deadLetter(ctx, raw)
		return
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(w.cfg.RetryDelay), w.cfg.MaxRetries),
		ctx,
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := w.sender.Send(ctx, msg); err != nil {
			w.logger.Warn("notification delivery failed",
				"transaction_id", msg.TransactionID,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		w.logger.Error("notification dead-lettered",
			"transaction_id", msg.TransactionID,
			"to_wallet", msg.ToWalletID,
			"attempts", attempt,
			"error", err,
		)
		w.deadLetter(ctx, raw)
	}
}

func (w *Worker) deadLetter(ctx context.Context, raw string) {
	// the message is already off the main queue, so a cancelled ctx must not
	// lose it
	ctx = context.WithoutCancel(ctx)
	if err := w.queue.client.LPush(ctx, w.queue.DeadKey(), raw).Err(); err != nil {
		w.logger.Error("failed to dead-letter notification", "error", err)
	}
}

func (w *Worker) pause(ctx context.Context) {
	t := time.NewTimer(w.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
