package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Message is what the queue carries for every committed transfer.
type Message struct {
	ToWalletID    uuid.UUID `json:"to_wallet_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Sender delivers a message to the wallet owner.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LoggerSender writes notifications to the structured logger.
type LoggerSender struct {
	logger *slog.Logger
}

func NewLoggerSender(logger *slog.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

func (s *LoggerSender) Send(_ context.Context, msg Message) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("notification sent",
		"to_wallet", msg.ToWalletID,
		"transaction_id", msg.TransactionID,
	)
	return nil
}

// Queue pushes transfer notifications onto a Redis list. It is registered as
// a post-commit hook on the transfer service.
type Queue struct {
	client *redis.Client
	key    string
}

func NewQueue(client *redis.Client, key string) *Queue {
	return &Queue{client: client, key: key}
}

func (q *Queue) Key() string {
	return q.key
}

func (q *Queue) DeadKey() string {
	return q.key + ":dead"
}

func (q *Queue) TransferCommitted(ctx context.Context, toWalletID, transactionID uuid.UUID) error {
	raw, err := json.Marshal(Message{
		ToWalletID:    toWalletID,
		TransactionID: transactionID,
		EnqueuedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("TransferCommitted: encode: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("TransferCommitted: %w", err)
	}
	return nil
}
