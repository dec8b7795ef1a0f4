// Package notify delivers a copy of every placed order to the store mailbox
// through an asynq background task.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tienda-api/internal/events"
)

// TypeOrderNotify is the asynq task type for store order notifications.
const TypeOrderNotify = "order:notify"

// OrderPayload is carried by order.created events and order:notify tasks.
type OrderPayload struct {
	OrderNumber   string    `json:"orderNumber"`
	To            string    `json:"to,omitempty"`
	StoreName     string    `json:"storeName"`
	PaymentMethod string    `json:"paymentMethod"`
	Total         int64     `json:"total"`
	Currency      string    `json:"currency,omitempty"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Validate checks the fields the worker needs.
func (p OrderPayload) Validate() error {
	if strings.TrimSpace(p.OrderNumber) == "" {
		return errors.New("notify: order number is required")
	}
	if strings.TrimSpace(p.Message) == "" {
		return errors.New("notify: message is required")
	}
	return nil
}

// NewOrderTask encodes p as an order:notify task.
func NewOrderTask(p OrderPayload) (*asynq.Task, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("notify: encode payload: %w", err)
	}
	return asynq.NewTask(TypeOrderNotify, raw), nil
}

// TaskEnqueuer is the subset of *asynq.Client used by Publisher.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher enqueues order notifications. The order number is the task id,
// so the same order is queued at most once while its task is retained.
type Publisher struct {
	Client    TaskEnqueuer
	Queue     string
	MaxRetry  int
	Retention time.Duration
	Logger    zerolog.Logger
}

// NotifyOrder enqueues p.
func (p *Publisher) NotifyOrder(ctx context.Context, payload OrderPayload) error {
	if p == nil || p.Client == nil {
		return nil
	}
	task, err := NewOrderTask(payload)
	if err != nil {
		return err
	}
	opts := []asynq.Option{asynq.TaskID("order-notify:" + payload.OrderNumber)}
	if p.Queue != "" {
		opts = append(opts, asynq.Queue(p.Queue))
	}
	if p.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(p.MaxRetry))
	}
	if p.Retention > 0 {
		opts = append(opts, asynq.Retention(p.Retention))
	}
	info, err := p.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("notify: enqueue %s: %w", payload.OrderNumber, err)
	}
	if info != nil {
		p.Logger.Debug().Str("task_id", info.ID).Str("queue", info.Queue).Msg("order notification queued")
	}
	return nil
}

// OnOrderCreated is an events.Handler for order.created.
func (p *Publisher) OnOrderCreated(ctx context.Context, ev events.Event) error {
	var payload OrderPayload
	if err := ev.Decode(&payload); err != nil {
		return fmt.Errorf("notify: decode %s: %w", ev.Topic, err)
	}
	return p.NotifyOrder(ctx, payload)
}
