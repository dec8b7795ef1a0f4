package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/events"
	"github.com/noah-isme/tienda-api/internal/notify"
	"github.com/noah-isme/tienda-api/internal/resilience"
)

type fakeQueue struct {
	tasks []*asynq.Task
	ids   map[string]bool
	err   error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.ids == nil {
		f.ids = map[string]bool{}
	}
	for _, o := range opts {
		if o.Type() == asynq.TaskIDOpt {
			id := o.Value().(string)
			if f.ids[id] {
				return nil, asynq.ErrTaskIDConflict
			}
			f.ids[id] = true
		}
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t", Queue: "default"}, nil
}

type flakyMail struct {
	failures int
	err      error
	sent     []common.Email
}

func (f *flakyMail) Send(to, subject, body string) error {
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	f.sent = append(f.sent, common.Email{To: to, Subject: subject, Body: body})
	return nil
}

func samplePayload() notify.OrderPayload {
	return notify.OrderPayload{
		OrderNumber:   "PED-240301-ABCDEF",
		StoreName:     "Tienda Oriente",
		PaymentMethod: "cash",
		Total:         258000,
		Message:       "🛒 *NUEVO PEDIDO - PED-240301-ABCDEF*",
		CreatedAt:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestPublisherDeduplicatesByOrderNumber(t *testing.T) {
	q := &fakeQueue{}
	pub := &notify.Publisher{Client: q, Queue: "notifications", MaxRetry: 5, Logger: zerolog.Nop()}

	require.NoError(t, pub.NotifyOrder(context.Background(), samplePayload()))
	require.NoError(t, pub.NotifyOrder(context.Background(), samplePayload()))
	require.Len(t, q.tasks, 1)
	require.Equal(t, notify.TypeOrderNotify, q.tasks[0].Type())
	require.True(t, q.ids["order-notify:PED-240301-ABCDEF"])
}

func TestPublisherRejectsIncompletePayload(t *testing.T) {
	pub := &notify.Publisher{Client: &fakeQueue{}}
	p := samplePayload()
	p.Message = ""
	require.Error(t, pub.NotifyOrder(context.Background(), p))
}

func TestPublisherSurfacesQueueErrors(t *testing.T) {
	pub := &notify.Publisher{Client: &fakeQueue{err: errors.New("redis down")}}
	require.ErrorContains(t, pub.NotifyOrder(context.Background(), samplePayload()), "redis down")
}

func TestPublisherOnOrderCreated(t *testing.T) {
	q := &fakeQueue{}
	pub := &notify.Publisher{Client: q, Logger: zerolog.Nop()}
	bus := &events.Bus{Logger: zerolog.Nop()}
	bus.Subscribe(events.TopicOrderCreated, pub.OnOrderCreated)

	_, err := bus.Emit(context.Background(), events.TopicOrderCreated, samplePayload())
	require.NoError(t, err)
	require.Len(t, q.tasks, 1)
}

func TestWorkerSendsToStoreMailbox(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := &notify.Worker{Mail: mail, To: "pedidos@tienda.test", Logger: zerolog.Nop()}
	task, err := notify.NewOrderTask(samplePayload())
	require.NoError(t, err)

	require.NoError(t, w.HandleOrderNotify(context.Background(), task))
	sent := mail.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "pedidos@tienda.test", sent[0].To)
	require.Equal(t, "Nuevo pedido PED-240301-ABCDEF - Tienda Oriente", sent[0].Subject)
	require.Equal(t, samplePayload().Message, sent[0].Body)
}

func TestWorkerRetriesTransientFailures(t *testing.T) {
	mail := &flakyMail{failures: 2, err: errors.New("timeout")}
	w := &notify.Worker{
		Mail:   mail,
		To:     "pedidos@tienda.test",
		Guard:  resilience.Guard{MaxAttempts: 3, BaseBackoff: time.Millisecond},
		Logger: zerolog.Nop(),
	}
	task, err := notify.NewOrderTask(samplePayload())
	require.NoError(t, err)
	require.NoError(t, w.HandleOrderNotify(context.Background(), task))
	require.Len(t, mail.sent, 1)
}

func TestWorkerSkipsRetryForBadInput(t *testing.T) {
	w := &notify.Worker{Mail: &common.InMemoryEmail{}, To: "pedidos@tienda.test", Logger: zerolog.Nop()}
	err := w.HandleOrderNotify(context.Background(), asynq.NewTask(notify.TypeOrderNotify, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	rejecting := &notify.Worker{
		Mail:   &flakyMail{failures: 1, err: errors.Join(resilience.ErrPermanent, errors.New("mailbox unknown"))},
		To:     "pedidos@tienda.test",
		Logger: zerolog.Nop(),
	}
	task, err := notify.NewOrderTask(samplePayload())
	require.NoError(t, err)
	require.ErrorIs(t, rejecting.HandleOrderNotify(context.Background(), task), asynq.SkipRetry)
}

func TestWorkerWithoutMailboxDrops(t *testing.T) {
	mail := &common.InMemoryEmail{}
	w := &notify.Worker{Mail: mail, Logger: zerolog.Nop()}
	task, err := notify.NewOrderTask(samplePayload())
	require.NoError(t, err)
	require.NoError(t, w.HandleOrderNotify(context.Background(), task))
	require.Empty(t, mail.Sent())
}

func TestRetryDelay(t *testing.T) {
	require.Equal(t, time.Minute, notify.RetryDelay(1, resilience.ErrOpenCircuit, nil))
	d := notify.RetryDelay(0, errors.New("x"), nil)
	require.GreaterOrEqual(t, d, 8*time.Second)
	require.LessOrEqual(t, d, 12*time.Second)
}
