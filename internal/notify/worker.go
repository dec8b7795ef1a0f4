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

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/resilience"
)

// Worker handles order:notify tasks.
type Worker struct {
	Mail common.EmailSender
	// To is the store mailbox used when the payload names none.
	To     string
	Guard  resilience.Guard
	Logger zerolog.Logger
}

// Register binds the worker's handlers on mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeOrderNotify, w.HandleOrderNotify)
}

// HandleOrderNotify mails the composed order message to the store. Malformed
// payloads are not retried.
func (w *Worker) HandleOrderNotify(ctx context.Context, t *asynq.Task) error {
	var p OrderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("notify: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	to := strings.TrimSpace(p.To)
	if to == "" {
		to = strings.TrimSpace(w.To)
	}
	log := w.Logger.With().Str("order_number", p.OrderNumber).Logger()
	if to == "" {
		log.Warn().Msg("no store mailbox configured, order notification dropped")
		return nil
	}
	if w.Mail == nil {
		return errors.New("notify: email sender not configured")
	}
	subject := fmt.Sprintf("Nuevo pedido %s", p.OrderNumber)
	if p.StoreName != "" {
		subject += " - " + p.StoreName
	}
	err := w.Guard.Do(ctx, func(context.Context) error {
		return w.Mail.Send(to, subject, p.Message)
	})
	if errors.Is(err, resilience.ErrPermanent) {
		log.Error().Err(err).Msg("order notification rejected")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err != nil {
		log.Warn().Err(err).Msg("order notification failed")
		return err
	}
	log.Info().Str("to", to).Int64("total", p.Total).Msg("order notification sent")
	return nil
}

// RetryDelay spaces retries exponentially from ten seconds, and waits a full
// minute while the mail breaker is open.
func RetryDelay(n int, err error, _ *asynq.Task) time.Duration {
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return time.Minute
	}
	return resilience.Backoff(10*time.Second, n+1, 0.2)
}

// Logger adapts zerolog to asynq.Logger.
type Logger struct {
	L zerolog.Logger
}

func (l Logger) Debug(args ...any) { l.L.Debug().Msg(fmt.Sprint(args...)) }
func (l Logger) Info(args ...any)  { l.L.Info().Msg(fmt.Sprint(args...)) }
func (l Logger) Warn(args ...any)  { l.L.Warn().Msg(fmt.Sprint(args...)) }
func (l Logger) Error(args ...any) { l.L.Error().Msg(fmt.Sprint(args...)) }
func (l Logger) Fatal(args ...any) { l.L.Fatal().Msg(fmt.Sprint(args...)) }
