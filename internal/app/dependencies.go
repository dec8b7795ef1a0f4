// Package app builds the infrastructure clients shared by the API and worker
// processes.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/tienda-api/internal/config"
	"github.com/noah-isme/tienda-api/internal/resilience"
	"github.com/noah-isme/tienda-api/internal/storeconfig"
)

// NewRedis connects to url, instruments the client with OpenTelemetry and
// verifies the connection.
func NewRedis(ctx context.Context, url string, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// NewLoginLimiter throttles admin logins. rate uses the ulule format, e.g. "5-M".
func NewLoginLimiter(rdb *redis.Client, rate string) (*limiter.Limiter, error) {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("login rate %q: %w", rate, err)
	}
	store, err := limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: "limiter:admin-login"})
	if err != nil {
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	return limiter.New(store, parsed), nil
}

// TaskRedis converts the Redis url into asynq connection options.
func TaskRedis(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url for asynq: %w", err)
	}
	return opt, nil
}

// NewTaskClient returns the asynq client used to enqueue order notifications.
func NewTaskClient(url string) (*asynq.Client, error) {
	opt, err := TaskRedis(url)
	if err != nil {
		return nil, err
	}
	return asynq.NewClient(opt), nil
}

// NewTaskInspector returns the asynq inspector backing the notification admin.
func NewTaskInspector(url string) (*asynq.Inspector, error) {
	opt, err := TaskRedis(url)
	if err != nil {
		return nil, err
	}
	return asynq.NewInspector(opt), nil
}

// StoreDefaults maps the STORE_* environment onto the default configuration.
func StoreDefaults(cfg *config.Config) storeconfig.Config {
	return storeconfig.Defaults(storeconfig.StoreInfo{
		Name:     cfg.StoreName,
		WhatsApp: cfg.StoreWhatsApp,
		Address:  cfg.StoreAddress,
		Hours:    cfg.StoreHours,
		Email:    cfg.StoreEmail,
	})
}

// MailGuard wraps store mail delivery in retries and a circuit breaker.
func MailGuard(cfg *config.Config, logger zerolog.Logger) resilience.Guard {
	breaker := resilience.NewBreaker(cfg.MailFailureLimit, 0.5, cfg.MailOpenTimeout).
		WithTarget("order_mail").
		WithLogger(logger)
	return resilience.Guard{
		Breaker:     breaker,
		MaxAttempts: 3,
		BaseBackoff: 200 * time.Millisecond,
		Jitter:      0.2,
		Timeout:     10 * time.Second,
	}
}

// NewRegistry returns a Prometheus registry with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
