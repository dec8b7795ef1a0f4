package storeconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tienda-api/internal/catalog"
	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/coupon"
	"github.com/noah-isme/tienda-api/internal/currency"
	"github.com/noah-isme/tienda-api/internal/events"
	"github.com/noah-isme/tienda-api/internal/lock"
	"github.com/noah-isme/tienda-api/internal/pricing"
	"github.com/noah-isme/tienda-api/internal/shipping"
)

const (
	// Key holds the persisted configuration document.
	Key = "storeconfig:current"

	lockName = "storeconfig"
	lockTTL  = 10 * time.Second
)

// Service reads and writes the store configuration. Reads fall back to
// Defaults until the first write; writes are serialised across instances
// with Locker and announced on Bus.
type Service struct {
	R        *redis.Client
	Locker   lock.Locker
	Bus      *events.Bus
	Defaults Config
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Current returns the active configuration.
func (s *Service) Current(ctx context.Context) (Config, error) {
	raw, err := s.R.Get(ctx, Key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.Defaults.Clone(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("storeconfig: load: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("storeconfig: decode: %w", err)
	}
	if cfg.Products == nil {
		cfg.Products = map[string]catalog.Override{}
	}
	if cfg.Surcharge.CategoryPercents == nil {
		cfg.Surcharge.CategoryPercents = map[string]int{}
	}
	return cfg, nil
}

// Coupons returns the configured coupon book.
func (s *Service) Coupons(ctx context.Context) (coupon.Rules, error) {
	cfg, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Coupons, nil
}

// Money returns a formatter for the configured display currency. A broken
// persisted currency section falls back to the default settings.
func (s *Service) Money(ctx context.Context) *currency.Formatter {
	cfg, err := s.Current(ctx)
	if err == nil {
		if f, ferr := currency.NewFormatter(cfg.Currency); ferr == nil {
			return f
		}
	}
	return currency.MustFormatter(currency.DefaultSettings())
}

// Surcharge returns the transfer surcharge config. A load failure falls back
// to the defaults so cart views keep rendering.
func (s *Service) Surcharge(ctx context.Context) pricing.SurchargeConfig {
	cfg, err := s.Current(ctx)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("load surcharge config, using defaults")
		return s.Defaults.Surcharge.Clone()
	}
	return cfg.Surcharge
}

// UpdateStore replaces the store card.
func (s *Service) UpdateStore(ctx context.Context, info StoreInfo) (Config, error) {
	if err := info.Validate(); err != nil {
		return Config{}, err
	}
	return s.update(ctx, events.TopicStoreUpdated, func(c *Config) any {
		c.Store = info
		return c.Store
	})
}

// UpdateZones replaces the delivery zones.
func (s *Service) UpdateZones(ctx context.Context, zones shipping.Zones) (Config, error) {
	if err := validateZones(zones); err != nil {
		return Config{}, err
	}
	return s.update(ctx, events.TopicZonesUpdated, func(c *Config) any {
		c.Zones = zones.Clone()
		return c.Zones
	})
}

// UpdateSurcharge replaces the bank transfer surcharge settings.
func (s *Service) UpdateSurcharge(ctx context.Context, surcharge pricing.SurchargeConfig) (Config, error) {
	if err := surcharge.Validate(); err != nil {
		return Config{}, err
	}
	return s.update(ctx, events.TopicSurchargeUpdated, func(c *Config) any {
		c.Surcharge = surcharge.Clone()
		return c.Surcharge
	})
}

// UpdateCoupons replaces the coupon book.
func (s *Service) UpdateCoupons(ctx context.Context, rules coupon.Rules) (Config, error) {
	if err := rules.Validate(); err != nil {
		return Config{}, err
	}
	return s.update(ctx, events.TopicCouponsUpdated, func(c *Config) any {
		c.Coupons = append(coupon.Rules(nil), rules...)
		return map[string]int{"count": len(c.Coupons)}
	})
}

// UpdateCurrency replaces the currency settings.
func (s *Service) UpdateCurrency(ctx context.Context, settings currency.Settings) (Config, error) {
	if err := validateCurrency(settings); err != nil {
		return Config{}, err
	}
	return s.update(ctx, events.TopicCurrencyUpdated, func(c *Config) any {
		c.Currency = settings
		return c.Currency
	})
}

// UpdateProducts replaces the per-product payment overrides.
func (s *Service) UpdateProducts(ctx context.Context, overrides map[string]catalog.Override) (Config, error) {
	if err := validateProducts(overrides); err != nil {
		return Config{}, err
	}
	return s.update(ctx, events.TopicProductsUpdated, func(c *Config) any {
		c.Products = make(map[string]catalog.Override, len(overrides))
		for id, o := range overrides {
			c.Products[id] = o
		}
		return c.Products
	})
}

// update applies mutate to the current configuration under the lock, stores
// it, and emits topic with the payload mutate returns. A failed emit is
// logged; the write has already happened.
func (s *Service) update(ctx context.Context, topic string, mutate func(*Config) any) (Config, error) {
	var (
		saved   Config
		payload any
	)
	err := s.Locker.WithLock(ctx, lockName, lockTTL, func(ctx context.Context) error {
		cfg, err := s.Current(ctx)
		if err != nil {
			return err
		}
		payload = mutate(&cfg)
		cfg.Version++
		cfg.UpdatedAt = s.now()
		raw, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("storeconfig: encode: %w", err)
		}
		if err := s.R.Set(ctx, Key, raw, 0).Err(); err != nil {
			return fmt.Errorf("storeconfig: save: %w", err)
		}
		saved = cfg
		return nil
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		return Config{}, common.NewAppError("CONFIG_BUSY", "configuration is being updated, retry shortly", http.StatusConflict, err)
	}
	if err != nil {
		return Config{}, err
	}
	s.Logger.Info().Str("topic", topic).Int64("version", saved.Version).Msg("store config updated")
	if s.Bus != nil {
		if _, err := s.Bus.Emit(ctx, topic, payload); err != nil {
			s.Logger.Warn().Err(err).Str("topic", topic).Msg("config event delivery failed")
		}
	}
	return saved, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// SurchargeApplier rebuilds derived product prices.
type SurchargeApplier interface {
	ApplySurcharge(ctx context.Context, overrides map[string]catalog.Override, cfg pricing.SurchargeConfig) error
}

// SyncCatalog applies the current overrides and surcharge to c, then again on
// every products or surcharge change seen on bus. The returned function
// removes the subscriptions.
func (s *Service) SyncCatalog(ctx context.Context, bus *events.Bus, c SurchargeApplier) (func(), error) {
	apply := func(ctx context.Context, _ events.Event) error {
		cfg, err := s.Current(ctx)
		if err != nil {
			return err
		}
		return c.ApplySurcharge(ctx, cfg.Products, cfg.Surcharge)
	}
	if err := apply(ctx, events.Event{}); err != nil {
		return nil, err
	}
	unsubProducts := bus.Subscribe(events.TopicProductsUpdated, apply)
	unsubSurcharge := bus.Subscribe(events.TopicSurchargeUpdated, apply)
	return func() {
		unsubProducts()
		unsubSurcharge()
	}, nil
}
