package address

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/tienda-api/internal/common"
)

// ErrNotFound is returned when the session has no address with the given id.
var ErrNotFound = errors.New("address not found")

const defaultMaxEntries = 20

// Book stores the address book of each shopper session as a Redis hash keyed
// by address id.
type Book struct {
	R          *redis.Client
	TTL        time.Duration
	MaxEntries int
	Now        func() time.Time
}

func (b *Book) key(session string) string {
	return "addresses:" + session
}

func (b *Book) now() time.Time {
	if b.Now != nil {
		return b.Now().UTC()
	}
	return time.Now().UTC()
}

func (b *Book) ready() error {
	if b == nil || b.R == nil {
		return errors.New("address book not configured")
	}
	return nil
}

// List returns the saved addresses ordered by creation time.
func (b *Book) List(ctx context.Context, session string) ([]Address, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	raw, err := b.R.HGetAll(ctx, b.key(session)).Result()
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	out := make([]Address, 0, len(raw))
	for id, payload := range raw {
		var a Address
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("decode address %s: %w", id, err)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Get returns a single address.
func (b *Book) Get(ctx context.Context, session, id string) (Address, error) {
	if err := b.ready(); err != nil {
		return Address{}, err
	}
	payload, err := b.R.HGet(ctx, b.key(session), id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Address{}, notFound()
		}
		return Address{}, fmt.Errorf("get address: %w", err)
	}
	var a Address
	if err := json.Unmarshal(payload, &a); err != nil {
		return Address{}, fmt.Errorf("decode address: %w", err)
	}
	return a, nil
}

// Create validates and stores a new address.
func (b *Book) Create(ctx context.Context, session string, input Address) (Address, error) {
	if err := b.ready(); err != nil {
		return Address{}, err
	}
	a := input.Normalize()
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	count, err := b.R.HLen(ctx, b.key(session)).Result()
	if err != nil {
		return Address{}, fmt.Errorf("count addresses: %w", err)
	}
	if int(count) >= b.maxEntries() {
		return Address{}, common.NewAppError("ADDRESS_LIMIT", fmt.Sprintf("at most %d addresses per session", b.maxEntries()), http.StatusConflict, nil)
	}
	now := b.now()
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now
	if err := b.put(ctx, session, a); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Update replaces an existing address, keeping its id and creation time.
func (b *Book) Update(ctx context.Context, session, id string, input Address) (Address, error) {
	existing, err := b.Get(ctx, session, id)
	if err != nil {
		return Address{}, err
	}
	a := input.Normalize()
	if err := a.Validate(); err != nil {
		return Address{}, err
	}
	a.ID = existing.ID
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = b.now()
	if err := b.put(ctx, session, a); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Delete removes an address.
func (b *Book) Delete(ctx context.Context, session, id string) error {
	if err := b.ready(); err != nil {
		return err
	}
	removed, err := b.R.HDel(ctx, b.key(session), id).Result()
	if err != nil {
		return fmt.Errorf("delete address: %w", err)
	}
	if removed == 0 {
		return notFound()
	}
	return nil
}

func (b *Book) put(ctx context.Context, session string, a Address) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	key := b.key(session)
	pipe := b.R.TxPipeline()
	pipe.HSet(ctx, key, a.ID, payload)
	if b.TTL > 0 {
		pipe.Expire(ctx, key, b.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store address: %w", err)
	}
	return nil
}

func (b *Book) maxEntries() int {
	if b.MaxEntries <= 0 {
		return defaultMaxEntries
	}
	return b.MaxEntries
}

func notFound() error {
	return common.NewAppError("NOT_FOUND", "address not found", http.StatusNotFound, ErrNotFound)
}
