package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/pricing"
)

// ErrItemNotFound indicates the cart has no line with the given key.
var ErrItemNotFound = errors.New("cart item not found")

const (
	defaultMaxQty = 99
	maxTxRetries  = 5
)

// Catalog snapshots products into cart lines.
type Catalog interface {
	LineItem(productID, color string, qty int) (pricing.LineItem, error)
}

// Item is one cart line.
type Item struct {
	Key string `json:"key"`
	pricing.LineItem
	AddedAt time.Time `json:"addedAt"`
	// Unavailable is set when the catalog no longer sells the line.
	Unavailable string `json:"unavailable,omitempty"`
}

// Cart is the session cart.
type Cart struct {
	Items    []Item        `json:"items"`
	Count    int           `json:"count"`
	Subtotal pricing.Money `json:"subtotal"`
}

// LineItems returns the pricing view of the cart.
func (c Cart) LineItems() []pricing.LineItem {
	out := make([]pricing.LineItem, 0, len(c.Items))
	for _, it := range c.Items {
		out = append(out, it.LineItem)
	}
	return out
}

// UnavailableItems returns the lines the catalog refused on the last read.
func (c Cart) UnavailableItems() []Item {
	var out []Item
	for _, it := range c.Items {
		if it.Unavailable != "" {
			out = append(out, it)
		}
	}
	return out
}

// ItemKey identifies a cart line by product and color.
func ItemKey(productID, color string) string {
	color = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(color), "#"))
	if color == "" {
		return productID
	}
	return productID + "-" + color
}

// Store keeps each session cart in a Redis hash keyed by item key.
type Store struct {
	R       *redis.Client
	Catalog Catalog
	TTL     time.Duration
	MaxQty  int
	Now     func() time.Time
}

func (s *Store) key(session string) string {
	return "cart:" + session
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) maxQty() int {
	if s.MaxQty <= 0 {
		return defaultMaxQty
	}
	return s.MaxQty
}

func (s *Store) ready() error {
	if s == nil || s.R == nil {
		return errors.New("cart store not configured")
	}
	return nil
}

// Get returns the cart ordered by the time items were added. Price and
// payment rules of every line are re-read from the catalog.
func (s *Store) Get(ctx context.Context, session string) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	raw, err := s.R.HGetAll(ctx, s.key(session)).Result()
	if err != nil {
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	c, err := decodeCart(raw)
	if err != nil {
		return Cart{}, err
	}
	return s.refresh(c), nil
}

// refresh replaces each stored snapshot with the current catalog line. Lines
// the catalog refuses keep their snapshot and are flagged Unavailable.
func (s *Store) refresh(c Cart) Cart {
	if s.Catalog == nil {
		return c
	}
	c.Subtotal = 0
	for i := range c.Items {
		it := &c.Items[i]
		line, err := s.Catalog.LineItem(it.ProductID, it.Color, it.Qty)
		if err != nil {
			it.Unavailable = unavailableReason(err)
		} else {
			it.LineItem = line
			it.Unavailable = ""
		}
		c.Subtotal += it.Subtotal()
	}
	return c
}

func unavailableReason(err error) string {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	var vErr *common.ValidationError
	if errors.As(err, &vErr) && vErr.Reason != "" {
		return vErr.Reason
	}
	return "no longer available"
}

// Add puts qty units of a product color in the cart, merging with an existing
// line. The product snapshot is refreshed from the catalog.
func (s *Store) Add(ctx context.Context, session, productID, color string, qty int) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	if qty < 1 {
		return Cart{}, common.NewValidationError("qty", "must be at least 1")
	}
	itemKey := ItemKey(productID, color)
	err := s.update(ctx, session, func(tx *redis.Tx) (*Item, error) {
		current, err := s.load(ctx, tx, session, itemKey)
		if err != nil && !errors.Is(err, ErrItemNotFound) {
			return nil, err
		}
		total := qty
		added := s.now()
		if current != nil {
			total += current.Qty
			added = current.AddedAt
		}
		if total > s.maxQty() {
			return nil, common.NewValidationError("qty", fmt.Sprintf("at most %d units per item", s.maxQty()))
		}
		line, err := s.Catalog.LineItem(productID, color, total)
		if err != nil {
			return nil, err
		}
		return &Item{Key: itemKey, LineItem: line, AddedAt: added}, nil
	})
	if err != nil {
		return Cart{}, err
	}
	return s.Get(ctx, session)
}

// UpdateQty changes a line quantity by delta. A resulting quantity below one
// removes the line.
func (s *Store) UpdateQty(ctx context.Context, session, itemKey string, delta int) (Cart, error) {
	if err := s.ready(); err != nil {
		return Cart{}, err
	}
	err := s.update(ctx, session, func(tx *redis.Tx) (*Item, error) {
		current, err := s.load(ctx, tx, session, itemKey)
		if err != nil {
			return nil, err
		}
		next := current.Qty + delta
		if next < 1 {
			return &Item{Key: itemKey}, nil
		}
		if next > s.maxQty() {
			return nil, common.NewValidationError("qty", fmt.Sprintf("at most %d units per item", s.maxQty()))
		}
		current.Qty = next
		return current, nil
	})
	if err != nil {
		return Cart{}, err
	}
	return s.Get(ctx, session)
}

// Remove deletes a line.
func (s *Store) Remove(ctx context.Context, session, itemKey string) error {
	if err := s.ready(); err != nil {
		return err
	}
	removed, err := s.R.HDel(ctx, s.key(session), itemKey).Result()
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	if removed == 0 {
		return itemNotFound()
	}
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context, session string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := s.R.Del(ctx, s.key(session)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// update runs mutate inside an optimistic WATCH transaction. A returned item
// with an empty Qty is deleted.
func (s *Store) update(ctx context.Context, session string, mutate func(tx *redis.Tx) (*Item, error)) error {
	key := s.key(session)
	txf := func(tx *redis.Tx) error {
		item, err := mutate(tx)
		if err != nil {
			return err
		}
		var payload []byte
		if item.Qty > 0 {
			if payload, err = json.Marshal(item); err != nil {
				return fmt.Errorf("encode cart item: %w", err)
			}
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if payload == nil {
				pipe.HDel(ctx, key, item.Key)
				return nil
			}
			pipe.HSet(ctx, key, item.Key, payload)
			if s.TTL > 0 {
				pipe.Expire(ctx, key, s.TTL)
			}
			return nil
		})
		return err
	}
	for i := 0; i < maxTxRetries; i++ {
		err := s.R.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return common.NewAppError("CART_CONFLICT", "cart was modified concurrently, retry", http.StatusConflict, redis.TxFailedErr)
}

func (s *Store) load(ctx context.Context, tx *redis.Tx, session, itemKey string) (*Item, error) {
	payload, err := tx.HGet(ctx, s.key(session), itemKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, itemNotFound()
		}
		return nil, fmt.Errorf("load cart item: %w", err)
	}
	var it Item
	if err := json.Unmarshal(payload, &it); err != nil {
		return nil, fmt.Errorf("decode cart item: %w", err)
	}
	return &it, nil
}

func decodeCart(raw map[string]string) (Cart, error) {
	c := Cart{Items: make([]Item, 0, len(raw))}
	for key, payload := range raw {
		var it Item
		if err := json.Unmarshal([]byte(payload), &it); err != nil {
			return Cart{}, fmt.Errorf("decode cart item %s: %w", key, err)
		}
		c.Items = append(c.Items, it)
		c.Count += it.Qty
		c.Subtotal += it.Subtotal()
	}
	sort.Slice(c.Items, func(i, j int) bool {
		if c.Items[i].AddedAt.Equal(c.Items[j].AddedAt) {
			return c.Items[i].Key < c.Items[j].Key
		}
		return c.Items[i].AddedAt.Before(c.Items[j].AddedAt)
	})
	return c, nil
}

func itemNotFound() error {
	return common.NewAppError("NOT_FOUND", "cart item not found", http.StatusNotFound, ErrItemNotFound)
}
