// Package wishlist keeps the products a shopper session saved for later.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/tienda-api/internal/cart"
	"github.com/noah-isme/tienda-api/internal/catalog"
	"github.com/noah-isme/tienda-api/internal/common"
)

// ErrNotInWishlist is returned when the product is not saved.
var ErrNotInWishlist = errors.New("product not in wishlist")

// Products resolves wishlist entries.
type Products interface {
	Product(id string) (catalog.Product, error)
}

// Cart receives items moved out of the wishlist.
type Cart interface {
	Add(ctx context.Context, session, productID, color string, qty int) (cart.Cart, error)
}

// Store keeps each wishlist in a Redis sorted set scored by the time the
// product was added.
type Store struct {
	R        *redis.Client
	Products Products
	Cart     Cart
	TTL      time.Duration
	Now      func() time.Time
}

func (s *Store) key(session string) string {
	return "wishlist:" + session
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Add saves a product. Adding twice keeps the original position.
func (s *Store) Add(ctx context.Context, session, productID string) error {
	if _, err := s.Products.Product(productID); err != nil {
		return err
	}
	key := s.key(session)
	pipe := s.R.TxPipeline()
	pipe.ZAddNX(ctx, key, redis.Z{Score: float64(s.now().UnixNano()), Member: productID})
	if s.TTL > 0 {
		pipe.Expire(ctx, key, s.TTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return nil
}

// Remove drops a product.
func (s *Store) Remove(ctx context.Context, session, productID string) error {
	removed, err := s.R.ZRem(ctx, s.key(session), productID).Result()
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	if removed == 0 {
		return common.NewAppError("NOT_FOUND", "product not in wishlist", http.StatusNotFound, ErrNotInWishlist)
	}
	return nil
}

// Contains reports whether the product is saved.
func (s *Store) Contains(ctx context.Context, session, productID string) (bool, error) {
	_, err := s.R.ZScore(ctx, s.key(session), productID).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check wishlist item: %w", err)
	}
	return true, nil
}

// List returns the saved products, oldest first. Products no longer in the
// catalog are skipped.
func (s *Store) List(ctx context.Context, session string) ([]catalog.Product, error) {
	ids, err := s.R.ZRange(ctx, s.key(session), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, err := s.Products.Product(id)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// MoveToCart adds one unit of the product to the cart and removes it from the
// wishlist. An empty color picks the product's first color.
func (s *Store) MoveToCart(ctx context.Context, session, productID, color string) (cart.Cart, error) {
	ok, err := s.Contains(ctx, session, productID)
	if err != nil {
		return cart.Cart{}, err
	}
	if !ok {
		return cart.Cart{}, common.NewAppError("NOT_FOUND", "product not in wishlist", http.StatusNotFound, ErrNotInWishlist)
	}
	if color == "" {
		p, err := s.Products.Product(productID)
		if err != nil {
			return cart.Cart{}, err
		}
		if len(p.Colors) > 0 {
			color = p.Colors[0].Hex
		}
	}
	c, err := s.Cart.Add(ctx, session, productID, color, 1)
	if err != nil {
		return cart.Cart{}, err
	}
	if err := s.R.ZRem(ctx, s.key(session), productID).Err(); err != nil {
		return cart.Cart{}, fmt.Errorf("remove wishlist item: %w", err)
	}
	return c, nil
}
