// Package audit keeps a capped log of admin changes to the store
// configuration in Redis.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/obs"
)

const (
	defaultKey        = "audit:admin"
	defaultMaxEntries = 500
	maxStringLen      = 256
)

// Entry is one recorded admin action.
type Entry struct {
	ID        string          `json:"id"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	Status    int             `json:"status"`
	IP        string          `json:"ip,omitempty"`
	UserAgent string          `json:"userAgent,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Log appends entries to a Redis list trimmed to MaxEntries, newest first.
type Log struct {
	R          redis.UniversalClient
	Key        string
	MaxEntries int
	Now        func() time.Time
}

// Record stores an entry describing req. Action defaults to "METHOD route".
func (l *Log) Record(ctx context.Context, req *http.Request, action, resource string, status int, metadata []byte) error {
	if l == nil || l.R == nil {
		return errors.New("audit: redis client not configured")
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	route := obs.RoutePatternFromContext(req.Context())
	if route == "" {
		route = strings.TrimSpace(req.URL.Path)
	}
	actor, ok := common.AdminID(req.Context())
	if !ok {
		actor = "anonymous"
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Actor:     truncate(actor),
		Action:    buildAction(action, req.Method, route),
		Resource:  valueOr(resource, route),
		Status:    status,
		IP:        truncate(common.ClientIP(req)),
		UserAgent: truncate(req.UserAgent()),
		RequestID: truncate(req.Header.Get("X-Request-ID")),
		CreatedAt: l.now(),
	}
	if len(metadata) > 0 && json.Valid(metadata) {
		entry.Metadata = metadata
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("audit: encode entry: %w", err)
	}
	pipe := l.R.TxPipeline()
	pipe.LPush(ctx, l.key(), raw)
	pipe.LTrim(ctx, l.key(), 0, int64(l.maxEntries()-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("audit: append entry: %w", err)
	}
	return nil
}

// List returns up to limit entries starting at offset, newest first.
func (l *Log) List(ctx context.Context, limit, offset int) ([]Entry, int64, error) {
	total, err := l.R.LLen(ctx, l.key()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("audit: count entries: %w", err)
	}
	raws, err := l.R.LRange(ctx, l.key(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("audit: list entries: %w", err)
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, total, nil
}

func (l *Log) key() string {
	if l.Key == "" {
		return defaultKey
	}
	return l.Key
}

func (l *Log) maxEntries() int {
	if l.MaxEntries <= 0 {
		return defaultMaxEntries
	}
	return l.MaxEntries
}

func (l *Log) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func buildAction(action, method, route string) string {
	if a := strings.TrimSpace(action); a != "" {
		return a
	}
	return strings.ToUpper(method) + " " + route
}

func valueOr(v, fallback string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return fallback
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStringLen {
		return s[:maxStringLen]
	}
	return s
}
