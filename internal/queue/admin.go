// Package queue exposes admin endpoints over the order notification queue:
// depth, failed deliveries and replay.
package queue

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/tienda-api/internal/common"
	"github.com/noah-isme/tienda-api/internal/notify"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Inspector is the subset of *asynq.Inspector used by AdminHandler.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunTask(queue, id string) error
	RunAllArchivedTasks(queue string) (int, error)
	DeleteTask(queue, id string) error
}

// Stats is the JSON view of a queue snapshot.
type Stats struct {
	Queue     string  `json:"queue"`
	Size      int     `json:"size"`
	Pending   int     `json:"pending"`
	Active    int     `json:"active"`
	Scheduled int     `json:"scheduled"`
	Retry     int     `json:"retry"`
	Archived  int     `json:"archived"`
	Processed int     `json:"processedToday"`
	Failed    int     `json:"failedToday"`
	LatencyMS int64   `json:"latencyMs"`
	Paused    bool    `json:"paused"`
	ErrorRate float64 `json:"errorRate"`
}

// FailedTask is an archived notification with its decoded order summary.
type FailedTask struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	OrderNumber  string    `json:"orderNumber,omitempty"`
	Total        int64     `json:"total,omitempty"`
	Retried      int       `json:"retried"`
	MaxRetry     int       `json:"maxRetry"`
	LastError    string    `json:"lastError,omitempty"`
	LastFailedAt time.Time `json:"lastFailedAt"`
}

// AdminHandler serves the notification queue admin endpoints.
type AdminHandler struct {
	Inspector Inspector
	Queue     string
	Metrics   *Metrics
	Logger    zerolog.Logger
}

// Stats handles GET /api/v1/admin/notifications/stats.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	info, err := h.Inspector.GetQueueInfo(h.Queue)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		// Nothing has been enqueued yet.
		common.JSON(w, http.StatusOK, map[string]any{"data": Stats{Queue: h.Queue}})
		return
	}
	if err != nil {
		common.WriteError(w, common.NewAppError("QUEUE_UNAVAILABLE", "queue inspector unavailable", http.StatusServiceUnavailable, err))
		return
	}
	stats := Stats{
		Queue:     info.Queue,
		Size:      info.Size,
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Processed: info.Processed,
		Failed:    info.Failed,
		LatencyMS: info.Latency.Milliseconds(),
		Paused:    info.Paused,
	}
	if info.Processed > 0 {
		stats.ErrorRate = float64(info.Failed) / float64(info.Processed)
	}
	h.Metrics.observe(stats)
	common.JSON(w, http.StatusOK, map[string]any{"data": stats})
}

// ListFailed handles GET /api/v1/admin/notifications/failed.
func (h *AdminHandler) ListFailed(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, defaultPageSize)
	if perPage > maxPageSize {
		perPage = maxPageSize
	}
	tasks, err := h.Inspector.ListArchivedTasks(h.Queue, asynq.Page(page), asynq.PageSize(perPage))
	if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		common.WriteError(w, common.NewAppError("QUEUE_UNAVAILABLE", "queue inspector unavailable", http.StatusServiceUnavailable, err))
		return
	}
	items := make([]FailedTask, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, toFailedTask(t))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": map[string]int{"page": page, "per_page": perPage},
	})
}

type replayRequest struct {
	IDs []string `json:"ids"`
	All bool     `json:"all"`
}

// Replay handles POST /api/v1/admin/notifications/failed/replay. Either ids or
// all=true is required.
func (h *AdminHandler) Replay(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	ids := uniqueStrings(req.IDs)
	if len(ids) == 0 && !req.All {
		common.WriteError(w, common.NewValidationError("ids", "ids or all is required"))
		return
	}

	if req.All {
		n, err := h.Inspector.RunAllArchivedTasks(h.Queue)
		if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
			common.WriteError(w, common.NewAppError("QUEUE_UNAVAILABLE", "queue inspector unavailable", http.StatusServiceUnavailable, err))
			return
		}
		h.Logger.Info().Int("count", n).Msg("replayed all failed notifications")
		common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"replayed": n}})
		return
	}

	replayed := make([]string, 0, len(ids))
	failed := make(map[string]string)
	for _, id := range ids {
		if err := h.Inspector.RunTask(h.Queue, id); err != nil {
			failed[id] = replayFailure(err)
			continue
		}
		replayed = append(replayed, id)
	}
	h.Logger.Info().Strs("ids", replayed).Int("failed", len(failed)).Msg("replayed failed notifications")
	resp := map[string]any{"replayed": replayed}
	if len(failed) > 0 {
		resp["failed"] = failed
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": resp})
}

// Discard handles DELETE /api/v1/admin/notifications/failed/{taskID}.
func (h *AdminHandler) Discard(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "taskID"))
	if err := h.Inspector.DeleteTask(h.Queue, id); err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			common.WriteError(w, common.NewAppError("NOT_FOUND", "task not found", http.StatusNotFound, err))
			return
		}
		common.WriteError(w, common.NewAppError("QUEUE_UNAVAILABLE", "queue inspector unavailable", http.StatusServiceUnavailable, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toFailedTask(t *asynq.TaskInfo) FailedTask {
	out := FailedTask{
		ID:           t.ID,
		Type:         t.Type,
		Retried:      t.Retried,
		MaxRetry:     t.MaxRetry,
		LastError:    t.LastErr,
		LastFailedAt: t.LastFailedAt,
	}
	if t.Type == notify.TypeOrderNotify {
		var p notify.OrderPayload
		if err := json.Unmarshal(t.Payload, &p); err == nil {
			out.OrderNumber = p.OrderNumber
			out.Total = p.Total
		}
	}
	return out
}

func replayFailure(err error) string {
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
		return "not found"
	default:
		return err.Error()
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
