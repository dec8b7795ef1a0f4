package queue_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tienda-api/internal/notify"
	"github.com/noah-isme/tienda-api/internal/queue"
)

type fakeInspector struct {
	info     *asynq.QueueInfo
	infoErr  error
	archived []*asynq.TaskInfo
	ran      []string
	deleted  []string
}

func (f *fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeInspector) ListArchivedTasks(_ string, _ ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return f.archived, nil
}

func (f *fakeInspector) RunTask(_, id string) error {
	for _, t := range f.archived {
		if t.ID == id {
			f.ran = append(f.ran, id)
			return nil
		}
	}
	return asynq.ErrTaskNotFound
}

func (f *fakeInspector) RunAllArchivedTasks(string) (int, error) {
	n := len(f.archived)
	f.archived = nil
	return n, nil
}

func (f *fakeInspector) DeleteTask(_, id string) error {
	for _, t := range f.archived {
		if t.ID == id {
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return asynq.ErrTaskNotFound
}

func archivedTask(t *testing.T, id, number string) *asynq.TaskInfo {
	t.Helper()
	raw, err := json.Marshal(notify.OrderPayload{OrderNumber: number, Total: 30500, Message: "hola"})
	require.NoError(t, err)
	return &asynq.TaskInfo{
		ID:           id,
		Type:         notify.TypeOrderNotify,
		Payload:      raw,
		Retried:      8,
		MaxRetry:     8,
		LastErr:      "smtp: connection refused",
		LastFailedAt: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func newRouter(h *queue.AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/stats", h.Stats)
	r.Get("/failed", h.ListFailed)
	r.Post("/failed/replay", h.Replay)
	r.Delete("/failed/{taskID}", h.Discard)
	return r
}

func TestStatsReportsQueueAndUpdatesGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := queue.NewMetrics("test", reg)
	insp := &fakeInspector{info: &asynq.QueueInfo{
		Queue:     "notifications",
		Size:      4,
		Pending:   2,
		Retry:     1,
		Archived:  1,
		Processed: 10,
		Failed:    2,
		Latency:   1500 * time.Millisecond,
	}}
	h := &queue.AdminHandler{Inspector: insp, Queue: "notifications", Metrics: metrics, Logger: zerolog.Nop()}

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data queue.Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Data.Pending)
	require.Equal(t, int64(1500), body.Data.LatencyMS)
	require.InDelta(t, 0.2, body.Data.ErrorRate, 1e-9)
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.Depth.WithLabelValues("notifications", "pending")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Archived.WithLabelValues("notifications")))
}

func TestStatsEmptyQueue(t *testing.T) {
	h := &queue.AdminHandler{Inspector: &fakeInspector{infoErr: asynq.ErrQueueNotFound}, Queue: "notifications"}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"queue":"notifications"`)
}

func TestStatsInspectorDown(t *testing.T) {
	h := &queue.AdminHandler{Inspector: &fakeInspector{infoErr: errors.New("dial tcp: refused")}, Queue: "notifications"}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "QUEUE_UNAVAILABLE")
}

func TestListFailedDecodesOrder(t *testing.T) {
	insp := &fakeInspector{archived: []*asynq.TaskInfo{archivedTask(t, "t1", "ORD-20250314-0001")}}
	h := &queue.AdminHandler{Inspector: insp, Queue: "notifications"}

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/failed?page=1&limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data       []queue.FailedTask `json:"data"`
		Pagination map[string]int     `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "ORD-20250314-0001", body.Data[0].OrderNumber)
	require.Equal(t, int64(30500), body.Data[0].Total)
	require.Equal(t, "smtp: connection refused", body.Data[0].LastError)
	require.Equal(t, 100, body.Pagination["per_page"])
}

func TestReplayByIDs(t *testing.T) {
	insp := &fakeInspector{archived: []*asynq.TaskInfo{archivedTask(t, "t1", "ORD-1"), archivedTask(t, "t2", "ORD-2")}}
	h := &queue.AdminHandler{Inspector: insp, Queue: "notifications", Logger: zerolog.Nop()}

	payload := []byte(`{"ids":["t1"," t1 ","missing"]}`)
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/failed/replay", bytes.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"t1"}, insp.ran)

	var body struct {
		Data struct {
			Replayed []string          `json:"replayed"`
			Failed   map[string]string `json:"failed"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{"t1"}, body.Data.Replayed)
	require.Equal(t, "not found", body.Data.Failed["missing"])
}

func TestReplayAll(t *testing.T) {
	insp := &fakeInspector{archived: []*asynq.TaskInfo{archivedTask(t, "t1", "ORD-1"), archivedTask(t, "t2", "ORD-2")}}
	h := &queue.AdminHandler{Inspector: insp, Queue: "notifications", Logger: zerolog.Nop()}

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/failed/replay", bytes.NewReader([]byte(`{"all":true}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"replayed":2`)
	require.Empty(t, insp.archived)
}

func TestReplayRequiresSelection(t *testing.T) {
	h := &queue.AdminHandler{Inspector: &fakeInspector{}, Queue: "notifications"}
	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/failed/replay", bytes.NewReader([]byte(`{}`))))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDiscard(t *testing.T) {
	insp := &fakeInspector{archived: []*asynq.TaskInfo{archivedTask(t, "t1", "ORD-1")}}
	h := &queue.AdminHandler{Inspector: insp, Queue: "notifications"}

	rec := httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/failed/t1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []string{"t1"}, insp.deleted)

	rec = httptest.NewRecorder()
	newRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/failed/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
