package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/application/orchestrator"
	"github.com/tmforge/fulfilld/internal/domain"
	"github.com/tmforge/fulfilld/internal/ports"
	eventsmemory "github.com/tmforge/fulfilld/pkg/adapters/events/memory"
	"github.com/tmforge/fulfilld/pkg/adapters/metrics/noop"
	storagememory "github.com/tmforge/fulfilld/pkg/adapters/storage/memory"
)

type completeAll struct{}

func (completeAll) Executor(domain.TaskKind) (ports.TaskExecutor, bool) {
	return execFunc(func(context.Context, *domain.FulfillmentTask, *domain.FulfillmentContext) error {
		return nil
	}), true
}

type execFunc func(ctx context.Context, task *domain.FulfillmentTask, fc *domain.FulfillmentContext) error

func (f execFunc) Execute(ctx context.Context, task *domain.FulfillmentTask, fc *domain.FulfillmentContext) error {
	return f(ctx, task, fc)
}

func newTestServer(t *testing.T) (*Server, ports.ContextStore) {
	t.Helper()
	store := storagememory.NewContextStore()
	orch := orchestrator.New(
		store,
		eventsmemory.NewEventBus(),
		noop.NewCollector(),
		completeAll{},
		zap.NewNop(),
		5*time.Second,
	)
	return NewServer(&Config{Port: 0, Orchestrator: orch, Logger: zap.NewNop()}), store
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func submitOrder(t *testing.T, s *Server) uuid.UUID {
	t.Helper()
	itemID := uuid.New()
	body := fmt.Sprintf(`{"items":[{"id":%q,"action":"ADD","quantity":1}]}`, itemID)
	w := doRequest(s, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp OrderSubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	orderID, err := uuid.Parse(resp.OrderID)
	require.NoError(t, err)
	return orderID
}

func waitCompleted(t *testing.T, store ports.ContextStore, orderID uuid.UUID) {
	t.Helper()
	require.Eventually(t, func() bool {
		fc, err := store.Get(context.Background(), orderID)
		return err == nil && fc.State == domain.OrderCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestSubmitOrder(t *testing.T) {
	s, store := newTestServer(t)
	orderID := submitOrder(t, s)
	waitCompleted(t, store, orderID)
}

func TestSubmitOrderRejectsBadPayload(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(s, http.MethodPost, "/api/v1/orders", `{"no_items": true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodPost, "/api/v1/orders", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitDuplicateOrder(t *testing.T) {
	s, _ := newTestServer(t)
	orderID := uuid.New()
	body := fmt.Sprintf(`{"id":%q,"items":[{"id":%q,"action":"ADD"}]}`, orderID, uuid.New())

	w := doRequest(s, http.MethodPost, "/api/v1/orders", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doRequest(s, http.MethodPost, "/api/v1/orders", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetOrderStatus(t *testing.T) {
	s, store := newTestServer(t)
	orderID := submitOrder(t, s)
	waitCompleted(t, store, orderID)

	w := doRequest(s, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		OrderID string `json:"order_id"`
		State   string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, orderID.String(), resp.OrderID)
	assert.Equal(t, string(domain.OrderCompleted), resp.State)
}

func TestGetOrderTasks(t *testing.T) {
	s, store := newTestServer(t)
	orderID := submitOrder(t, s)
	waitCompleted(t, store, orderID)

	w := doRequest(s, http.MethodGet, "/api/v1/orders/"+orderID.String()+"/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Tasks, 7)
}

func TestGetOrderNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrderBadID(t *testing.T) {
	s, _ := newTestServer(t)
	w := doRequest(s, http.MethodGet, "/api/v1/orders/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListOrders(t *testing.T) {
	s, store := newTestServer(t)
	orderID := submitOrder(t, s)
	waitCompleted(t, store, orderID)

	w := doRequest(s, http.MethodGet, "/api/v1/orders", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Orders []string `json:"orders"`
		Total  int      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	assert.Contains(t, resp.Orders, orderID.String())
}

func TestCancelCompletedOrderConflicts(t *testing.T) {
	s, store := newTestServer(t)
	orderID := submitOrder(t, s)
	waitCompleted(t, store, orderID)

	w := doRequest(s, http.MethodPost, "/api/v1/orders/"+orderID.String()+"/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateTaskState(t *testing.T) {
	s, store := newTestServer(t)
	orderID := submitOrder(t, s)
	waitCompleted(t, store, orderID)

	fc, err := store.Get(context.Background(), orderID)
	require.NoError(t, err)
	taskID := fc.Tasks[0].ID

	// idempotent terminal re-apply
	w := doRequest(s, http.MethodPatch, "/api/v1/tasks/"+taskID.String()+"/state", `{"state":"COMPLETED"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	// regression out of a terminal state
	w = doRequest(s, http.MethodPatch, "/api/v1/tasks/"+taskID.String()+"/state", `{"state":"IN_PROGRESS"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// unknown task
	w = doRequest(s, http.MethodPatch, "/api/v1/tasks/"+uuid.NewString()+"/state", `{"state":"COMPLETED"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
