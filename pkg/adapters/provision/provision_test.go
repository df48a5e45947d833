package provision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/domain"
)

func TestHTTPExecutorPostsTask(t *testing.T) {
	var got dispatchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	orderID := uuid.New()
	targetID := uuid.New()
	task := domain.NewTask(orderID, domain.TaskServiceOrder, &targetID)

	exec := NewHTTPExecutor(srv.URL, 5*time.Second, zap.NewNop())
	err := exec.Execute(context.Background(), task, domain.NewFulfillmentContext(orderID))
	require.NoError(t, err)

	assert.Equal(t, task.ID.String(), got.TaskID)
	assert.Equal(t, orderID.String(), got.OrderID)
	assert.Equal(t, string(domain.TaskServiceOrder), got.Kind)
	require.NotNil(t, got.TargetID)
	assert.Equal(t, targetID.String(), *got.TargetID)
}

func TestHTTPExecutorNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "activation backend down", http.StatusBadGateway)
	}))
	defer srv.Close()

	orderID := uuid.New()
	task := domain.NewTask(orderID, domain.TaskCreateActivation, nil)

	exec := NewHTTPExecutor(srv.URL, 5*time.Second, zap.NewNop())
	err := exec.Execute(context.Background(), task, domain.NewFulfillmentContext(orderID))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)
	assert.True(t, domain.Retryable(err))
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPExecutorTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	orderID := uuid.New()
	task := domain.NewTask(orderID, domain.TaskResourceOrder, nil)

	exec := NewHTTPExecutor(srv.URL, time.Second, zap.NewNop())
	err := exec.Execute(context.Background(), task, domain.NewFulfillmentContext(orderID))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExternalService)
}

func TestValidateExecutor(t *testing.T) {
	orderID := uuid.New()
	task := domain.NewTask(orderID, domain.TaskValidateOrder, nil)

	exec := NewValidateExecutor()

	t.Run("valid context", func(t *testing.T) {
		fc := domain.NewFulfillmentContext(orderID)
		svcID := uuid.New()
		fc.ServiceOrders = append(fc.ServiceOrders, domain.ServiceOrderSpec{ID: svcID, OrderItemID: uuid.New(), Quantity: 1, Action: domain.ActionAdd})
		fc.ResourceOrders = append(fc.ResourceOrders, domain.ResourceOrderSpec{ID: uuid.New(), ServiceOrderID: svcID, Quantity: 1, Action: domain.ActionAdd})
		assert.NoError(t, exec.Execute(context.Background(), task, fc))
	})

	t.Run("order mismatch", func(t *testing.T) {
		fc := domain.NewFulfillmentContext(uuid.New())
		err := exec.Execute(context.Background(), task, fc)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("resource order without parent", func(t *testing.T) {
		fc := domain.NewFulfillmentContext(orderID)
		fc.ResourceOrders = append(fc.ResourceOrders, domain.ResourceOrderSpec{ID: uuid.New(), Quantity: 1, Action: domain.ActionAdd})
		err := exec.Execute(context.Background(), task, fc)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

type stubChecker struct {
	ready bool
	err   error
}

func (s stubChecker) Ready(context.Context, uuid.UUID) (bool, error) { return s.ready, s.err }

func TestCheckDependenciesExecutor(t *testing.T) {
	orderID := uuid.New()
	task := domain.NewTask(orderID, domain.TaskCheckDependencies, nil)
	fc := domain.NewFulfillmentContext(orderID)

	t.Run("nil checker allows", func(t *testing.T) {
		exec := NewCheckDependenciesExecutor(nil)
		assert.NoError(t, exec.Execute(context.Background(), task, fc))
	})

	t.Run("ready", func(t *testing.T) {
		exec := NewCheckDependenciesExecutor(stubChecker{ready: true})
		assert.NoError(t, exec.Execute(context.Background(), task, fc))
	})

	t.Run("not ready", func(t *testing.T) {
		exec := NewCheckDependenciesExecutor(stubChecker{ready: false})
		err := exec.Execute(context.Background(), task, fc)
		assert.ErrorIs(t, err, domain.ErrDependenciesNotMet)
		assert.False(t, domain.Retryable(err))
	})

	t.Run("checker failure is retryable", func(t *testing.T) {
		exec := NewCheckDependenciesExecutor(stubChecker{err: errors.New("inventory timeout")})
		err := exec.Execute(context.Background(), task, fc)
		assert.ErrorIs(t, err, domain.ErrExternalService)
		assert.True(t, domain.Retryable(err))
	})
}

func TestRegistryFromConfigCoversAllKinds(t *testing.T) {
	reg := NewRegistryFromConfig(&Config{
		ActivationURL: "http://activation.local",
		ResourceURL:   "http://resource.local",
		InventoryURL:  "http://inventory.local",
		Timeout:       time.Second,
		Logger:        zap.NewNop(),
	})

	kinds := []domain.TaskKind{
		domain.TaskServiceOrder,
		domain.TaskResourceOrder,
		domain.TaskValidateOrder,
		domain.TaskCheckDependencies,
		domain.TaskCreateActivation,
		domain.TaskExecuteActivation,
		domain.TaskCreateInventory,
		domain.TaskUpdateInventory,
	}
	for _, kind := range kinds {
		exec, ok := reg.Executor(kind)
		assert.True(t, ok, "no executor registered for %s", kind)
		assert.NotNil(t, exec)
	}

	_, ok := reg.Executor(domain.TaskKind("UNKNOWN"))
	assert.False(t, ok)
}
