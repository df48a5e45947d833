package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/domain"
)

// dispatchRequest is the wire format sent to provisioning services.
type dispatchRequest struct {
	TaskID   string  `json:"task_id"`
	OrderID  string  `json:"order_id"`
	Kind     string  `json:"kind"`
	TargetID *string `json:"target_id,omitempty"`
}

// HTTPExecutor dispatches a task to a downstream provisioning service. Any
// transport or non-2xx response surfaces as an external service error, which
// the caller may retry.
type HTTPExecutor struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPExecutor creates an executor posting to the given endpoint.
func NewHTTPExecutor(url string, timeout time.Duration, logger *zap.Logger) *HTTPExecutor {
	return &HTTPExecutor{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Execute posts the task to the downstream service and interprets the
// response status.
func (e *HTTPExecutor) Execute(ctx context.Context, task *domain.FulfillmentTask, fc *domain.FulfillmentContext) error {
	payload := dispatchRequest{
		TaskID:  task.ID.String(),
		OrderID: task.OrderID.String(),
		Kind:    string(task.Kind),
	}
	if task.TargetID != nil {
		target := task.TargetID.String()
		payload.TargetID = &target
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch to %s: %w: %v", e.url, domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("dispatch to %s: status %d: %s: %w",
			e.url, resp.StatusCode, bytes.TrimSpace(detail), domain.ErrExternalService)
	}

	e.logger.Debug("task dispatched",
		zap.String("task_id", task.ID.String()),
		zap.String("kind", string(task.Kind)),
		zap.String("url", e.url),
		zap.Int("status", resp.StatusCode))

	return nil
}
