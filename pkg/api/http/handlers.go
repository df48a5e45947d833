package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tmforge/fulfilld/internal/domain"
)

// OrderSubmitRequest represents an order submission request
type OrderSubmitRequest struct {
	ID    *uuid.UUID         `json:"id"`
	Items []domain.OrderItem `json:"items" binding:"required"`
}

// OrderSubmitResponse represents an order submission response
type OrderSubmitResponse struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// TaskStateUpdateRequest is posted by downstream services reporting the
// outcome of a dispatched task
type TaskStateUpdateRequest struct {
	State domain.TaskState `json:"state" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	workersOK := "ok"
	if s.health != nil && !s.health.IsHealthy() {
		workersOK = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": gin.H{
			"orchestrator": "ok",
			"workers":      workersOK,
		},
	})
}

// handleSubmitOrder handles order submission
func (s *Server) handleSubmitOrder(c *gin.Context) {
	var req OrderSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	order := domain.Order{Items: req.Items}
	if req.ID != nil {
		order.ID = *req.ID
	} else {
		order.ID = uuid.New()
	}

	orderID, err := s.orchestrator.Orchestrate(c.Request.Context(), order)
	if err != nil {
		s.logger.Error("failed to submit order", zap.Error(err))
		s.writeError(c, "SUBMISSION_FAILED", err)
		return
	}

	c.JSON(http.StatusCreated, OrderSubmitResponse{
		OrderID:     orderID.String(),
		Status:      "submitted",
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListOrders handles listing known orders
func (s *Server) handleListOrders(c *gin.Context) {
	orderIDs, err := s.orchestrator.ListOrders(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list orders", zap.Error(err))
		s.writeError(c, "LIST_FAILED", err)
		return
	}

	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": ids,
		"total":  len(ids),
	})
}

// handleGetOrder handles getting the full fulfillment context
func (s *Server) handleGetOrder(c *gin.Context) {
	orderID, ok := s.orderID(c)
	if !ok {
		return
	}

	fc, err := s.orchestrator.GetContext(c.Request.Context(), orderID)
	if err != nil {
		s.writeError(c, "CONTEXT_FETCH_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, fc)
}

// handleGetStatus handles getting order status
func (s *Server) handleGetStatus(c *gin.Context) {
	orderID, ok := s.orderID(c)
	if !ok {
		return
	}

	fc, err := s.orchestrator.GetContext(c.Request.Context(), orderID)
	if err != nil {
		s.writeError(c, "CONTEXT_FETCH_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     fc.OrderID,
		"state":        fc.State,
		"created_at":   fc.CreatedAt,
		"updated_at":   fc.UpdatedAt,
		"completed_at": fc.CompletedAt,
		"error":        fc.Error,
	})
}

// handleGetTasks handles getting the task graph with readiness information
func (s *Server) handleGetTasks(c *gin.Context) {
	orderID, ok := s.orderID(c)
	if !ok {
		return
	}

	fc, err := s.orchestrator.GetContext(c.Request.Context(), orderID)
	if err != nil {
		s.writeError(c, "CONTEXT_FETCH_FAILED", err)
		return
	}

	ready, unresolved := fc.ReadyTasks()
	readyIDs := make([]uuid.UUID, len(ready))
	for i, task := range ready {
		readyIDs[i] = task.ID
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":   fc.OrderID,
		"tasks":      fc.Tasks,
		"ready":      readyIDs,
		"unresolved": unresolved,
	})
}

// handleCancelOrder handles order cancellation
func (s *Server) handleCancelOrder(c *gin.Context) {
	orderID, ok := s.orderID(c)
	if !ok {
		return
	}

	if err := s.orchestrator.CancelOrder(c.Request.Context(), orderID); err != nil {
		s.writeError(c, "CANCELLATION_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id":     orderID.String(),
		"status":       "cancelled",
		"cancelled_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleUpdateTaskState handles task state reports from downstream services
func (s *Server) handleUpdateTaskState(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_TASK_ID",
				Message: "task id must be a UUID",
			},
		})
		return
	}

	var req TaskStateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	if err := s.orchestrator.UpdateTaskState(c.Request.Context(), taskID, req.State); err != nil {
		s.writeError(c, "TASK_UPDATE_FAILED", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"task_id": taskID.String(),
		"state":   req.State,
	})
}

// orderID parses the :id path parameter, writing the error response itself
func (s *Server) orderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_ORDER_ID",
				Message: "order id must be a UUID",
			},
		})
		return uuid.Nil, false
	}
	return orderID, true
}

// writeError maps domain sentinel errors to HTTP status codes
func (s *Server) writeError(c *gin.Context, code string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		code = "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrUnresolvedDependency):
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: err.Error(),
		},
	})
}
