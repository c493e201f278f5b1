package handler

import (
	"bufio"
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/internal/hub"
	"github.com/taskhive/backend/pkg/httpcontext"
	workflowUC "github.com/taskhive/backend/usecase/workflow"
)

// EventsHandler serves the per-workflow SSE stream. Each connection gets
// its own hub subscription; membership is checked before subscribing.
type EventsHandler struct {
	baseHandler
	hub       *hub.Hub
	workflows *workflowUC.UseCase
	heartbeat time.Duration
}

func NewEventsHandler(h *hub.Hub, workflows *workflowUC.UseCase, heartbeat time.Duration, adapter *httpcontext.Adapter, logger *zap.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 60 * time.Second
	}
	return &EventsHandler{
		baseHandler: newBaseHandler(adapter, logger),
		hub:         h,
		workflows:   workflows,
		heartbeat:   heartbeat,
	}
}

func (h *EventsHandler) Stream(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}
	workflowID := pathParam(ctx, "id")

	checkCtx, cancel := h.requestContext(ctx)
	if _, err := h.workflows.Get(checkCtx, workflowID, userID); err != nil {
		cancel()
		h.respondError(ctx, err)
		return
	}
	cancel()

	sub := h.hub.Subscribe(workflowID, userID)

	ctx.Response.Header.SetContentType("text/event-stream")
	ctx.Response.Header.Set("Cache-Control", "no-cache")
	ctx.Response.Header.Set("Connection", "keep-alive")
	ctx.Response.Header.Set("X-Accel-Buffering", "no")

	logger := h.logger.With(
		zap.String("workflow_id", workflowID),
		zap.String("user_id", userID),
	)

	ctx.SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(sub)
		logger.Info("event stream opened")

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-sub.Events():
				if !ok {
					logger.Info("event stream closed by hub")
					return
				}
				if !writeEvent(w, event) {
					logger.Info("event stream client disconnected")
					return
				}
			case <-ticker.C:
				beat := domain.Event{
					Type:      domain.EventHeartbeat,
					Timestamp: time.Now().Unix(),
				}
				if !writeEvent(w, beat) {
					logger.Info("event stream client disconnected")
					return
				}
			}
		}
	})
}

// writeEvent emits a single SSE frame and reports whether the client is
// still reachable.
func writeEvent(w *bufio.Writer, event domain.Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		return true
	}
	if _, err := w.WriteString("data: "); err != nil {
		return false
	}
	if _, err := w.Write(payload); err != nil {
		return false
	}
	if _, err := w.WriteString("\n\n"); err != nil {
		return false
	}
	return w.Flush() == nil
}
