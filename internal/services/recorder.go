package services

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/internal/hub"
	"github.com/taskhive/backend/internal/infrastructure/journal"
)

// EventRecorder journals workflow events and hands them to the hub for
// live fan-out. Journal failures are logged, never surfaced: delivery of
// the in-memory broadcast must not depend on local disk.
type EventRecorder struct {
	hub     *hub.Hub
	journal *journal.Store
	logger  *zap.Logger
}

func NewEventRecorder(h *hub.Hub, jrnl *journal.Store, logger *zap.Logger) *EventRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRecorder{
		hub:     h,
		journal: jrnl,
		logger:  logger,
	}
}

// Publish records the event and broadcasts it to all workflow subscribers.
func (r *EventRecorder) Publish(workflowID string, event domain.Event) {
	if r.journal != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			err = r.journal.Append(journal.Entry{
				WorkflowID: workflowID,
				Type:       string(event.Type),
				Payload:    payload,
			})
		}
		if err != nil {
			r.logger.Warn("event journal append failed",
				zap.String("workflow_id", workflowID),
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
		}
	}

	if r.hub != nil {
		r.hub.Publish(workflowID, event)
	}
}
