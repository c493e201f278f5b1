// Package hub implements the per-workflow real-time broadcast registry. One
// process-wide Hub replaces ad hoc global connection maps: transport handlers
// subscribe a handle per client connection, business code publishes lifecycle
// events, and the hub fans each event out to every live subscriber of that
// workflow.
package hub

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
)

const defaultSubscriberBuffer = 32

// Subscriber is one live client connection attached to a workflow stream.
// Events arrive on the channel in publish order for that workflow.
type Subscriber struct {
	id         string
	workflowID string
	userID     string
	ch         chan domain.Event
	closeOnce  sync.Once
}

// Events is the delivery channel. It is closed when the subscriber is
// unsubscribed or the hub shuts down.
func (s *Subscriber) Events() <-chan domain.Event {
	return s.ch
}

// UserID returns the user holding this subscription.
func (s *Subscriber) UserID() string {
	return s.userID
}

// WorkflowID returns the workflow the subscription is attached to.
func (s *Subscriber) WorkflowID() string {
	return s.workflowID
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}

// registry holds one workflow's live subscribers and connected users. All
// mutation and delivery iteration happens under mu, so a publish never races
// a concurrent subscribe or unsubscribe on the same workflow. A user may hold
// several connections; users refcounts them so presence drops only when the
// last one goes.
type registry struct {
	mu    sync.Mutex
	subs  map[*Subscriber]struct{}
	users map[string]int
}

func (r *registry) connectedUsersLocked() []string {
	ids := make([]string, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	return ids
}

// Hub is the process-wide broadcast service. Registries for different
// workflows are independent: publishing to one never blocks another.
type Hub struct {
	mu        sync.RWMutex
	workflows map[string]*registry

	buffer int
	logger *zap.Logger
}

// Option customizes hub construction.
type Option func(*Hub)

// WithSubscriberBuffer sets the per-subscriber channel capacity.
func WithSubscriberBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// New creates an empty hub.
func New(logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		workflows: make(map[string]*registry),
		buffer:    defaultSubscriberBuffer,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new connection for userID on workflowID. The new
// subscriber immediately receives a connected acknowledgment, then every
// subscriber of the workflow (the new one included) receives the updated
// presence list.
func (h *Hub) Subscribe(workflowID, userID string) *Subscriber {
	sub := &Subscriber{
		id:         uuid.NewString(),
		workflowID: workflowID,
		userID:     userID,
		ch:         make(chan domain.Event, h.buffer),
	}

	h.mu.Lock()
	reg, ok := h.workflows[workflowID]
	if !ok {
		reg = &registry{
			subs:  make(map[*Subscriber]struct{}),
			users: make(map[string]int),
		}
		h.workflows[workflowID] = reg
	}
	reg.mu.Lock()
	reg.subs[sub] = struct{}{}
	if userID != "" {
		reg.users[userID]++
	}
	h.deliverLocked(reg, sub, domain.Event{Type: domain.EventConnected, WorkflowID: workflowID})
	h.broadcastPresenceLocked(reg, workflowID)
	reg.mu.Unlock()
	h.mu.Unlock()

	h.logger.Debug("subscriber registered",
		zap.String("workflow_id", workflowID),
		zap.String("user_id", userID),
	)
	return sub
}

// Unsubscribe removes the connection, updates presence for the remaining
// subscribers, and discards the workflow registry entirely once empty. It is
// safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	reg, ok := h.workflows[sub.workflowID]
	if !ok {
		h.mu.Unlock()
		sub.close()
		return
	}
	reg.mu.Lock()
	if _, present := reg.subs[sub]; present {
		delete(reg.subs, sub)
		if sub.userID != "" {
			if reg.users[sub.userID] <= 1 {
				delete(reg.users, sub.userID)
			} else {
				reg.users[sub.userID]--
			}
		}
		if len(reg.subs) == 0 {
			delete(h.workflows, sub.workflowID)
		} else {
			h.broadcastPresenceLocked(reg, sub.workflowID)
		}
	}
	reg.mu.Unlock()
	h.mu.Unlock()

	sub.close()
	h.logger.Debug("subscriber removed",
		zap.String("workflow_id", sub.workflowID),
		zap.String("user_id", sub.userID),
	)
}

// Publish fans the event out to every live subscriber of workflowID. Delivery
// is best-effort, at-most-once per connection: a subscriber whose channel is
// full is dropped and cleaned up, never retried, and failures never reach the
// publisher. Publishing to a workflow with no subscribers is a no-op.
func (h *Hub) Publish(workflowID string, event domain.Event) {
	h.mu.RLock()
	reg, ok := h.workflows[workflowID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	reg.mu.Lock()
	stale := h.deliverAllLocked(reg, event)
	reg.mu.Unlock()

	for _, sub := range stale {
		h.Unsubscribe(sub)
	}
}

// ConnectedUsers returns the ids of users currently holding a live
// subscription to the workflow.
func (h *Hub) ConnectedUsers(workflowID string) []string {
	h.mu.RLock()
	reg, ok := h.workflows[workflowID]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.connectedUsersLocked()
}

// SubscriberCount returns the number of live connections for the workflow.
func (h *Hub) SubscriberCount(workflowID string) int {
	h.mu.RLock()
	reg, ok := h.workflows[workflowID]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.subs)
}

// TotalSubscribers returns the number of live connections across all
// workflows, for health reporting.
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, reg := range h.workflows {
		reg.mu.Lock()
		total += len(reg.subs)
		reg.mu.Unlock()
	}
	return total
}

// Close drops every subscriber. Used as a shutdown hook.
func (h *Hub) Close() {
	h.mu.Lock()
	workflows := h.workflows
	h.workflows = make(map[string]*registry)
	h.mu.Unlock()

	for _, reg := range workflows {
		reg.mu.Lock()
		for sub := range reg.subs {
			sub.close()
		}
		reg.subs = make(map[*Subscriber]struct{})
		reg.users = make(map[string]int)
		reg.mu.Unlock()
	}
}

// broadcastPresenceLocked sends the connected-users list to every subscriber.
// Callers hold reg.mu.
func (h *Hub) broadcastPresenceLocked(reg *registry, workflowID string) {
	event := domain.Event{
		Type:           domain.EventConnectedUsers,
		WorkflowID:     workflowID,
		ConnectedUsers: reg.connectedUsersLocked(),
	}
	// Stale handles found here are cleaned up by their own reader loop; the
	// send below already dropped the event for them.
	h.deliverAllLocked(reg, event)
}

// deliverAllLocked enqueues event for every subscriber and returns the
// handles whose buffers were full. Callers hold reg.mu.
func (h *Hub) deliverAllLocked(reg *registry, event domain.Event) []*Subscriber {
	var stale []*Subscriber
	for sub := range reg.subs {
		if !h.deliverLocked(reg, sub, event) {
			stale = append(stale, sub)
		}
	}
	return stale
}

// deliverLocked enqueues one event without blocking. A full channel means the
// client stopped draining; that is a transport condition, logged and reported
// to the caller for cleanup, never an error for the publisher.
func (h *Hub) deliverLocked(reg *registry, sub *Subscriber, event domain.Event) bool {
	select {
	case sub.ch <- event:
		return true
	default:
		h.logger.Warn("dropping slow subscriber",
			zap.String("workflow_id", sub.workflowID),
			zap.String("user_id", sub.userID),
			zap.String("event_type", string(event.Type)),
		)
		return false
	}
}
