package progress

import (
	"context"
	"sync"
	"time"
)

// Stage names published for a request, in pipeline order.
const (
	StageReceived   = "received"
	StageExtracting = "extracting"
	StageProcessing = "processing"
	StageSubtitling = "subtitling"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// Event is one stage transition of a request.
type Event struct {
	Sequence  uint64    `json:"seq"`
	Timestamp time.Time `json:"ts"`
	RequestID string    `json:"request_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Terminal reports whether no further events follow e for its request.
func (e Event) Terminal() bool {
	return e.Stage == StageCompleted || e.Stage == StageFailed
}

// Hub stores recent events and wakes waiters when new events arrive.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewHub constructs a bounded in-memory event buffer shared by all requests.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 1024
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Publish appends an event for requestID.
func (h *Hub) Publish(requestID, stage, message string) {
	h.publish(Event{RequestID: requestID, Stage: stage, Message: message})
}

// Fail publishes the terminal failure event for requestID.
func (h *Hub) Fail(requestID string, err error) {
	evt := Event{RequestID: requestID, Stage: StageFailed}
	if err != nil {
		evt.Error = err.Error()
	}
	h.publish(evt)
}

func (h *Hub) publish(evt Event) {
	if h == nil || evt.RequestID == "" {
		return
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.cond.Broadcast()
	h.mu.Unlock()
}

// Fetch returns events for requestID with sequence greater than since. When
// wait is true, Fetch blocks until at least one such event is available or
// the context ends.
func (h *Hub) Fetch(ctx context.Context, requestID string, since uint64, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(requestID, since)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		since = next
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, since, err
		}
	}
}

// snapshotLocked returns matching events after since and the cursor to
// resume from.
func (h *Hub) snapshotLocked(requestID string, since uint64) ([]Event, uint64) {
	var out []Event
	for _, evt := range h.buffer {
		if evt.Sequence > since && evt.RequestID == requestID {
			out = append(out, evt)
		}
	}
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
