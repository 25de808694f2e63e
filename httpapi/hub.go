package httpapi

import (
	"context"
	"sync"
	"time"

	"pkt.systems/ttypilot/internal/logx"
	"pkt.systems/ttypilot/schema"
)

// StreamEvent is sent to SSE clients.
type StreamEvent struct {
	Seq       uint64            `json:"seq"`
	Type      string            `json:"type"`
	Tool      *schema.ToolEvent `json:"tool,omitempty"`
	Snapshot  *SnapshotPayload  `json:"snapshot,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// SnapshotPayload seeds client state on connect.
type SnapshotPayload struct {
	Session string `json:"session,omitempty"`
	Tools   int    `json:"tools"`
	LastSeq uint64 `json:"last_seq"`
}

// Hub broadcasts tool events to stream subscribers and keeps a bounded
// history for replay.
type Hub struct {
	mu          sync.Mutex
	seq         uint64
	history     []StreamEvent
	subs        map[chan StreamEvent]struct{}
	historySize int
	now         func() time.Time
}

// NewHub constructs a hub with the given history size.
func NewHub(historySize int) *Hub {
	if historySize <= 0 {
		historySize = 1000
	}
	return &Hub{
		subs:        make(map[chan StreamEvent]struct{}),
		historySize: historySize,
		now:         time.Now,
	}
}

// OnToolEvent implements tools.EventSink.
func (h *Hub) OnToolEvent(event schema.ToolEvent) {
	log := logx.WithTool(context.Background(), event.Tool)
	log.Trace("hub tool event", "ok", event.OK, "dispatch_seq", event.Seq)
	h.publish(StreamEvent{
		Type:      "tool",
		Tool:      &event,
		Timestamp: h.now(),
	})
}

// Subscribe registers a subscriber. It returns the event channel, an
// unsubscribe func, the last published seq and a copy of the history.
func (h *Hub) Subscribe() (<-chan StreamEvent, func(), uint64, []StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan StreamEvent, 256)
	h.subs[ch] = struct{}{}
	history := append([]StreamEvent(nil), h.history...)
	seq := h.seq
	log := logx.Ctx(context.Background())
	log.Info("hub subscribe", "subs", len(h.subs), "history", len(history))
	var once sync.Once
	unsub := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			remaining := len(h.subs)
			h.mu.Unlock()
			log.Info("hub unsubscribe", "subs", remaining)
		})
	}
	return ch, unsub, seq, history
}

// Replay returns events after the provided seq.
func (h *Hub) Replay(after uint64) []StreamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	events := make([]StreamEvent, 0, len(h.history))
	for _, event := range h.history {
		if event.Seq > after {
			events = append(events, event)
		}
	}
	logx.Ctx(context.Background()).Debug("hub replay", "after", after, "count", len(events))
	return events
}

// LastSeq returns the seq of the newest published event.
func (h *Hub) LastSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// publish delivers under the lock so an unsubscribe cannot close a channel
// mid-send. Sends never block; slow subscribers lose events.
func (h *Hub) publish(event StreamEvent) {
	h.mu.Lock()
	h.seq++
	event.Seq = h.seq
	h.history = append(h.history, event)
	if len(h.history) > h.historySize {
		h.history = h.history[len(h.history)-h.historySize:]
	}
	dropped := 0
	for sub := range h.subs {
		select {
		case sub <- event:
		default:
			dropped++
		}
	}
	h.mu.Unlock()

	if dropped > 0 {
		logx.Ctx(context.Background()).Warn("hub event dropped", "type", event.Type, "dropped", dropped)
	}
}
