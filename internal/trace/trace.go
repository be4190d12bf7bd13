// Package trace records every request/response crossing the gateway
// boundary in a bounded in-memory ring buffer. The buffer is process-scoped,
// safe under concurrent appends from simultaneous orchestration runs, and
// makes no durability promise across restarts.
package trace

import (
	"encoding/json"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Kind tags the direction of a traced exchange.
type Kind string

const (
	// KindTxAgent is a request sent to an LLM provider.
	KindTxAgent Kind = "tx_agent"
	// KindRxAgent is a reply received from an LLM provider.
	KindRxAgent Kind = "rx_agent"
	// KindTxMaximo is a request sent to the tool registry.
	KindTxMaximo Kind = "tx_maximo"
	// KindRxMaximo is a reply received from the tool registry.
	KindRxMaximo Kind = "rx_maximo"
)

// Event is one immutable trace record.
type Event struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      Kind              `json:"kind"`
	Tenant    string            `json:"tenant,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Payload   any               `json:"payload,omitempty"`
}

// Sink is the append side of the trace buffer. The orchestration loop
// depends on this narrow interface so tests can drop events on the floor.
type Sink interface {
	Append(kind Kind, tenantID string, meta map[string]string, payload any) Event
}

// Buffer is a fixed-capacity ordered event log. Oldest events are evicted
// first once capacity is exceeded.
type Buffer struct {
	mu         sync.Mutex
	events     []Event
	start      int
	size       int
	capacity   int
	payloadCap int

	subs    map[int]chan Event
	nextSub int
}

// NewBuffer creates a buffer holding at most capacity events, with payloads
// truncated to payloadCap bytes of JSON.
func NewBuffer(capacity, payloadCap int) *Buffer {
	if capacity <= 0 {
		capacity = 500
	}
	if payloadCap <= 0 {
		payloadCap = 4096
	}
	return &Buffer{
		events:     make([]Event, capacity),
		capacity:   capacity,
		payloadCap: payloadCap,
		subs:       make(map[int]chan Event),
	}
}

// Append records one event and fans it out to live subscribers. Slow
// subscribers miss events rather than block writers.
func (b *Buffer) Append(kind Kind, tenantID string, meta map[string]string, payload any) Event {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Tenant:    tenantID,
		Meta:      meta,
		Payload:   b.capPayload(payload),
	}

	b.mu.Lock()
	idx := (b.start + b.size) % b.capacity
	if b.size == b.capacity {
		b.start = (b.start + 1) % b.capacity
		b.size--
	}
	b.events[idx] = event
	b.size++
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
	b.mu.Unlock()

	return event
}

// Recent returns up to limit events, most recent last, optionally filtered
// by kind (empty kind matches everything).
func (b *Buffer) Recent(limit int, kind Kind) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || limit > b.size {
		limit = b.size
	}

	out := make([]Event, 0, limit)
	for i := 0; i < b.size; i++ {
		event := b.events[(b.start+i)%b.capacity]
		if kind != "" && event.Kind != kind {
			continue
		}
		out = append(out, event)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Len reports the number of currently-retained events.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Subscribe registers a live event channel. The returned cancel func must
// be called to release the subscription.
func (b *Buffer) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// capPayload bounds payload size so one oversized response cannot dominate
// buffer memory. Oversized payloads are stored as a truncated JSON string.
func (b *Buffer) capPayload(payload any) any {
	if payload == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return map[string]any{"unserializable": true}
	}
	if len(raw) <= b.payloadCap {
		return payload
	}
	// Back off to a rune boundary so the stored string stays valid UTF-8.
	cut := b.payloadCap
	for cut > 0 && !utf8.RuneStart(raw[cut]) {
		cut--
	}
	return string(raw[:cut]) + "...(truncated)"
}
