// Package events implements the engine's sole externally-observable
// analysis contract (spec §6): a stream of timestamped SENT/RECV/DROP
// records. The stream is instance-scoped and its consumer is external
// to this repository (spec §1's "structured event logging consumed by
// a separate analysis tool" is explicitly out of scope for the core);
// this package only produces and buffers the records.
package events

import (
	"github.com/erfnzdeh/Gossip-Protocol-P2P-Information-Dissemination/pkg/codec"
)

// Direction classifies one event.
type Direction string

const (
	Sent Direction = "SENT"
	Recv Direction = "RECV"
	Drop Direction = "DROP"
)

// Event is one record in the stream.
type Event struct {
	TimestampMs       int64
	Direction         Direction
	MsgType           codec.MsgType
	MsgID             string
	PeerAddr          string
	OriginID          string
	OriginTimestampMs int64
}

// Sink is an instance-scoped, non-blocking event stream. A slow or
// absent consumer must never stall the actor loop (spec §5: handlers
// don't yield), so Emit never blocks — on a full buffer the oldest
// event is dropped to make room, and the loss is signalled best-effort
// on the internal dropped channel; no count of lost events is kept.
type Sink struct {
	ch      chan Event
	dropped chan struct{} // signalled (best-effort) whenever an event is dropped for capacity
}

// NewSink builds a sink with the given buffer capacity.
func NewSink(capacity int) *Sink {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Sink{
		ch:      make(chan Event, capacity),
		dropped: make(chan struct{}, 1),
	}
}

// Emit offers ev to the stream without blocking. If the buffer is
// full, the oldest buffered event is discarded to make room — this is
// the stream's own CapacityPressure case (spec §7), never surfaced to
// the caller as an error.
func (s *Sink) Emit(ev Event) {
	select {
	case s.ch <- ev:
		return
	default:
	}
	// Buffer full: drop the oldest and retry once.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- ev:
	default:
	}
	select {
	case s.dropped <- struct{}{}:
	default:
	}
}

// Events returns the receive side of the stream.
func (s *Sink) Events() <-chan Event { return s.ch }

// Close closes the stream. Safe to call once; a second call panics.
// The engine itself never calls Close, so its stream stays open after
// Stop.
func (s *Sink) Close() { close(s.ch) }
