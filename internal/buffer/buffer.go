// Package buffer implements the event buffer of spec §4.1: an append-only,
// truncatable, replayable sequence of events, with geometric growth and a
// serialize operation used by the test harness's byte-equivalence check.
package buffer

import (
	"bytes"

	"github.com/willabides/yl/internal/emitter"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

const minCapacity = 2

// Sink receives replayed events. Implemented by engine.Consumer-shaped
// adapters; kept as a narrow interface here so buffer has no dependency on
// the engine package.
type Sink interface {
	Put(event *yamlh.Event) *errs.Error
}

// Record is an append-only sequence of owned events.
type Record struct {
	events []yamlh.Event
}

// Append takes ownership of event: its fields are copied into the record
// and the source is released (marked consumed), matching §4.1's "transfers
// ownership and marks source consumed".
func (r *Record) Append(event *yamlh.Event) {
	if cap(r.events) == len(r.events) {
		newCap := cap(r.events) * 2
		if newCap < minCapacity {
			newCap = minCapacity
		}
		grown := make([]yamlh.Event, len(r.events), newCap)
		copy(grown, r.events)
		r.events = grown
	}
	r.events = append(r.events, *event)
	event.Release()
}

// Len returns the number of events currently recorded.
func (r *Record) Len() int {
	return len(r.events)
}

// Replay sequentially re-emits deep copies of the events from index `since`
// onward to sink, in FIFO order.
func (r *Record) Replay(since int, sink Sink) *errs.Error {
	for i := since; i < len(r.events); i++ {
		copy := r.events[i].Clone()
		if err := sink.Put(copy); err != nil {
			return err
		}
	}
	return nil
}

// Truncate deletes events with index >= since, releasing their owned bytes.
func (r *Record) Truncate(since int) {
	for i := since; i < len(r.events); i++ {
		r.events[i].Release()
	}
	r.events = r.events[:since]
}

// Serialize re-serializes the recorded events through a fresh emitter
// writing to an in-memory sink, wrapped in a synthetic STREAM-START/
// STREAM-END pair, for the test harness's byte comparison.
func (r *Record) Serialize() (string, *errs.Error) {
	var buf bytes.Buffer
	em := emitter.New(&buf)

	pos := errs.Position{}
	if len(r.events) > 0 {
		pos = errs.Position{Line: r.events[0].Start_mark.Line + 1, Column: r.events[0].Start_mark.Column + 1}
	}
	fail := func(err error) (string, *errs.Error) {
		return "", errs.New(errs.Emitter, pos, "while serializing a buffered event record", err.Error())
	}

	if err := em.Emit(yamlh.StreamStartEvent(), false); err != nil {
		return fail(err)
	}
	for i := range r.events {
		e := r.events[i].Clone()
		if err := em.Emit(e, false); err != nil {
			return fail(err)
		}
	}
	if err := em.Emit(yamlh.StreamEndEvent(), true); err != nil {
		return fail(err)
	}
	return buf.String(), nil
}
