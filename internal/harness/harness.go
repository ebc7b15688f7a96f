// Package harness implements the test-harness mode of spec §4.6: it
// drives the evaluator over alternating (input, expected) document
// pairs, comparing the evaluated input's rendering against the expected
// document's rendering byte-for-byte.
package harness

import (
	"github.com/willabides/yl/internal/bridge"
	"github.com/willabides/yl/internal/buffer"
	"github.com/willabides/yl/internal/engine"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

// Harness wraps an Evaluator, alternating actual/expected recording per
// §4.6 and forwarding both sets of events to consumer so the user sees
// the test's output.
type Harness struct {
	eval     *engine.Evaluator
	consumer engine.Consumer

	// bindings holds one Handle per !testcases preamble entry, or nil if
	// the stream opened with no preamble. Each is a mapping of global
	// variable names to values, applied to the bridge before evaluating
	// the corresponding test pair's actual document.
	bindings []bridge.Handle

	// pairIndex counts test pairs run so far, used both to bound-check
	// against bindings and to pick this pair's binding.
	pairIndex int
}

// New returns a Harness driving eval, forwarding recorded events to
// consumer.
func New(eval *engine.Evaluator, consumer engine.Consumer) *Harness {
	return &Harness{eval: eval, consumer: consumer}
}

// Run drives the stream: an optional !testcases preamble document, then
// alternating (actual, expected) document pairs until STREAM-END.
func (h *Harness) Run() *errs.Error {
	start, err := h.eval.Produce()
	if err != nil {
		return err
	}
	if start.Type != yamlh.STREAM_START_EVENT {
		return errs.New(errs.Parser, start.Position().ToErrs(), "while starting a test stream", "expected STREAM-START")
	}
	if err := h.consumer.Put(start); err != nil {
		return err
	}

	first, err := h.eval.Produce()
	if err != nil {
		return err
	}
	switch first.Type {
	case yamlh.STREAM_END_EVENT:
		return h.consumer.Put(first)
	case yamlh.DOCUMENT_START_EVENT:
		// fall through below
	default:
		return errs.New(errs.Execution, first.Position().ToErrs(), "while testing a stream", "unexpected event")
	}

	// The preamble can only be recognized by looking at the first
	// document's body-root event, which must then be handed to whichever
	// path (preamble or ordinary pair) turns out to apply, since the
	// event stream cannot be rewound once read.
	body, err := h.eval.Produce()
	if err != nil {
		return err
	}

	if body.IsTaggedInvocation() && body.InvocationName() == "testcases" && body.Type == yamlh.SEQUENCE_START_EVENT {
		if err := h.readPreamble(body); err != nil {
			return err
		}
	} else {
		if err := h.runPairFrom(first, body); err != nil {
			return err
		}
		h.pairIndex++
	}

	for {
		ev, err := h.eval.Produce()
		if err != nil {
			return err
		}
		switch ev.Type {
		case yamlh.STREAM_END_EVENT:
			if h.bindings != nil && h.pairIndex != len(h.bindings) {
				return errs.New(errs.Assertion, ev.Position().ToErrs(), "while finishing a test stream", "testcases preamble length does not match the number of test pairs")
			}
			return h.consumer.Put(ev)
		case yamlh.DOCUMENT_START_EVENT:
			if h.bindings != nil && h.pairIndex >= len(h.bindings) {
				return errs.New(errs.Assertion, ev.Position().ToErrs(), "while running a test pair", "more test pairs than testcases preamble entries")
			}
			if err := h.runPair(ev); err != nil {
				return err
			}
			h.pairIndex++
		default:
			return errs.New(errs.Execution, ev.Position().ToErrs(), "while testing a stream", "unexpected event")
		}
	}
}

// readPreamble builds the !testcases sequence rooted at body into one
// binding Handle per entry, then consumes the preamble document's
// DOCUMENT-END. The preamble itself is never forwarded to the consumer:
// it carries no output of its own, only per-pair global bindings.
func (h *Harness) readPreamble(body *yamlh.Event) *errs.Error {
	handles, err := h.eval.BuildTestcasesPreamble(body)
	if err != nil {
		return err
	}
	end, err := h.eval.Produce()
	if err != nil {
		return err
	}
	if end.Type != yamlh.DOCUMENT_END_EVENT {
		return errs.New(errs.Parser, end.Position().ToErrs(), "while ending a testcases preamble", "expected DOCUMENT-END")
	}
	end.Release()
	h.bindings = handles
	return nil
}

// runPair evaluates one (actual, expected) document pair: the actual
// document's body is evaluated and its output recorded; the expected
// document is recorded verbatim, without evaluation. Both recordings are
// rendered to byte strings, compared, and forwarded to the consumer.
func (h *Harness) runPair(actualStart *yamlh.Event) *errs.Error {
	body, err := h.eval.Produce()
	if err != nil {
		return err
	}
	return h.runPairFrom(actualStart, body)
}

// runPairFrom is runPair for a caller that has already read the actual
// document's body-root event (Run does, while deciding whether the
// stream's first document is a !testcases preamble).
func (h *Harness) runPairFrom(actualStart, actualBody *yamlh.Event) *errs.Error {
	pos := actualStart.Position().ToErrs()

	if h.bindings != nil {
		if err := h.eval.Bridge().ApplyGlobalsFrom(h.bindings[h.pairIndex], pos); err != nil {
			return err
		}
	}

	actual := &buffer.Record{}
	if err := h.eval.EvaluateDocumentBodyFrom(actualStart, actualBody, engine.NewBufferSink(actual)); err != nil {
		return err
	}

	expectedStart, err := h.eval.Produce()
	if err != nil {
		return err
	}
	if expectedStart.Type != yamlh.DOCUMENT_START_EVENT {
		return errs.New(errs.Execution, expectedStart.Position().ToErrs(), "while testing a stream", "expected a second (expected) document")
	}
	expected := &buffer.Record{}
	if err := h.capturePassthrough(expectedStart, expected); err != nil {
		return err
	}

	actualStr, rerr := actual.Serialize()
	if rerr != nil {
		return rerr
	}
	expectedStr, rerr := expected.Serialize()
	if rerr != nil {
		return rerr
	}

	if err := actual.Replay(0, h.consumer); err != nil {
		return err
	}
	if err := expected.Replay(0, h.consumer); err != nil {
		return err
	}

	if actualStr != expectedStr {
		return errs.New(errs.Assertion, pos, "while comparing rendered documents", "actual document differs from expected document")
	}
	return nil
}

// capturePassthrough records a document's events verbatim from
// DOCUMENT-START through its matching DOCUMENT-END, with no evaluation,
// per §4.6's "pass-through" expected-document semantics.
func (h *Harness) capturePassthrough(start *yamlh.Event, rec *buffer.Record) *errs.Error {
	rec.Append(start)
	for {
		ev, err := h.eval.Produce()
		if err != nil {
			return err
		}
		isEnd := ev.Type == yamlh.DOCUMENT_END_EVENT
		rec.Append(ev)
		if isEnd {
			return nil
		}
		if ev.Type == yamlh.SEQUENCE_START_EVENT || ev.Type == yamlh.MAPPING_START_EVENT {
			if err := h.capturePassthroughAggregate(rec); err != nil {
				return err
			}
		}
	}
}

// capturePassthroughAggregate records the remainder of one nested
// sequence or mapping (whose start event the caller already appended)
// through its matching end event, recursing for further nested
// aggregates.
func (h *Harness) capturePassthroughAggregate(rec *buffer.Record) *errs.Error {
	for {
		ev, err := h.eval.Produce()
		if err != nil {
			return err
		}
		rec.Append(ev)
		switch ev.Type {
		case yamlh.SEQUENCE_END_EVENT, yamlh.MAPPING_END_EVENT:
			return nil
		case yamlh.SEQUENCE_START_EVENT, yamlh.MAPPING_START_EVENT:
			if err := h.capturePassthroughAggregate(rec); err != nil {
				return err
			}
		}
	}
}
