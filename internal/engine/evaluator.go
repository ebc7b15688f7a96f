// Package engine implements the evaluator of spec §4.5: the top-level
// recursive state machine over stream/document/sequence/mapping/scalar
// that walks a producer's event stream, detects tagged invocations,
// dispatches to the expression bridge and tree builder, and routes
// resulting events (or passthrough events) to a consumer.
package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/willabides/yl/internal/bridge"
	"github.com/willabides/yl/internal/buffer"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/renderer"
	"github.com/willabides/yl/internal/treebuilder"
	"github.com/willabides/yl/internal/yamlh"
)

// OutputMode is one of the three dispositions for passthrough events.
// Feeding a tagged aggregate to the tree builder is not a mode: buildTree
// and buildTreeChild handle it directly.
type OutputMode int

const (
	ModeEmit OutputMode = iota
	ModeBuffer
	ModeDiscard
)

// Producer yields events, per the producer contract of §6.
type Producer interface {
	Produce() (*yamlh.Event, *errs.Error)
}

// Consumer receives events, per the consumer contract of §6. Its shape
// matches buffer.Sink and renderer.Sink, so a Consumer satisfies both
// without any adapter.
type Consumer interface {
	Put(event *yamlh.Event) *errs.Error
}

// Evaluator holds the execution context of §3: producer, consumer,
// expression runtime, current output mode (implicit in the `mode`
// argument threaded through the recursive evaluation), and event buffer.
type Evaluator struct {
	producer Producer
	consumer Consumer

	// emit is the destination for a document's evaluated output. It
	// defaults to consumer; the test harness (§4.6) temporarily points it
	// at a recording sink so evaluated documents land in an event record
	// rather than going straight to the real consumer.
	emit Consumer

	br   *bridge.Bridge
	tree *treebuilder.Builder
	rend *renderer.Renderer
	buf  *buffer.Record

	log *logrus.Logger
}

// New constructs an Evaluator with a fresh expression bridge. Callers
// must call Close when done, per §9 "Global state isolation".
func New(producer Producer, consumer Consumer, log *logrus.Logger) *Evaluator {
	br := bridge.New()
	return &Evaluator{
		producer: producer,
		consumer: consumer,
		emit:     consumer,
		br:       br,
		tree:     treebuilder.New(br),
		rend:     renderer.New(br),
		buf:      &buffer.Record{},
		log:      log,
	}
}

// Close releases the Evaluator's expression runtime.
func (e *Evaluator) Close() {
	e.br.Close()
}

// Produce returns the next event from the underlying producer. Exported
// for the test harness, which drives its own top-level loop rather than
// calling Run.
func (e *Evaluator) Produce() (*yamlh.Event, *errs.Error) {
	return e.produce()
}

// EvaluateDocumentBody evaluates one already-opened document (start is
// its DOCUMENT-START event), routing evaluated output to sink instead of
// the Evaluator's normal consumer. Used by the test harness to capture a
// document's evaluated form into an event record.
func (e *Evaluator) EvaluateDocumentBody(start *yamlh.Event, sink Consumer) *errs.Error {
	saved := e.emit
	e.emit = sink
	err := e.evalDocument(start)
	e.emit = saved
	return err
}

// EvaluateDocumentBodyFrom is EvaluateDocumentBody for a caller that has
// already read the document's body-root event off the producer.
func (e *Evaluator) EvaluateDocumentBodyFrom(start, body *yamlh.Event, sink Consumer) *errs.Error {
	saved := e.emit
	e.emit = sink
	err := e.evalDocumentFrom(start, body)
	e.emit = saved
	return err
}

// NewBufferSink adapts a *buffer.Record as a Consumer, so it can serve as
// an EvaluateDocumentBody sink or an emit target.
func NewBufferSink(r *buffer.Record) Consumer {
	return bufferSink{r}
}

// BuildTestcasesPreamble builds the sequence rooted at `root` (a
// SEQUENCE-START event already known to be tagged !testcases) into a tree
// value and returns one bridge.Handle per entry, each expected to be a
// mapping of global variable names to values for one test pair. The tag
// itself is not invoked as a function here: unlike an ordinary tagged
// aggregate, !testcases is a marker consumed by the harness, not a call.
func (e *Evaluator) BuildTestcasesPreamble(root *yamlh.Event) ([]bridge.Handle, *errs.Error) {
	if err := e.buildTree(root); err != nil {
		return nil, err
	}
	n, _ := e.br.Length()
	handles := make([]bridge.Handle, 0, n)
	for i := 1; i <= n; i++ {
		e.br.IterateSequence(i)
		handles = append(handles, e.br.CaptureTop())
	}
	e.br.Pop(1)
	return handles, nil
}

// Bridge exposes the underlying expression bridge, e.g. for the test
// harness's !testcases preamble to inject global bindings.
func (e *Evaluator) Bridge() *bridge.Bridge {
	return e.br
}

func (e *Evaluator) produce() (*yamlh.Event, *errs.Error) {
	ev, err := e.producer.Produce()
	if err != nil {
		return nil, errs.Augment(err, errs.Position{}, "while parsing the next event")
	}
	return ev, nil
}

// Run drives the STREAM state: expects STREAM-START, evaluates each
// document in turn, and stops at STREAM-END.
func (e *Evaluator) Run() *errs.Error {
	start, err := e.produce()
	if err != nil {
		return err
	}
	if start.Type != yamlh.STREAM_START_EVENT {
		return errs.New(errs.Parser, start.Position().ToErrs(), "while starting the stream", "expected STREAM-START")
	}
	if err := e.consumer.Put(start); err != nil {
		return err
	}

	for {
		ev, err := e.produce()
		if err != nil {
			return err
		}
		switch ev.Type {
		case yamlh.DOCUMENT_START_EVENT:
			if err := e.evalDocument(ev); err != nil {
				return err
			}
		case yamlh.STREAM_END_EVENT:
			return e.consumer.Put(ev)
		default:
			return errs.New(errs.Parser, ev.Position().ToErrs(), "while reading the stream", "unexpected event at stream level")
		}
	}
}

// evalDocument drives the DOCUMENT state of §4.5. The DOCUMENT-START
// event and the document body are buffered together; if the body
// evaluates to VOID the whole document (including DOCUMENT-START and
// DOCUMENT-END) is suppressed, otherwise the buffer is replayed to the
// consumer and DOCUMENT-END follows.
//
// This always buffers the full document rather than the source's
// peek-then-unbuffer optimization for non-tagged bodies: semantically equivalent, since only a root-tagged body can ever produce
// VOID, at the cost of buffering large non-tagged documents in full.
func (e *Evaluator) evalDocument(start *yamlh.Event) *errs.Error {
	body, err := e.produce()
	if err != nil {
		return err
	}
	return e.evalDocumentFrom(start, body)
}

// evalDocumentFrom is evalDocument for callers that have already read the
// document's body-root event off the producer (the test harness's
// !testcases preamble detection must peek that event before it knows
// whether the document is a preamble or an ordinary test pair).
func (e *Evaluator) evalDocumentFrom(start, body *yamlh.Event) *errs.Error {
	base := e.buf.Len()
	e.buf.Append(start)

	isVoid, err := e.evalStructural(body, ModeBuffer, true)
	if err != nil {
		return err
	}

	end, err := e.produce()
	if err != nil {
		return err
	}
	if end.Type != yamlh.DOCUMENT_END_EVENT {
		return errs.New(errs.Parser, end.Position().ToErrs(), "while ending a document", "expected DOCUMENT-END")
	}

	if isVoid {
		e.buf.Truncate(base)
		end.Release()
		return nil
	}
	e.buf.Append(end)
	return e.buf.Replay(base, e.emit)
}

// evalStructural evaluates one node (scalar, alias, sequence, or mapping)
// whose first event is `first`. If the node is a tagged invocation, it is
// built/evaluated/invoked and the result rendered; otherwise its events
// are routed to `mode` as encountered, recursing into any descendant that
// is itself a tagged invocation.
//
// If the node resolves to VOID: when allowVoid is true, evalStructural
// reports isVoid=true and produces no event; when false (sequence
// elements), VOID is a runtime error, per §9's resolution of the open
// question on sequence-element VOID. Mapping entries always accept VOID,
// including those of a mapping nested inside a sequence element.
func (e *Evaluator) evalStructural(first *yamlh.Event, mode OutputMode, allowVoid bool) (isVoid bool, failure *errs.Error) {
	if first.IsTaggedInvocation() {
		return e.evalTaggedAndRender(first, mode, allowVoid)
	}

	switch first.Type {
	case yamlh.SCALAR_EVENT, yamlh.ALIAS_EVENT:
		return false, e.route(mode, first)

	case yamlh.SEQUENCE_START_EVENT:
		if err := e.route(mode, first); err != nil {
			return false, err
		}
		for {
			child, err := e.produce()
			if err != nil {
				return false, err
			}
			if child.Type == yamlh.SEQUENCE_END_EVENT {
				return false, e.route(mode, child)
			}
			if _, err := e.evalStructural(child, mode, false); err != nil {
				return false, err
			}
		}

	case yamlh.MAPPING_START_EVENT:
		if err := e.route(mode, first); err != nil {
			return false, err
		}
		for {
			key, err := e.produce()
			if err != nil {
				return false, err
			}
			if key.Type == yamlh.MAPPING_END_EVENT {
				return false, e.route(mode, key)
			}
			if err := e.evalMappingEntry(key, mode); err != nil {
				return false, err
			}
		}

	default:
		return false, errs.New(errs.Parser, first.Position().ToErrs(), "while evaluating a node", "unexpected event")
	}
}

// evalMappingEntry evaluates one key/value pair of the MAPPING state:
// both members are buffered (regardless of the ambient `mode`) so that if
// either resolves to VOID, the whole entry can be discarded without
// having reached the consumer; otherwise the buffered pair is replayed to
// `mode`.
func (e *Evaluator) evalMappingEntry(key *yamlh.Event, mode OutputMode) *errs.Error {
	base := e.buf.Len()

	keyVoid, err := e.evalStructural(key, ModeBuffer, true)
	if err != nil {
		return err
	}

	value, err := e.produce()
	if err != nil {
		return err
	}
	valueVoid, err := e.evalStructural(value, ModeBuffer, true)
	if err != nil {
		return err
	}

	if keyVoid || valueVoid {
		e.buf.Truncate(base)
		return nil
	}

	if mode == ModeBuffer {
		// The ambient mode is itself buffering into e.buf (evalDocumentFrom,
		// or an ancestor aggregate being buffered whole): the entry's events
		// already sit at e.buf[base:], in place. Replaying them into the
		// same Record would re-append them as Replay re-reads the Record's
		// length on every iteration, so it would never terminate.
		return nil
	}

	err = e.buf.Replay(base, e.sinkFor(mode))
	e.buf.Truncate(base)
	return err
}

// evalTaggedAndRender builds/evaluates the tagged node `first`, and
// unless the result is VOID, renders it to `mode`.
func (e *Evaluator) evalTaggedAndRender(first *yamlh.Event, mode OutputMode, allowVoid bool) (bool, *errs.Error) {
	if err := e.evalTagged(first); err != nil {
		return false, err
	}
	if e.br.Kind() == bridge.KindVoid {
		e.br.Pop(1)
		if !allowVoid {
			return false, errs.New(errs.Runtime, first.Position().ToErrs(), "while evaluating a tagged node", "VOID is not permitted here")
		}
		return true, nil
	}
	err := e.rend.Render(first, e.sinkFor(mode))
	e.br.Pop(1)
	return false, err
}

// evalTagged builds and invokes the tagged node `first`, leaving the
// result (or VOID) on top of the bridge's stack. It does not render or
// pop the result; callers do that.
func (e *Evaluator) evalTagged(first *yamlh.Event) *errs.Error {
	name := first.InvocationName()
	pos := first.Position().ToErrs()

	if e.log != nil {
		e.log.WithFields(logrus.Fields{
			"tag":  string(first.Tag),
			"line": pos.Line,
		}).Debug("evaluating tagged node")
	}

	switch first.Type {
	case yamlh.SCALAR_EVENT:
		if name == "" {
			if isQuotedStyle(first.Style) {
				// Bare `!` on quoted input: push verbatim, don't evaluate
				// (§9's resolution of the quoted/bare-tag ambiguity).
				e.br.PushString(first.Value)
				return nil
			}
			return e.br.Eval(string(first.Value), pos)
		}
		e.br.PushScalar(first.Style, first.Value)
		return e.br.CallFunction(name, 1, pos)

	case yamlh.SEQUENCE_START_EVENT, yamlh.MAPPING_START_EVENT:
		if err := e.buildTree(first); err != nil {
			return err
		}
		if name == "" {
			return nil
		}
		return e.br.CallFunction(name, 1, pos)

	default:
		return errs.New(errs.Execution, pos, "while evaluating a tagged node", "only scalars, sequences, and mappings may be tagged")
	}
}

func isQuotedStyle(style yamlh.YamlScalarStyle) bool {
	return style == yamlh.SINGLE_QUOTED_SCALAR_STYLE || style == yamlh.DOUBLE_QUOTED_SCALAR_STYLE
}

// buildTree consumes the sub-stream rooted at `first` (a SEQUENCE-START
// or MAPPING-START event) into the tree builder, per §4.3, leaving the
// finished aggregate value on top of the bridge's stack.
func (e *Evaluator) buildTree(first *yamlh.Event) *errs.Error {
	switch first.Type {
	case yamlh.SEQUENCE_START_EVENT:
		e.tree.BeginSequence()
		for {
			child, err := e.produce()
			if err != nil {
				return err
			}
			if child.Type == yamlh.SEQUENCE_END_EVENT {
				return e.tree.EndSequence()
			}
			if err := e.buildTreeChild(child); err != nil {
				return err
			}
		}

	case yamlh.MAPPING_START_EVENT:
		e.tree.BeginMapping()
		for {
			key, err := e.produce()
			if err != nil {
				return err
			}
			if key.Type == yamlh.MAPPING_END_EVENT {
				return e.tree.EndMapping()
			}
			if err := e.buildTreeChild(key); err != nil {
				return err
			}
			value, err := e.produce()
			if err != nil {
				return err
			}
			if err := e.buildTreeChild(value); err != nil {
				return err
			}
		}

	default:
		return errs.New(errs.Execution, first.Position().ToErrs(), "while building a tree", "expected a sequence or mapping")
	}
}

// buildTreeChild evaluates one child of a tree-built aggregate (a
// sequence element, or a mapping key or value) and feeds its value to the
// builder's current frame.
func (e *Evaluator) buildTreeChild(child *yamlh.Event) *errs.Error {
	if child.IsTaggedInvocation() {
		if err := e.evalTagged(child); err != nil {
			return err
		}
		if e.br.Kind() == bridge.KindVoid {
			e.br.Pop(1)
			return errs.New(errs.Runtime, child.Position().ToErrs(), "while building a tree", "VOID is not permitted inside an aggregate")
		}
		return e.tree.PushChild()
	}

	switch child.Type {
	case yamlh.SCALAR_EVENT:
		return e.tree.PushScalarChild(child)
	case yamlh.SEQUENCE_START_EVENT, yamlh.MAPPING_START_EVENT:
		if err := e.buildTree(child); err != nil {
			return err
		}
		return e.tree.PushChild()
	default:
		return errs.New(errs.Execution, child.Position().ToErrs(), "while building a tree", "unexpected event inside an aggregate")
	}
}

// route sends a passthrough event to `mode`.
func (e *Evaluator) route(mode OutputMode, event *yamlh.Event) *errs.Error {
	switch mode {
	case ModeEmit:
		return e.emit.Put(event)
	case ModeBuffer:
		e.buf.Append(event)
		return nil
	case ModeDiscard:
		event.Release()
		return nil
	default:
		return errs.New(errs.Execution, event.Position().ToErrs(), "while routing an event", "unrecognized output mode")
	}
}

// sinkFor adapts `mode` to the narrow Sink shape the renderer and the
// buffer's replay expect.
func (e *Evaluator) sinkFor(mode OutputMode) Consumer {
	switch mode {
	case ModeEmit:
		return e.emit
	case ModeBuffer:
		return bufferSink{e.buf}
	default:
		return discardSink{}
	}
}

type bufferSink struct{ buf *buffer.Record }

func (s bufferSink) Put(event *yamlh.Event) *errs.Error {
	s.buf.Append(event)
	return nil
}

type discardSink struct{}

func (discardSink) Put(event *yamlh.Event) *errs.Error {
	event.Release()
	return nil
}
