package harness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willabides/yl/internal/engine"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/harness"
	"github.com/willabides/yl/internal/yamlh"
)

type fakeProducer struct {
	events []*yamlh.Event
	i      int
}

func (p *fakeProducer) Produce() (*yamlh.Event, *errs.Error) {
	ev := p.events[p.i]
	p.i++
	return ev, nil
}

type recorder struct {
	events []*yamlh.Event
}

func (r *recorder) Put(event *yamlh.Event) *errs.Error {
	r.events = append(r.events, event)
	return nil
}

func plainScalar(value string) *yamlh.Event {
	return yamlh.ScalarEvent(nil, nil, []byte(value), true, false, yamlh.PLAIN_SCALAR_STYLE)
}

func taggedScalar(tag, value string) *yamlh.Event {
	return yamlh.ScalarEvent(nil, []byte(tag), []byte(value), false, false, yamlh.PLAIN_SCALAR_STYLE)
}

func newHarness(events []*yamlh.Event) (*harness.Harness, *recorder) {
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	return harness.New(eval, rec), rec
}

func TestMatchingPairPasses(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		plainScalar("1"),
		yamlh.DocumentEndEvent(),
		yamlh.DocumentStartEvent(nil),
		plainScalar("1"),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	h, rec := newHarness(events)
	require.Nil(t, h.Run())
	assert.NotEmpty(t, rec.events)
}

func TestMismatchedPairFails(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		plainScalar("1"),
		yamlh.DocumentEndEvent(),
		yamlh.DocumentStartEvent(nil),
		plainScalar("2"),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	h, _ := newHarness(events)
	err := h.Run()
	require.NotNil(t, err)
	assert.Equal(t, errs.Assertion, err.Kind)
}

func TestTaggedActualEvaluatesBeforeComparing(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		taggedScalar("!double", "21"),
		yamlh.DocumentEndEvent(),
		yamlh.DocumentStartEvent(nil),
		plainScalar("42"),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	// newHarness doesn't expose the evaluator, so build one directly here
	// to install `double` before running.
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	br := eval.Bridge()
	require.Nil(t, br.Eval("function(x) return x * 2 end", errs.Position{}))
	br.SetGlobal("double", br.L.Get(-1))
	br.Pop(1)
	h := harness.New(eval, rec)

	require.Nil(t, h.Run())
}

func TestTestcasesPreambleBindsGlobalsPerPair(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		yamlh.SequenceStartEvent(nil, []byte("!testcases"), false, yamlh.ANY_SEQUENCE_STYLE),
		yamlh.MappingStartEvent(nil, nil, true, yamlh.ANY_MAPPING_STYLE),
		plainScalar("x"),
		plainScalar("1"),
		yamlh.MappingEndEvent(),
		yamlh.SequenceEndEvent(),
		yamlh.DocumentEndEvent(),
		yamlh.DocumentStartEvent(nil),
		taggedScalar("!", "x + 1"),
		yamlh.DocumentEndEvent(),
		yamlh.DocumentStartEvent(nil),
		plainScalar("2"),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	h, rec := newHarness(events)
	require.Nil(t, h.Run())

	var scalarSeen bool
	for _, e := range rec.events {
		if e.Type == yamlh.SCALAR_EVENT && string(e.Value) == "2" {
			scalarSeen = true
		}
	}
	assert.True(t, scalarSeen)
}

func TestTestcasesPreambleLengthMismatch(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		yamlh.SequenceStartEvent(nil, []byte("!testcases"), false, yamlh.ANY_SEQUENCE_STYLE),
		yamlh.MappingStartEvent(nil, nil, true, yamlh.ANY_MAPPING_STYLE),
		plainScalar("x"),
		plainScalar("1"),
		yamlh.MappingEndEvent(),
		yamlh.SequenceEndEvent(),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	h, _ := newHarness(events)
	err := h.Run()
	require.NotNil(t, err)
	assert.Equal(t, errs.Assertion, err.Kind)
}
