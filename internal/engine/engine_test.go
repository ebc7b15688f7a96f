package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willabides/yl/internal/engine"
	"github.com/willabides/yl/internal/errs"
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

func scalarValues(events []*yamlh.Event) []string {
	var out []string
	for _, e := range events {
		if e.Type == yamlh.SCALAR_EVENT {
			out = append(out, string(e.Value))
		}
	}
	return out
}

func TestE1PassThrough(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		yamlh.SequenceStartEvent(nil, nil, true, yamlh.ANY_SEQUENCE_STYLE),
		plainScalar("1"),
		plainScalar("two"),
		plainScalar("true"),
		yamlh.SequenceEndEvent(),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	defer eval.Close()

	require.Nil(t, eval.Run())
	assert.Equal(t, []string{"1", "two", "true"}, scalarValues(rec.events))
}

func TestE2ScalarInvocation(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		taggedScalar("!double", "21"),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	defer eval.Close()

	br := eval.Bridge()
	require.Nil(t, br.Eval("function(x) return x * 2 end", errs.Position{}))
	br.SetGlobal("double", br.L.Get(-1))
	br.Pop(1)

	require.Nil(t, eval.Run())
	assert.Equal(t, []string{"42"}, scalarValues(rec.events))
}

func TestE3BareTagExpression(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		taggedScalar("!", "1 + 2"),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	defer eval.Close()

	require.Nil(t, eval.Run())
	assert.Equal(t, []string{"3"}, scalarValues(rec.events))
}

func TestE4MappingInvocation(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		yamlh.MappingStartEvent(nil, []byte("!keys"), false, yamlh.ANY_MAPPING_STYLE),
		plainScalar("a"),
		plainScalar("1"),
		plainScalar("b"),
		plainScalar("2"),
		yamlh.MappingEndEvent(),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	defer eval.Close()

	br := eval.Bridge()
	require.Nil(t, br.Eval(`function(t)
		local r = {}
		local i = 1
		for k, _ in pairs(t) do
			r[i] = k
			i = i + 1
		end
		return r
	end`, errs.Position{}))
	br.SetGlobal("keys", br.L.Get(-1))
	br.Pop(1)

	require.Nil(t, eval.Run())
	values := scalarValues(rec.events)
	assert.ElementsMatch(t, []string{"a", "b"}, values)
	// rec.events[0] and [1] are STREAM-START and DOCUMENT-START.
	assert.Equal(t, yamlh.SEQUENCE_START_EVENT, rec.events[2].Type)
}

func TestE5VoidDocumentSuppressed(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		yamlh.MappingStartEvent(nil, []byte("!skip"), false, yamlh.ANY_MAPPING_STYLE),
		yamlh.MappingEndEvent(),
		yamlh.DocumentEndEvent(),
		yamlh.DocumentStartEvent(nil),
		yamlh.MappingStartEvent(nil, nil, true, yamlh.ANY_MAPPING_STYLE),
		plainScalar("kept"),
		plainScalar("1"),
		yamlh.MappingEndEvent(),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	defer eval.Close()

	br := eval.Bridge()
	require.Nil(t, br.Eval("function() return void end", errs.Position{}))
	br.SetGlobal("skip", br.L.Get(-1))
	br.Pop(1)

	require.Nil(t, eval.Run())

	var docStarts int
	for _, e := range rec.events {
		if e.Type == yamlh.DOCUMENT_START_EVENT {
			docStarts++
		}
	}
	assert.Equal(t, 1, docStarts)
	assert.Equal(t, []string{"kept", "1"}, scalarValues(rec.events))
}

func TestSequenceElementVoidIsAnError(t *testing.T) {
	events := []*yamlh.Event{
		yamlh.StreamStartEvent(),
		yamlh.DocumentStartEvent(nil),
		yamlh.SequenceStartEvent(nil, nil, true, yamlh.ANY_SEQUENCE_STYLE),
		taggedScalar("!skip", ""),
		yamlh.SequenceEndEvent(),
		yamlh.DocumentEndEvent(),
		yamlh.StreamEndEvent(),
	}
	rec := &recorder{}
	eval := engine.New(&fakeProducer{events: events}, rec, nil)
	defer eval.Close()

	br := eval.Bridge()
	require.Nil(t, br.Eval("function() return void end", errs.Position{}))
	br.SetGlobal("skip", br.L.Get(-1))
	br.Pop(1)

	err := eval.Run()
	require.NotNil(t, err)
	assert.Equal(t, errs.Runtime, err.Kind)
}
