package renderer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willabides/yl/internal/bridge"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/renderer"
	"github.com/willabides/yl/internal/yamlh"
)

type recorder struct {
	events []*yamlh.Event
}

func (r *recorder) Put(event *yamlh.Event) *errs.Error {
	r.events = append(r.events, event)
	return nil
}

func driverAt(anchor []byte) *yamlh.Event {
	ev := yamlh.ScalarEvent(anchor, []byte("!x"), []byte(""), false, false, yamlh.ANY_SCALAR_STYLE)
	ev.Start_mark = yamlh.Position{Line: 2, Column: 4}
	ev.End_mark = yamlh.Position{Line: 2, Column: 4}
	return ev
}

func TestRenderScalarKinds(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	r := renderer.New(br)

	cases := []struct {
		push  func()
		value string
		style yamlh.YamlScalarStyle
	}{
		{func() { br.PushNil() }, "~", yamlh.PLAIN_SCALAR_STYLE},
		{func() { br.PushBool(true) }, "true", yamlh.PLAIN_SCALAR_STYLE},
		{func() { br.PushInt(42) }, "42", yamlh.PLAIN_SCALAR_STYLE},
		{func() { br.PushString([]byte("hello")) }, "hello", yamlh.PLAIN_SCALAR_STYLE},
		{func() { br.PushString([]byte("line1\nline2")) }, "line1\nline2", yamlh.LITERAL_SCALAR_STYLE},
	}
	for _, c := range cases {
		c.push()
		rec := &recorder{}
		require.Nil(t, r.Render(driverAt(nil), rec))
		require.Len(t, rec.events, 1)
		assert.Equal(t, c.value, string(rec.events[0].Value))
		assert.Equal(t, c.style, rec.events[0].Style)
		br.Pop(1)
	}
}

func TestRenderFloatAppendsDotZero(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	r := renderer.New(br)

	br.PushFloat(5)
	rec := &recorder{}
	require.Nil(t, r.Render(driverAt(nil), rec))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "5.0", string(rec.events[0].Value))
}

func TestRenderSequence(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	r := renderer.New(br)

	br.BeginTable()
	br.PushInt(1)
	br.SetByIndex(1)
	br.PushInt(2)
	br.SetByIndex(2)

	rec := &recorder{}
	require.Nil(t, r.Render(driverAt([]byte("anchor1")), rec))

	require.Len(t, rec.events, 4)
	assert.Equal(t, yamlh.SEQUENCE_START_EVENT, rec.events[0].Type)
	assert.Equal(t, "anchor1", string(rec.events[0].Anchor))
	assert.Equal(t, yamlh.SCALAR_EVENT, rec.events[1].Type)
	assert.Equal(t, "1", string(rec.events[1].Value))
	assert.Equal(t, yamlh.SCALAR_EVENT, rec.events[2].Type)
	assert.Equal(t, "2", string(rec.events[2].Value))
	assert.Equal(t, yamlh.SEQUENCE_END_EVENT, rec.events[3].Type)
}

func TestRenderMappingSortsKeys(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	r := renderer.New(br)

	br.BeginTable()
	br.PushString([]byte("v"))
	br.SetByKey("z")
	br.PushString([]byte("v"))
	br.SetByKey("a")

	rec := &recorder{}
	require.Nil(t, r.Render(driverAt(nil), rec))

	require.Len(t, rec.events, 6)
	assert.Equal(t, yamlh.MAPPING_START_EVENT, rec.events[0].Type)
	assert.Equal(t, "a", string(rec.events[1].Value))
	assert.Equal(t, "z", string(rec.events[3].Value))
	assert.Equal(t, yamlh.MAPPING_END_EVENT, rec.events[5].Type)
}

func TestRenderVoidIsAnError(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	r := renderer.New(br)

	br.PushVoid()
	rec := &recorder{}
	err := r.Render(driverAt(nil), rec)
	require.NotNil(t, err)
	assert.Equal(t, errs.Render, err.Kind)
}
