package buffer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willabides/yl/internal/buffer"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

type recorder struct {
	events []*yamlh.Event
}

func (r *recorder) Put(event *yamlh.Event) *errs.Error {
	r.events = append(r.events, event)
	return nil
}

func scalar(value string) *yamlh.Event {
	return yamlh.ScalarEvent(nil, nil, []byte(value), true, false, yamlh.PLAIN_SCALAR_STYLE)
}

func TestAppendAndLen(t *testing.T) {
	r := &buffer.Record{}
	assert.Equal(t, 0, r.Len())
	r.Append(scalar("a"))
	r.Append(scalar("b"))
	assert.Equal(t, 2, r.Len())
}

func TestAppendGrowsPastSmallCapacities(t *testing.T) {
	r := &buffer.Record{}
	for i := 0; i < 20; i++ {
		r.Append(scalar("x"))
	}
	assert.Equal(t, 20, r.Len())
}

func TestReplayPreservesOrder(t *testing.T) {
	r := &buffer.Record{}
	r.Append(scalar("a"))
	r.Append(scalar("b"))
	r.Append(scalar("c"))

	rec := &recorder{}
	require.Nil(t, r.Replay(0, rec))
	require.Len(t, rec.events, 3)
	assert.Equal(t, "a", string(rec.events[0].Value))
	assert.Equal(t, "c", string(rec.events[2].Value))
}

func TestReplaySince(t *testing.T) {
	r := &buffer.Record{}
	r.Append(scalar("a"))
	r.Append(scalar("b"))
	r.Append(scalar("c"))

	rec := &recorder{}
	require.Nil(t, r.Replay(1, rec))
	require.Len(t, rec.events, 2)
	assert.Equal(t, "b", string(rec.events[0].Value))
}

func TestTruncate(t *testing.T) {
	r := &buffer.Record{}
	r.Append(scalar("a"))
	r.Append(scalar("b"))
	r.Append(scalar("c"))

	r.Truncate(1)
	assert.Equal(t, 1, r.Len())

	rec := &recorder{}
	require.Nil(t, r.Replay(0, rec))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "a", string(rec.events[0].Value))
}

func TestSerialize(t *testing.T) {
	r := &buffer.Record{}
	r.Append(yamlh.DocumentStartEvent(nil))
	r.Append(scalar("hello"))
	r.Append(yamlh.DocumentEndEvent())

	out, err := r.Serialize()
	require.Nil(t, err)
	assert.True(t, strings.Contains(out, "hello"))
}
