package treebuilder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willabides/yl/internal/bridge"
	"github.com/willabides/yl/internal/treebuilder"
	"github.com/willabides/yl/internal/yamlh"
)

func scalar(value string) *yamlh.Event {
	return yamlh.ScalarEvent(nil, nil, []byte(value), true, false, yamlh.PLAIN_SCALAR_STYLE)
}

func TestBuildSequence(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	b := treebuilder.New(br)

	b.BeginSequence()
	require.Nil(t, b.PushScalarChild(scalar("1")))
	require.Nil(t, b.PushScalarChild(scalar("2")))
	require.Nil(t, b.PushScalarChild(scalar("3")))
	require.Nil(t, b.EndSequence())

	n, isSeq := br.Length()
	assert.True(t, isSeq)
	assert.Equal(t, 3, n)

	br.IterateSequence(2)
	assert.Equal(t, int64(2), br.AsInt())
}

func TestBuildMapping(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	b := treebuilder.New(br)

	b.BeginMapping()
	require.Nil(t, b.PushScalarChild(scalar("a")))
	require.Nil(t, b.PushScalarChild(scalar("1")))
	require.Nil(t, b.PushScalarChild(scalar("b")))
	require.Nil(t, b.PushScalarChild(scalar("2")))
	require.Nil(t, b.EndMapping())

	assert.Equal(t, bridge.KindMapping, br.Kind())
	entries := br.IterateMapping()
	assert.Len(t, entries, 2)
}

func TestBuildNestedAggregate(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	b := treebuilder.New(br)

	b.BeginSequence()
	require.Nil(t, b.PushScalarChild(scalar("x")))

	b.BeginSequence()
	require.Nil(t, b.PushScalarChild(scalar("10")))
	require.Nil(t, b.PushScalarChild(scalar("20")))
	require.Nil(t, b.EndSequence())
	require.Nil(t, b.PushChild())

	require.Nil(t, b.EndSequence())

	n, isSeq := br.Length()
	assert.True(t, isSeq)
	assert.Equal(t, 2, n)

	br.IterateSequence(2)
	inner, isSeq := br.Length()
	assert.True(t, isSeq)
	assert.Equal(t, 2, inner)
}

func TestEndKindMismatch(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	b := treebuilder.New(br)

	b.BeginSequence()
	err := b.EndMapping()
	require.NotNil(t, err)
}

func TestPushChildWithNoOpenFrame(t *testing.T) {
	br := bridge.New()
	defer br.Close()
	b := treebuilder.New(br)

	br.PushInt(1)
	err := b.PushChild()
	require.NotNil(t, err)
}
