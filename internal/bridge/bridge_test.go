package bridge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willabides/yl/internal/bridge"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

func TestEval(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	err := b.Eval("1 + 2", errs.Position{Line: 1, Column: 1})
	require.Nil(t, err)
	assert.Equal(t, bridge.KindInt, b.Kind())
	assert.Equal(t, int64(3), b.AsInt())
}

func TestEvalSyntaxError(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	err := b.Eval("1 +", errs.Position{Line: 1, Column: 1})
	require.NotNil(t, err)
	assert.Equal(t, errs.Syntax, err.Kind)
}

func TestCallFunctionGlobal(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	require.Nil(t, b.Eval("function(v) return v * 2 end", errs.Position{}))
	b.SetGlobal("double", b.L.Get(-1))
	b.Pop(1)

	b.PushInt(21)
	err := b.CallFunction("double", 1, errs.Position{Line: 1, Column: 1})
	require.Nil(t, err)
	assert.Equal(t, bridge.KindInt, b.Kind())
	assert.Equal(t, int64(42), b.AsInt())
}

func TestCallFunctionNotAFunction(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	// "1+1" is not a bound global, so CallFunction falls back to compiling
	// it as an expression; the result (2) is not a function.
	b.PushInt(1)
	err := b.CallFunction("1+1", 1, errs.Position{Line: 1, Column: 1})
	require.NotNil(t, err)
	assert.Equal(t, errs.Runtime, err.Kind)
}

func TestPushScalarPlainCoercion(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	cases := []struct {
		value string
		kind  bridge.Kind
	}{
		{"true", bridge.KindBool},
		{"42", bridge.KindInt},
		{"3.14", bridge.KindFloat},
		{"~", bridge.KindNull},
		{"hello", bridge.KindString},
	}
	for _, c := range cases {
		b.PushScalar(yamlh.PLAIN_SCALAR_STYLE, []byte(c.value))
		assert.Equal(t, c.kind, b.Kind(), c.value)
		b.Pop(1)
	}
}

func TestPushScalarQuotedIsAlwaysString(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	b.PushScalar(yamlh.DOUBLE_QUOTED_SCALAR_STYLE, []byte("true"))
	assert.Equal(t, bridge.KindString, b.Kind())
	assert.Equal(t, "true", string(b.AsString()))
}

func TestBeginTableSetByIndexAndKey(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	b.BeginTable()
	b.PushInt(10)
	b.SetByIndex(1)
	b.PushString([]byte("bar"))
	b.SetByKey("foo")

	// Index 1 is present, so the table is a sequence of length 1; the
	// string key does not count towards its length.
	n, isSeq := b.Length()
	assert.True(t, isSeq)
	assert.Equal(t, 1, n)
	assert.Equal(t, bridge.KindSequence, b.Kind())
}

func TestSetPair(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	b.BeginTable()
	b.PushString([]byte("k"))
	b.PushInt(7)
	b.SetPair()

	entries := b.IterateMapping()
	require.Len(t, entries, 1)
	b.PushMappingValue(entries[0])
	assert.Equal(t, int64(7), b.AsInt())
}

func TestLengthSequence(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	b.BeginTable()
	for i := 1; i <= 3; i++ {
		b.PushInt(int64(i * 10))
		b.SetByIndex(i)
	}
	n, isSeq := b.Length()
	assert.True(t, isSeq)
	assert.Equal(t, 3, n)

	b.IterateSequence(2)
	assert.Equal(t, int64(20), b.AsInt())
}

func TestCaptureTopAndPush(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	b.PushString([]byte("hi"))
	h := b.CaptureTop()
	b.PushInt(1) // something else on the stack in between
	b.Pop(1)
	b.Push(h)
	assert.Equal(t, bridge.KindString, b.Kind())
	assert.Equal(t, "hi", string(b.AsString()))
}

func TestApplyGlobalsFrom(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	b.BeginTable()
	b.PushString([]byte("x"))
	b.PushInt(5)
	b.SetPair()
	h := b.CaptureTop()

	require.Nil(t, b.ApplyGlobalsFrom(h, errs.Position{Line: 1, Column: 1}))
	require.Nil(t, b.Eval("x", errs.Position{}))
	assert.Equal(t, int64(5), b.AsInt())
}

func TestSortMappingEntriesCrossType(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	b.BeginTable()
	b.PushString([]byte("z"))
	b.SetByKey("z")
	b.PushInt(1)
	b.SetByIndex(1)
	b.PushBool(true)
	b.SetByKey("flag")

	entries := b.IterateMapping()
	b.SortMappingEntries(entries)

	var kinds []bridge.Kind
	for _, kv := range entries {
		b.PushKey(kv)
		kinds = append(kinds, b.Kind())
		b.Pop(1)
	}
	for i := 1; i < len(kinds); i++ {
		assert.LessOrEqual(t, kinds[i-1], kinds[i])
	}
}
