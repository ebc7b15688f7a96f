package resolve_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/willabides/yl/internal/resolve"
)

func TestClassifyPlain(t *testing.T) {
	cases := []struct {
		in   string
		kind resolve.PlainKind
		val  interface{}
	}{
		{"", resolve.KindNull, nil},
		{"~", resolve.KindNull, nil},
		{"null", resolve.KindNull, nil},
		{"Null", resolve.KindNull, nil},
		{"true", resolve.KindBool, true},
		{"False", resolve.KindBool, false},
		{"FALSE", resolve.KindBool, false},
		{"0", resolve.KindInt, int64(0)},
		{"42", resolve.KindInt, int64(42)},
		{"-17", resolve.KindInt, int64(-17)},
		{"1_000", resolve.KindInt, int64(1000)},
		{"0x2a", resolve.KindInt, int64(42)},
		{"0o52", resolve.KindInt, int64(42)},
		{"0b101010", resolve.KindInt, int64(42)},
		{"052", resolve.KindInt, int64(42)},
		{"3.14", resolve.KindFloat, 3.14},
		{"-3.14", resolve.KindFloat, -3.14},
		{".5", resolve.KindFloat, 0.5},
		{"1e10", resolve.KindFloat, 1e10},
		{".inf", resolve.KindFloat, math.Inf(1)},
		{"-.inf", resolve.KindFloat, math.Inf(-1)},
		{"hello", resolve.KindString, "hello"},
		{"42abc", resolve.KindString, "42abc"},
		{"0x", resolve.KindString, "0x"},
	}

	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			kind, val := resolve.ClassifyPlain(c.in)
			assert.Equal(t, c.kind, kind)
			if c.kind == resolve.KindFloat {
				if f, ok := c.val.(float64); ok && math.IsInf(f, 0) {
					assert.Equal(t, f, val)
					return
				}
				assert.InDelta(t, c.val, val, 1e-9)
				return
			}
			assert.Equal(t, c.val, val)
		})
	}
}

func TestClassifyPlainNaN(t *testing.T) {
	kind, val := resolve.ClassifyPlain(".nan")
	assert.Equal(t, resolve.KindFloat, kind)
	assert.True(t, math.IsNaN(val.(float64)))
}
