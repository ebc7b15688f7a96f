package yamlh_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

func TestIsTaggedInvocation(t *testing.T) {
	cases := []struct {
		name string
		tag  string
		want bool
	}{
		{"no tag", "", false},
		{"bare bang", "!", true},
		{"named local tag", "!double", true},
		{"builtin str tag", "!!str", false},
		{"not a bang", "tag:yaml.org,2002:str", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ev := yamlh.ScalarEvent(nil, []byte(c.tag), []byte("x"), false, false, yamlh.PLAIN_SCALAR_STYLE)
			if c.tag == "" {
				ev.Tag = nil
			}
			assert.Equal(t, c.want, ev.IsTaggedInvocation())
		})
	}
}

func TestInvocationName(t *testing.T) {
	ev := yamlh.ScalarEvent(nil, []byte("!double"), []byte("x"), false, false, yamlh.PLAIN_SCALAR_STYLE)
	assert.Equal(t, "double", ev.InvocationName())

	bare := yamlh.ScalarEvent(nil, []byte("!"), []byte("x"), false, false, yamlh.PLAIN_SCALAR_STYLE)
	assert.Equal(t, "", bare.InvocationName())
}

func TestCloneIsIndependent(t *testing.T) {
	original := yamlh.ScalarEvent([]byte("a"), []byte("!t"), []byte("v"), true, false, yamlh.PLAIN_SCALAR_STYLE)
	clone := original.Clone()

	clone.Value[0] = 'X'
	assert.Equal(t, byte('v'), original.Value[0])
	assert.Equal(t, "v", string(original.Value))
}

func TestReleaseZeroesEvent(t *testing.T) {
	ev := yamlh.ScalarEvent([]byte("a"), []byte("!t"), []byte("v"), true, false, yamlh.PLAIN_SCALAR_STYLE)
	ev.Release()
	assert.Equal(t, yamlh.NO_EVENT, ev.Type)
	assert.Nil(t, ev.Value)
}

func TestPositionToErrsIsOneBased(t *testing.T) {
	pos := yamlh.Position{Line: 0, Column: 0}
	assert.Equal(t, errs.Position{Line: 1, Column: 1}, pos.ToErrs())

	pos2 := yamlh.Position{Line: 4, Column: 9}
	assert.Equal(t, errs.Position{Line: 5, Column: 10}, pos2.ToErrs())
}

func TestNodeAnchor(t *testing.T) {
	scalar := yamlh.ScalarEvent([]byte("anchor1"), nil, []byte("v"), true, false, yamlh.PLAIN_SCALAR_STYLE)
	assert.Equal(t, "anchor1", string(scalar.NodeAnchor()))

	end := yamlh.SequenceEndEvent()
	assert.Nil(t, end.NodeAnchor())
}
