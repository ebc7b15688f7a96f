// Package treebuilder implements the tree builder of spec §4.3: it
// consumes a sub-stream beginning at a sequence-start or mapping-start
// event and terminating at the matching end event, and leaves the
// resulting aggregate value at the top of the expression bridge's stack.
//
// Nested tree builders stack via an explicit frame slice rather than the
// raw parent pointers original_source's linked builder frames use (see
// DESIGN.md).
package treebuilder

import (
	"github.com/willabides/yl/internal/bridge"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

// kind distinguishes the two aggregate shapes a frame can build.
type kind int

const (
	kindSequence kind = iota
	kindMapping
)

// frame is one stacked tree-builder activation: either a sequence
// (appending each child in order) or a mapping (pairing alternating
// key/value children).
type frame struct {
	kind  kind
	index int // next 1-based sequence index to assign.

	havePendingKey bool // mapping only: a key has been pushed, awaiting its value.
}

// Builder is a stack of nested tree-builder frames. Entering a tagged
// aggregate pushes a frame; leaving it pops one and leaves the finished
// aggregate on the bridge's stack.
type Builder struct {
	br     *bridge.Bridge
	frames []frame
}

// New returns a Builder operating against br's stack.
func New(br *bridge.Bridge) *Builder {
	return &Builder{br: br}
}

// Depth reports how many aggregate frames are currently open.
func (b *Builder) Depth() int {
	return len(b.frames)
}

// BeginSequence starts a new sequence aggregate, per the sequence-start
// half of §4.3.
func (b *Builder) BeginSequence() {
	b.br.BeginTable()
	b.frames = append(b.frames, frame{kind: kindSequence, index: 1})
}

// BeginMapping starts a new mapping aggregate, per the mapping-start half
// of §4.3.
func (b *Builder) BeginMapping() {
	b.br.BeginTable()
	b.frames = append(b.frames, frame{kind: kindMapping})
}

// PushScalarChild converts a scalar event to a value using the same
// plain-scalar coercion as §4.2, then routes it to the current frame
// exactly as PushChild would. It is the SCALAR-child half of §4.3.
func (b *Builder) PushScalarChild(event *yamlh.Event) *errs.Error {
	b.br.PushScalar(event.Style, event.Value)
	return b.PushChild()
}

// PushChild routes the value currently on top of the bridge's stack (the
// result of a recursively-evaluated child, scalar or aggregate) into the
// innermost open frame: appended if the frame is a sequence, or paired as
// key/value if the frame is a mapping.
func (b *Builder) PushChild() *errs.Error {
	if len(b.frames) == 0 {
		return errs.New(errs.Execution, errs.Position{}, "while building a tree", "no open aggregate frame to receive a child value")
	}
	f := &b.frames[len(b.frames)-1]
	switch f.kind {
	case kindSequence:
		b.br.SetByIndex(f.index)
		f.index++
	case kindMapping:
		if !f.havePendingKey {
			// The value on top is the key: leave it on the stack, above
			// the table, until its paired value arrives.
			f.havePendingKey = true
			return nil
		}
		// Top is the value, with the pending key just below it and the
		// table below that.
		b.br.SetPair()
		f.havePendingKey = false
	}
	return nil
}

// EndSequence closes the innermost frame, which must be a sequence,
// leaving the finished sequence value on top of the stack.
func (b *Builder) EndSequence() *errs.Error {
	return b.end(kindSequence)
}

// EndMapping closes the innermost frame, which must be a mapping, leaving
// the finished mapping value on top of the stack.
func (b *Builder) EndMapping() *errs.Error {
	return b.end(kindMapping)
}

func (b *Builder) end(want kind) *errs.Error {
	if len(b.frames) == 0 {
		return errs.New(errs.Execution, errs.Position{}, "while closing a tree aggregate", "no open aggregate frame")
	}
	f := b.frames[len(b.frames)-1]
	if f.kind != want {
		return errs.New(errs.Execution, errs.Position{}, "while closing a tree aggregate", "aggregate kind mismatch")
	}
	b.frames = b.frames[:len(b.frames)-1]
	return nil
}
