//
// Copyright (c) 2011-2019 Canonical Ltd
// Copyright (c) 2006-2010 Kirill Simonov
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package yamlh

import "github.com/willabides/yl/internal/errs"

// StreamStartEvent creates a STREAM-START event.
func StreamStartEvent() *Event {
	return &Event{Type: STREAM_START_EVENT, Encoding: UTF8_ENCODING}
}

// StreamEndEvent creates a STREAM-END event.
func StreamEndEvent() *Event {
	return &Event{Type: STREAM_END_EVENT}
}

// DocumentStartEvent creates a DOCUMENT-START event.
func DocumentStartEvent(tagDirectives []TagDirective) *Event {
	return &Event{
		Type:           DOCUMENT_START_EVENT,
		Implicit:       true,
		Tag_directives: tagDirectives,
	}
}

// DocumentEndEvent creates a DOCUMENT-END event.
func DocumentEndEvent() *Event {
	return &Event{Type: DOCUMENT_END_EVENT, Implicit: true}
}

// AliasEvent creates an ALIAS event.
func AliasEvent(anchor []byte) *Event {
	return &Event{Type: ALIAS_EVENT, Anchor: anchor}
}

// ScalarEvent creates a SCALAR event.
func ScalarEvent(anchor, tag, value []byte, plainImplicit, quotedImplicit bool, style YamlScalarStyle) *Event {
	return &Event{
		Type:            SCALAR_EVENT,
		Anchor:          anchor,
		Tag:             tag,
		Value:           value,
		Implicit:        plainImplicit,
		Quoted_implicit: quotedImplicit,
		Style:           YamlStyle(style),
	}
}

// SequenceStartEvent creates a SEQUENCE-START event.
func SequenceStartEvent(anchor, tag []byte, implicit bool, style YamlSequenceStyle) *Event {
	return &Event{
		Type:     SEQUENCE_START_EVENT,
		Anchor:   anchor,
		Tag:      tag,
		Implicit: implicit,
		Style:    YamlStyle(style),
	}
}

// SequenceEndEvent creates a SEQUENCE-END event.
func SequenceEndEvent() *Event {
	return &Event{Type: SEQUENCE_END_EVENT}
}

// MappingStartEvent creates a MAPPING-START event.
func MappingStartEvent(anchor, tag []byte, implicit bool, style YamlMappingStyle) *Event {
	return &Event{
		Type:     MAPPING_START_EVENT,
		Anchor:   anchor,
		Tag:      tag,
		Implicit: implicit,
		Style:    YamlStyle(style),
	}
}

// MappingEndEvent creates a MAPPING-END event.
func MappingEndEvent() *Event {
	return &Event{Type: MAPPING_END_EVENT}
}

// Clone deep-copies an event, duplicating its owned byte slices so the copy
// and the original can be released independently. A nil receiver clones to nil.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	c.Anchor = cloneBytes(e.Anchor)
	c.Tag = cloneBytes(e.Tag)
	c.Value = cloneBytes(e.Value)
	c.Head_comment = cloneBytes(e.Head_comment)
	c.Line_comment = cloneBytes(e.Line_comment)
	c.Foot_comment = cloneBytes(e.Foot_comment)
	c.Tail_comment = cloneBytes(e.Tail_comment)
	if e.Tag_directives != nil {
		c.Tag_directives = append([]TagDirective(nil), e.Tag_directives...)
	}
	if e.Version_directive != nil {
		vd := *e.Version_directive
		c.Version_directive = &vd
	}
	return &c
}

// Release clears an event's owned fields. A released event is the
// "consumed" zero value (Type == NO_EVENT) and may be reused.
func (e *Event) Release() {
	if e == nil {
		return
	}
	*e = Event{}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// IsTaggedInvocation reports whether the event carries a user-defined local
// tag: non-null, begins with '!', and whose second byte (if any) is not '!'.
// Per spec §4.5, a bare "!" on a scalar also counts (function name is empty).
func (e *Event) IsTaggedInvocation() bool {
	if e == nil || len(e.Tag) == 0 || e.Tag[0] != '!' {
		return false
	}
	if len(e.Tag) > 1 && e.Tag[1] == '!' {
		return false
	}
	return true
}

// InvocationName returns the function name named by a tagged invocation's
// tag: the bytes after the leading '!'.
func (e *Event) InvocationName() string {
	if len(e.Tag) <= 1 {
		return ""
	}
	return string(e.Tag[1:])
}

// NodeAnchor returns the anchor carried by a SCALAR, SEQUENCE-START,
// MAPPING-START, or ALIAS event, or nil for any other event type.
func (e *Event) NodeAnchor() []byte {
	switch e.Type {
	case SCALAR_EVENT, SEQUENCE_START_EVENT, MAPPING_START_EVENT, ALIAS_EVENT:
		return e.Anchor
	default:
		return nil
	}
}

// Position returns the event's start position.
func (e *Event) Position() Position {
	return e.Start_mark
}

// ToErrs converts a mark to the 1-based line/column errs.Position uses in
// diagnostics.
func (p Position) ToErrs() errs.Position {
	return errs.Position{Line: p.Line + 1, Column: p.Column + 1}
}
