// Package renderer implements the renderer of spec §4.4: given a value at
// the top of the expression bridge's stack and a driver event (the
// original tagged node, supplying position and anchor), it emits events
// reconstructing that value to a consumer.
package renderer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/willabides/yl/internal/bridge"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

// Sink receives the events a render produces. Kept narrow (rather than
// depending on the engine package's richer Consumer) to avoid an import
// cycle, matching buffer.Sink's shape.
type Sink interface {
	Put(event *yamlh.Event) *errs.Error
}

// Renderer renders values from a Bridge's stack to a Sink.
type Renderer struct {
	br *bridge.Bridge
}

// New returns a Renderer operating against br.
func New(br *bridge.Bridge) *Renderer {
	return &Renderer{br: br}
}

var dotDigit = regexp.MustCompile(`\.[0-9]`)

// Render emits events reconstructing the value on top of the bridge's
// stack, without popping it. driver supplies the position and (for the
// outermost call) the anchor to carry over, per §8 property 2.
func (r *Renderer) Render(driver *yamlh.Event, sink Sink) *errs.Error {
	return r.render(driver, driver.NodeAnchor(), sink)
}

func (r *Renderer) render(driver *yamlh.Event, anchor []byte, sink Sink) *errs.Error {
	pos := driver.Position()
	errPos := pos.ToErrs()
	switch r.br.Kind() {
	case bridge.KindVoid:
		return errs.New(errs.Render, errPos, "while rendering a value", "VOID cannot be rendered directly")
	case bridge.KindNull:
		return emitScalar(sink, pos, anchor, "~", yamlh.PLAIN_SCALAR_STYLE)
	case bridge.KindBool:
		s := "false"
		if r.br.AsBool() {
			s = "true"
		}
		return emitScalar(sink, pos, anchor, s, yamlh.PLAIN_SCALAR_STYLE)
	case bridge.KindInt:
		return emitScalar(sink, pos, anchor, strconv.FormatInt(r.br.AsInt(), 10), yamlh.PLAIN_SCALAR_STYLE)
	case bridge.KindFloat:
		return emitScalar(sink, pos, anchor, formatFloat(r.br.AsFloat()), yamlh.PLAIN_SCALAR_STYLE)
	case bridge.KindString:
		s := string(r.br.AsString())
		return emitScalar(sink, pos, anchor, s, scalarStyleFor(s))
	case bridge.KindSequence:
		return r.renderSequence(driver, anchor, sink)
	case bridge.KindMapping:
		return r.renderMapping(driver, anchor, sink)
	default:
		return errs.New(errs.Render, errPos, "while rendering a value", "unrecognized value kind")
	}
}

func (r *Renderer) renderSequence(driver *yamlh.Event, anchor []byte, sink Sink) *errs.Error {
	n, _ := r.br.Length()
	if err := sink.Put(yamlh.SequenceStartEvent(anchor, nil, true, yamlh.ANY_SEQUENCE_STYLE)); err != nil {
		return err
	}
	for i := 1; i <= n; i++ {
		r.br.IterateSequence(i)
		if err := r.render(driver, nil, sink); err != nil {
			r.br.Pop(1)
			return err
		}
		r.br.Pop(1)
	}
	return sink.Put(yamlh.SequenceEndEvent())
}

func (r *Renderer) renderMapping(driver *yamlh.Event, anchor []byte, sink Sink) *errs.Error {
	entries := r.br.IterateMapping()
	r.br.SortMappingEntries(entries)

	if err := sink.Put(yamlh.MappingStartEvent(anchor, nil, true, yamlh.ANY_MAPPING_STYLE)); err != nil {
		return err
	}
	for _, kv := range entries {
		r.br.PushKey(kv)
		if err := r.render(driver, nil, sink); err != nil {
			r.br.Pop(1)
			return err
		}
		r.br.Pop(1)

		r.br.PushMappingValue(kv)
		if err := r.render(driver, nil, sink); err != nil {
			r.br.Pop(1)
			return err
		}
		r.br.Pop(1)
	}
	return sink.Put(yamlh.MappingEndEvent())
}

func emitScalar(sink Sink, pos yamlh.Position, anchor []byte, value string, style yamlh.YamlScalarStyle) *errs.Error {
	event := yamlh.ScalarEvent(anchor, nil, []byte(value), true, true, style)
	event.Start_mark, event.End_mark = pos, pos
	return sink.Put(event)
}

// scalarStyleFor is the pure function of §4.4: newline forces literal
// style; the literal strings "true"/"false" and anything that could be
// confused for a number at first glance are double-quoted; long strings
// fold; everything else is plain.
func scalarStyleFor(s string) yamlh.YamlScalarStyle {
	switch {
	case strings.Contains(s, "\n"):
		return yamlh.LITERAL_SCALAR_STYLE
	case s == "true" || s == "false":
		return yamlh.DOUBLE_QUOTED_SCALAR_STYLE
	case len(s) > 100:
		return yamlh.FOLDED_SCALAR_STYLE
	case len(s) > 0 && s[0] >= '0' && s[0] <= '9':
		return yamlh.DOUBLE_QUOTED_SCALAR_STYLE
	case dotDigit.MatchString(s):
		return yamlh.DOUBLE_QUOTED_SCALAR_STYLE
	default:
		return yamlh.PLAIN_SCALAR_STYLE
	}
}

// formatFloat renders f with 17 significant digits, appending ".0" if the
// result would otherwise parse as an integer (no '.' and no 'e'), per
// §4.4.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', 17, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
