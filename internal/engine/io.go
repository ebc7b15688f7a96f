package engine

import (
	"io"

	"github.com/willabides/yl/internal/emitter"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/parserc"
	"github.com/willabides/yl/internal/yamlh"
)

// parserProducer is the Producer variant of §9's re-architected
// producer/consumer polymorphism, backed by the teacher's event parser.
type parserProducer struct {
	p *parserc.YamlParser
}

// NewParserProducer returns a Producer that parses YAML events from r.
func NewParserProducer(r io.Reader) Producer {
	return &parserProducer{p: parserc.New(r)}
}

func (pp *parserProducer) Produce() (*yamlh.Event, *errs.Error) {
	event, err := parserc.Parse(pp.p)
	if err != nil {
		pos := errs.Position{Line: pp.p.Mark.Line + 1, Column: pp.p.Mark.Column + 1}
		return nil, errs.New(errs.Parser, pos, "while parsing the input stream", err.Error())
	}
	return event, nil
}

// emitterConsumer is the Consumer variant backed by the teacher's
// event emitter, writing YAML text to an io.Writer.
type emitterConsumer struct {
	em *emitter.Emitter
}

// NewEmitterConsumer returns a Consumer that emits YAML text to w.
func NewEmitterConsumer(w io.Writer) Consumer {
	return &emitterConsumer{em: emitter.New(w)}
}

func (ec *emitterConsumer) Put(event *yamlh.Event) *errs.Error {
	final := event.Type == yamlh.STREAM_END_EVENT
	if err := ec.em.Emit(event, final); err != nil {
		return errs.New(errs.Emitter, event.Position().ToErrs(), "while emitting an event", err.Error())
	}
	return nil
}
