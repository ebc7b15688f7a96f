package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/yamlh"
)

// DumpConsumer is the -d/--debug Consumer: instead of re-emitting YAML it
// logs a structured trace of each event, for inspecting what the
// evaluator produced without round-tripping through an emitter.
type DumpConsumer struct {
	log *logrus.Logger
}

// NewDumpConsumer returns a Consumer that logs events via log.
func NewDumpConsumer(log *logrus.Logger) Consumer {
	return &DumpConsumer{log: log}
}

func (d *DumpConsumer) Put(event *yamlh.Event) *errs.Error {
	entry := d.log.WithFields(logrus.Fields{
		"event":  eventTypeName(event.Type),
		"line":   event.Start_mark.Line + 1,
		"column": event.Start_mark.Column + 1,
	})
	if len(event.Anchor) > 0 {
		entry = entry.WithField("anchor", string(event.Anchor))
	}
	if len(event.Tag) > 0 {
		entry = entry.WithField("tag", string(event.Tag))
	}
	switch event.Type {
	case yamlh.SCALAR_EVENT:
		entry.WithField("value", string(event.Value)).Debug("scalar")
	default:
		entry.Debug(eventTypeName(event.Type))
	}
	event.Release()
	return nil
}

func eventTypeName(t yamlh.EventType) string {
	return t.String()
}
