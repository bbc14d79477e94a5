// Package sink fans decoded telemetry records out to their consumers:
// stdout CSV, a UDP forwarder, and an MQTT last-value topic. Every sink
// receives the raw integer record; any formatting is the sink's own.
package sink

import (
	"log"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

type Sink interface {
	Write(rec telemetry.Record, link telemetry.Link) error
	Close() error
}

// Multi delivers to every sink in order. A failing sink is logged and
// skipped; one slow or broken output must never cost the others a record,
// and never stalls the receive loop into an error path.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Write(rec telemetry.Record, link telemetry.Link) error {
	for _, s := range m.sinks {
		if err := s.Write(rec, link); err != nil {
			log.Printf("sink: %v", err)
		}
	}
	return nil
}

func (m *Multi) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
