package main

import (
	"log"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/web"
)

type sampler interface {
	Sample() (telemetry.Fix, bool)
}

type transmitter interface {
	Transmit(payload string) error
}

// uptimeMs is the on-wire timestamp: milliseconds since process start,
// wrapping like a 32-bit millisecond counter.
func uptimeMs(start time.Time) uint32 {
	return uint32(time.Since(start).Milliseconds())
}

// runCycle performs one sample-and-transmit pass. Nothing in here is
// fatal: a cycle that cannot produce a frame is counted and skipped, a
// rejected transmission is counted and the next tick tries again.
func runCycle(status *web.Status, s sampler, tx transmitter, nowMs uint32) {
	fix, ok := s.Sample()
	if !ok {
		status.MarkCycleNoFix()
		return
	}

	rec := telemetry.Record{TimestampMs: nowMs, Fix: fix}
	payload, err := telemetry.EncodePayload(rec)
	if err != nil {
		status.MarkEncodeError()
		log.Printf("tracker: encode: %v", err)
		return
	}

	if err := tx.Transmit(payload); err != nil {
		status.MarkTransmitError()
		log.Printf("tracker: transmit: %v", err)
		return
	}
	status.MarkTransmitOK()
}
