package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/linelog"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/rylr"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/sink"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/store"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/web"
)

// lineHandler is the single consumer of the inbound line stream. Sinks
// run synchronously in arrival order, so output order always equals
// receive order. Everything but status and out may be nil.
type lineHandler struct {
	status *web.Status
	out    io.Writer

	sinks   sink.Sink
	history *store.Store
	live    *web.LiveFeed
	capture *linelog.Writer

	now func() time.Time
}

func (h *lineHandler) handle(line string) {
	h.status.MarkLine()

	if h.capture != nil {
		if err := h.capture.WriteLine(h.now(), line); err != nil {
			log.Printf("station: capture: %v", err)
		}
	}

	n, isNotification, err := rylr.ParseNotification(line)
	if !isNotification {
		// Boot banners, +OK echoes from another console, anything the
		// modem says that is not receive traffic.
		h.status.MarkPassthrough()
		fmt.Fprintln(h.out, line)
		return
	}
	if err != nil {
		h.status.MarkMalformed()
		log.Printf("station: %v", err)
		return
	}
	h.status.MarkNotification()

	rec, err := telemetry.DecodePayload(n.Payload)
	if err != nil {
		h.status.MarkDecodeError()
		log.Printf("station: payload from addr %d: %v", n.Addr, err)
		return
	}

	now := h.now().UTC()
	if h.sinks != nil {
		_ = h.sinks.Write(rec, n.Link)
	}
	if h.history != nil {
		if err := h.history.Append(now, rec, n.Link); err != nil {
			log.Printf("station: store: %v", err)
		}
	}
	if h.live != nil {
		h.live.Publish(now, rec, n.Link)
	}
	h.status.MarkDecoded(now, rec, n.Link)
}
