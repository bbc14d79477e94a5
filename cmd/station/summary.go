package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/linelog"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/rylr"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

type logSummary struct {
	Segments      int
	Lines         int
	Notifications int
	Malformed     int
	Decoded       int
	DecodeErrors  int
	Passthrough   int

	Bytes       uint64
	MaxDuration time.Duration

	RSSIMin int16
	RSSIMax int16
}

func summarizeCapture(records []linelog.Record) logSummary {
	s := logSummary{}

	segments := 0
	hasLines := false

	for _, r := range records {
		if r.Marker {
			segments++
			continue
		}
		hasLines = true

		s.Lines++
		s.Bytes += uint64(len(r.Line))
		if r.At > s.MaxDuration {
			s.MaxDuration = r.At
		}

		n, isNotification, err := rylr.ParseNotification(r.Line)
		if !isNotification {
			s.Passthrough++
			continue
		}
		if err != nil {
			s.Malformed++
			continue
		}
		s.Notifications++

		if s.Notifications == 1 || n.Link.RSSI < s.RSSIMin {
			s.RSSIMin = n.Link.RSSI
		}
		if s.Notifications == 1 || n.Link.RSSI > s.RSSIMax {
			s.RSSIMax = n.Link.RSSI
		}

		if _, err := telemetry.DecodePayload(n.Payload); err != nil {
			s.DecodeErrors++
			continue
		}
		s.Decoded++
	}
	if segments == 0 && hasLines {
		segments = 1
	}
	s.Segments = segments

	return s
}

func printLogSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	recs, err := linelog.NewReader(f).ReadAll()
	if err != nil {
		return err
	}

	s := summarizeCapture(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "lines: %d\n", s.Lines)
	fmt.Fprintf(w, "notifications: %d\n", s.Notifications)
	fmt.Fprintf(w, "malformed: %d\n", s.Malformed)
	fmt.Fprintf(w, "decoded: %d\n", s.Decoded)
	fmt.Fprintf(w, "decode_errors: %d\n", s.DecodeErrors)
	fmt.Fprintf(w, "passthrough: %d\n", s.Passthrough)
	fmt.Fprintf(w, "bytes: %s\n", humanize.Bytes(s.Bytes))
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	if s.Notifications > 0 {
		fmt.Fprintf(w, "rssi_range: %d..%d dBm\n", s.RSSIMin, s.RSSIMax)
	}
	return nil
}
