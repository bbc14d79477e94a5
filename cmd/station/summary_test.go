package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/linelog"
)

func TestSummarizeCapture(t *testing.T) {
	records := []linelog.Record{
		{Marker: true},
		{At: 0, Line: "+RCV=1,30,100;200;300;400,-50,7"},
		{At: 2 * time.Second, Line: "+RCV=1,30,101;201;301;401,-70,2"},
		{At: 3 * time.Second, Line: "+RCV=1,30,bad;payload,-60,4"},
		{At: 4 * time.Second, Line: "+RCV=1,5"},
		{At: 5 * time.Second, Line: "Hello there"},
		{Marker: true},
		{At: time.Second, Line: "+RCV=1,30,102;202;302;402,-40,9"},
	}

	s := summarizeCapture(records)

	if s.Segments != 2 {
		t.Fatalf("segments = %d want 2", s.Segments)
	}
	if s.Lines != 6 {
		t.Fatalf("lines = %d want 6", s.Lines)
	}
	if s.Notifications != 4 || s.Decoded != 3 || s.DecodeErrors != 1 {
		t.Fatalf("notification counts: %+v", s)
	}
	if s.Malformed != 1 || s.Passthrough != 1 {
		t.Fatalf("drop counts: %+v", s)
	}
	if s.MaxDuration != 5*time.Second {
		t.Fatalf("max duration = %s", s.MaxDuration)
	}
	if s.RSSIMin != -70 || s.RSSIMax != -40 {
		t.Fatalf("rssi range = %d..%d", s.RSSIMin, s.RSSIMax)
	}
}

func TestSummarizeCapture_Empty(t *testing.T) {
	s := summarizeCapture(nil)
	if s.Segments != 0 || s.Lines != 0 {
		t.Fatalf("summary of empty capture: %+v", s)
	}
}

func TestPrintLogSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	w, err := linelog.CreateWriter(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now()
	_ = w.WriteLine(now, "+RCV=1,30,100;200;300;400,-50,7")
	_ = w.WriteLine(now.Add(time.Second), "diag line")
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var out bytes.Buffer
	if err := printLogSummary(&out, path); err != nil {
		t.Fatalf("summary: %v", err)
	}
	got := out.String()

	for _, want := range []string{
		"segments: 1",
		"lines: 2",
		"notifications: 1",
		"decoded: 1",
		"passthrough: 1",
		"rssi_range: -50..-50 dBm",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestPrintLogSummary_MissingFile(t *testing.T) {
	if err := printLogSummary(&bytes.Buffer{}, filepath.Join(t.TempDir(), "absent.log")); err == nil {
		t.Fatalf("expected an error for a missing capture")
	}
}
