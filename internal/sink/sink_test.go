package sink

import (
	"bytes"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

var (
	testRec  = telemetry.Record{TimestampMs: 12345, Fix: telemetry.Fix{LatE7: 123456789, LonE7: 987654321, AltMm: 1000}}
	testLink = telemetry.Link{RSSI: -45, SNR: 10}
)

func TestCSV_RawRow(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf, false)
	if err := s.Write(testRec, testLink); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "12345,123456789,987654321,1000,-45,10\n" {
		t.Fatalf("row = %q", got)
	}
}

func TestCSV_IdenticalRowsForIdenticalInput(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf, false)
	if err := s.Write(testRec, testLink); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Write(testRec, testLink); err != nil {
		t.Fatalf("Write: %v", err)
	}
	rows := strings.SplitAfter(buf.String(), "\n")
	if rows[0] != rows[1] {
		t.Fatalf("rows differ: %q vs %q", rows[0], rows[1])
	}
}

func TestCSV_HumanMode(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf, true)
	if err := s.Write(testRec, testLink); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "lat=12.3456789") || !strings.Contains(got, "alt=1.000m") {
		t.Fatalf("human row = %q", got)
	}
}

func TestUDP_ForwardsDatagram(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer pc.Close()

	s, err := NewUDP(pc.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewUDP: %v", err)
	}
	defer s.Close()

	if err := s.Write(testRec, testLink); err != nil {
		t.Fatalf("Write: %v", err)
	}

	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if got := string(buf[:n]); got != "12345,123456789,987654321,1000,-45,10" {
		t.Fatalf("datagram = %q", got)
	}
}

type failingSink struct{ calls int }

func (f *failingSink) Write(telemetry.Record, telemetry.Link) error {
	f.calls++
	return errors.New("boom")
}
func (f *failingSink) Close() error { return errors.New("close boom") }

func TestMulti_ContinuesPastFailingSink(t *testing.T) {
	var buf bytes.Buffer
	bad := &failingSink{}
	m := NewMulti(bad, NewCSV(&buf, false))

	if err := m.Write(testRec, testLink); err != nil {
		t.Fatalf("Multi.Write must absorb sink errors, got %v", err)
	}
	if bad.calls != 1 {
		t.Fatalf("failing sink not attempted")
	}
	if buf.Len() == 0 {
		t.Fatalf("healthy sink starved by failing one")
	}
	if err := m.Close(); err == nil {
		t.Fatalf("Close should surface the first close error")
	}
}
