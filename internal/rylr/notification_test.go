package rylr

import (
	"errors"
	"testing"
)

func TestParseNotification_WireForm(t *testing.T) {
	n, ok, err := ParseNotification("+RCV=0,25,12345;123456789;987654321;1000,-45,10")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !ok {
		t.Fatalf("expected a notification")
	}
	if n.Addr != 0 {
		t.Fatalf("addr=%d want 0", n.Addr)
	}
	if n.Length != 25 {
		t.Fatalf("length=%d want 25", n.Length)
	}
	if n.Payload != "12345;123456789;987654321;1000" {
		t.Fatalf("payload=%q", n.Payload)
	}
	if n.Link.RSSI != -45 || n.Link.SNR != 10 {
		t.Fatalf("link=%+v want rssi=-45 snr=10", n.Link)
	}
}

func TestParseNotification_NonNotificationPassesThrough(t *testing.T) {
	for _, line := range []string{
		"Hello there",
		"+READY",
		"+OK",
		"",
		"RCV=1,2,ab,-3,4",
	} {
		_, ok, err := ParseNotification(line)
		if ok {
			t.Fatalf("line %q: treated as notification", line)
		}
		if err != nil {
			t.Fatalf("line %q: unexpected err: %v", line, err)
		}
	}
}

func TestParseNotification_PayloadWithCommasSurvives(t *testing.T) {
	n, ok, err := ParseNotification("+RCV=7,9,a,b,c,-80,-2")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !ok {
		t.Fatalf("expected a notification")
	}
	if n.Payload != "a,b,c" {
		t.Fatalf("payload=%q want %q", n.Payload, "a,b,c")
	}
	if n.Link.RSSI != -80 || n.Link.SNR != -2 {
		t.Fatalf("link=%+v", n.Link)
	}
}

func TestParseNotification_TooFewCommasIsMalformed(t *testing.T) {
	for _, line := range []string{
		"+RCV=",
		"+RCV=1",
		"+RCV=1,2",
		"+RCV=1,2,payload",
		"+RCV=1,2,payload,-45",
	} {
		_, ok, err := ParseNotification(line)
		if !ok {
			t.Fatalf("line %q: prefix should mark it as a notification attempt", line)
		}
		if !errors.Is(err, ErrMalformedNotification) {
			t.Fatalf("line %q: expected ErrMalformedNotification, got %v", line, err)
		}
	}
}

func TestParseNotification_BadHeaderOrMetricsIsMalformed(t *testing.T) {
	for _, line := range []string{
		"+RCV=x,25,payload,-45,10",
		"+RCV=1,abc,payload,-45,10",
		"+RCV=1,25,payload,notanum,10",
		"+RCV=1,25,payload,-45,snr",
		"+RCV=70000,25,payload,-45,10",
	} {
		_, _, err := ParseNotification(line)
		if !errors.Is(err, ErrMalformedNotification) {
			t.Fatalf("line %q: expected ErrMalformedNotification, got %v", line, err)
		}
	}
}

func TestParseNotification_AnnouncedLengthNotEnforced(t *testing.T) {
	// The announced length disagrees with the actual payload; the payload
	// wins and the notification is still accepted.
	n, ok, err := ParseNotification("+RCV=0,3,longer-than-three,-45,10")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if n.Length != 3 {
		t.Fatalf("length=%d want 3 (recorded as announced)", n.Length)
	}
	if n.Payload != "longer-than-three" {
		t.Fatalf("payload=%q", n.Payload)
	}
}

func TestParseNotification_StripsLineEndings(t *testing.T) {
	n, ok, err := ParseNotification("+RCV=2,4,abcd,-100,1\r\n")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if n.Payload != "abcd" {
		t.Fatalf("payload=%q", n.Payload)
	}
}
