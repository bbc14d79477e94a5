package rylr

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Address:         1,
		Peer:            2,
		NetworkID:       18,
		BandHz:          915000000,
		SpreadingFactor: 9,
		Bandwidth:       7,
		CodingRate:      1,
		Preamble:        4,
		PowerDbm:        15,
		SettleDelay:     10 * time.Millisecond,
		ResponseTimeout: 250 * time.Millisecond,
	}
}

// newTestModem wires a Modem to an in-memory peer that answers every
// command line with the next queued response ("" means stay silent).
func newTestModem(t *testing.T, cfg Config, responses ...string) (*Modem, chan string, *time.Duration) {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	commands := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(server)
		i := 0
		for scanner.Scan() {
			commands <- strings.TrimRight(scanner.Text(), "\r")
			resp := "+OK"
			if i < len(responses) {
				resp = responses[i]
			}
			i++
			if resp != "" {
				_, _ = server.Write([]byte(resp + "\r\n"))
			}
		}
	}()

	m := New(client, cfg)
	var slept time.Duration
	m.sleep = func(d time.Duration) { slept += d }
	return m, commands, &slept
}

func TestTransmit_Envelope(t *testing.T) {
	m, commands, slept := newTestModem(t, testConfig(), "+OK")

	if err := m.Transmit("12345;123456789;987654321;1000"); err != nil {
		t.Fatalf("transmit: %v", err)
	}
	got := <-commands
	want := "AT+SEND=2,30,12345;123456789;987654321;1000"
	if got != want {
		t.Fatalf("wire command %q want %q", got, want)
	}
	if *slept != 10*time.Millisecond {
		t.Fatalf("settle delay not observed: slept %v", *slept)
	}
}

func TestTransmit_LengthComputedFromActualPayload(t *testing.T) {
	m, commands, _ := newTestModem(t, testConfig(), "+OK")

	payload := strings.Repeat("x", MaxPayloadLen)
	if err := m.Transmit(payload); err != nil {
		t.Fatalf("capacity-length transmit: %v", err)
	}
	got := <-commands
	if !strings.HasPrefix(got, "AT+SEND=2,240,") {
		t.Fatalf("wire command %q: length field not 240", got)
	}
}

func TestTransmit_RejectsOversizedAndUnsafePayloads(t *testing.T) {
	m, _, slept := newTestModem(t, testConfig())

	if err := m.Transmit(strings.Repeat("x", MaxPayloadLen+1)); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("oversized: got %v", err)
	}
	if err := m.Transmit("a\nb"); !errors.Is(err, ErrPayloadNotLineSafe) {
		t.Fatalf("embedded LF: got %v", err)
	}
	if *slept != 0 {
		t.Fatalf("rejected payloads must not reach the modem (slept %v)", *slept)
	}
}

func TestTransmit_CommandRejected(t *testing.T) {
	m, _, slept := newTestModem(t, testConfig(), "+ERR=4")

	err := m.Transmit("hello")
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("expected ErrCommandRejected, got %v", err)
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != 4 {
		t.Fatalf("expected code 4, got %v", err)
	}
	// Pacing applies to rejections too.
	if *slept != 10*time.Millisecond {
		t.Fatalf("settle delay skipped on rejection: slept %v", *slept)
	}
	if m.Snapshot().Rejected != 1 {
		t.Fatalf("rejected counter: %+v", m.Snapshot())
	}
}

func TestTransmit_ResponseTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.ResponseTimeout = 30 * time.Millisecond
	m, _, _ := newTestModem(t, cfg, "")

	err := m.Transmit("hello")
	if !errors.Is(err, ErrResponseTimeout) {
		t.Fatalf("expected ErrResponseTimeout, got %v", err)
	}
	if m.Snapshot().Timeouts != 1 {
		t.Fatalf("timeout counter: %+v", m.Snapshot())
	}
}

func TestConfigure_SequenceAndAbortOnFailure(t *testing.T) {
	m, commands, _ := newTestModem(t, testConfig(), "+OK", "+OK", "+ERR=1")

	err := m.Configure(context.Background())
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("expected ErrCommandRejected, got %v", err)
	}
	wantSent := []string{"AT", "AT+ADDRESS=1", "AT+NETWORKID=18"}
	for _, want := range wantSent {
		if got := <-commands; got != want {
			t.Fatalf("command %q want %q", got, want)
		}
	}
	select {
	case extra := <-commands:
		t.Fatalf("sequence continued past failure: %q", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConfigure_FullSequence(t *testing.T) {
	m, commands, _ := newTestModem(t, testConfig())

	if err := m.Configure(context.Background()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	want := []string{
		"AT",
		"AT+ADDRESS=1",
		"AT+NETWORKID=18",
		"AT+BAND=915000000",
		"AT+PARAMETER=9,7,1,4",
		"AT+CRFOP=15",
	}
	for _, w := range want {
		if got := <-commands; got != w {
			t.Fatalf("command %q want %q", got, w)
		}
	}
}

func TestPump_RoutesNotificationsAroundResponses(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	m := New(client, testConfig())
	m.sleep = func(time.Duration) {}

	go func() {
		scanner := bufio.NewScanner(server)
		scanner.Scan() // the AT+SEND
		// A notification lands before the command response does.
		_, _ = server.Write([]byte("+RCV=2,5,hello,-60,5\r\n+OK\r\n"))
	}()

	if err := m.Transmit("hi"); err != nil {
		t.Fatalf("transmit: %v", err)
	}
	select {
	case line := <-m.Lines():
		if line != "+RCV=2,5,hello,-60,5" {
			t.Fatalf("inbound line %q", line)
		}
	case <-time.After(time.Second):
		t.Fatalf("notification never delivered")
	}
}

func TestPump_ClosesLinesOnDisconnect(t *testing.T) {
	client, server := net.Pipe()
	m := New(client, testConfig())

	_, _ = server.Write([]byte("boot noise\r\n"))
	_ = server.Close()
	_ = client.Close()

	var got []string
	for line := range m.Lines() {
		got = append(got, line)
	}
	if len(got) != 1 || got[0] != "boot noise" {
		t.Fatalf("lines before close: %v", got)
	}
	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatalf("pump never stopped")
	}
}
