// Package rylr drives a REYAX RYLR896-class LoRa modem over its
// AT-command serial protocol: a synchronous command/response path for
// configuration and transmission, and an asynchronous notification
// stream for received frames.
package rylr

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPayloadTooLarge    = errors.New("payload exceeds radio capacity")
	ErrPayloadNotLineSafe = errors.New("payload contains CR or LF")
	ErrResponseTimeout    = errors.New("modem response timeout")
)

// CommandError is the modem's +ERR=<code> rejection of a command.
type CommandError struct {
	Command string
	Code    int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("modem rejected %s: +ERR=%d", e.Command, e.Code)
}

var ErrCommandRejected = errors.New("modem rejected command")

func (e *CommandError) Is(target error) bool { return target == ErrCommandRejected }

// MaxPayloadLen is the modem's per-transmission data capacity in bytes.
const MaxPayloadLen = 240

// Config holds the link parameters programmed into the modem at startup.
// All values are fixed at config time; nothing is renegotiated at runtime.
type Config struct {
	Address   uint16 // this node
	Peer      uint16 // AT+SEND destination
	NetworkID int
	BandHz    int

	// The AT+PARAMETER quadruple.
	SpreadingFactor int
	Bandwidth       int
	CodingRate      int
	Preamble        int

	PowerDbm int

	// SettleDelay is the pause after every command before the next one may
	// be issued. The modem's command parser needs it; it is pacing, not an
	// acknowledgement.
	SettleDelay     time.Duration
	ResponseTimeout time.Duration
}

// Modem owns one serial connection to the radio. A single reader goroutine
// pumps inbound lines: +OK/+ERR command responses are routed to whichever
// command is waiting, everything else (notably +RCV notifications and boot
// chatter) is delivered on Lines.
//
// Commands are serialized; there is never more than one in flight.
type Modem struct {
	cfg Config
	w   io.Writer

	cmdMu sync.Mutex // one command in flight
	resp  chan string
	lines chan string

	sleep func(time.Duration)

	done chan struct{}

	linesTotal   atomic.Uint64
	linesDropped atomic.Uint64
	transmits    atomic.Uint64
	rejected     atomic.Uint64
	timeouts     atomic.Uint64
}

// Snapshot is a point-in-time view of the modem counters for status output.
type Snapshot struct {
	LinesTotal   uint64 `json:"lines_total"`
	LinesDropped uint64 `json:"lines_dropped"`
	Transmits    uint64 `json:"transmits"`
	Rejected     uint64 `json:"rejected"`
	Timeouts     uint64 `json:"timeouts"`
}

func New(rw io.ReadWriter, cfg Config) *Modem {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 100 * time.Millisecond
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = 1 * time.Second
	}
	m := &Modem{
		cfg:   cfg,
		w:     rw,
		resp:  make(chan string, 1),
		lines: make(chan string, 256),
		sleep: time.Sleep,
		done:  make(chan struct{}),
	}
	go m.pump(rw)
	return m
}

// Lines delivers everything the modem says that is not a direct command
// response, one line at a time with CR/LF stripped. The channel closes when
// the underlying connection does.
func (m *Modem) Lines() <-chan string { return m.lines }

// Done closes when the reader goroutine has stopped (connection closed).
func (m *Modem) Done() <-chan struct{} { return m.done }

func (m *Modem) Snapshot() Snapshot {
	return Snapshot{
		LinesTotal:   m.linesTotal.Load(),
		LinesDropped: m.linesDropped.Load(),
		Transmits:    m.transmits.Load(),
		Rejected:     m.rejected.Load(),
		Timeouts:     m.timeouts.Load(),
	}
}

func (m *Modem) pump(r io.Reader) {
	defer close(m.done)
	defer close(m.lines)

	scanner := bufio.NewScanner(r)
	// One +RCV line is at most prefix + header + 240 payload bytes; allow
	// generous headroom for noise.
	scanner.Buffer(make([]byte, 0, 512), 4096)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		m.linesTotal.Add(1)

		if line == "+OK" || strings.HasPrefix(line, "+ERR=") {
			// Hand to the waiting command if there is one; a response with
			// no waiter (e.g. after a timeout already fired) is dropped.
			select {
			case m.resp <- line:
			default:
			}
			continue
		}

		select {
		case m.lines <- line:
		default:
			// Consumer is behind; the transport would be dropping bytes in
			// this situation anyway. Count it so status shows the loss.
			m.linesDropped.Add(1)
		}
	}
}

// Transmit sends one payload to the configured peer:
//
//	AT+SEND=<peer>,<len>,<payload>\r\n
//
// The length field is computed from the actual payload bytes. +OK means the
// modem accepted the frame for transmission; nothing on this link ever
// confirms delivery. The settle delay is observed before returning, on
// rejection as well as success, so back-to-back calls cannot outrun the
// command parser.
func (m *Modem) Transmit(payload string) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(payload), MaxPayloadLen)
	}
	if strings.ContainsAny(payload, "\r\n") {
		return ErrPayloadNotLineSafe
	}
	m.transmits.Add(1)
	cmd := fmt.Sprintf("AT+SEND=%d,%d,%s", m.cfg.Peer, len(payload), payload)
	return m.command(cmd)
}

// Configure programs the link parameters into the modem, one command at a
// time, aborting on the first failure. Issued once at startup on both ends.
func (m *Modem) Configure(ctx context.Context) error {
	cmds := []string{
		"AT",
		fmt.Sprintf("AT+ADDRESS=%d", m.cfg.Address),
		fmt.Sprintf("AT+NETWORKID=%d", m.cfg.NetworkID),
		fmt.Sprintf("AT+BAND=%d", m.cfg.BandHz),
		fmt.Sprintf("AT+PARAMETER=%d,%d,%d,%d",
			m.cfg.SpreadingFactor, m.cfg.Bandwidth, m.cfg.CodingRate, m.cfg.Preamble),
		fmt.Sprintf("AT+CRFOP=%d", m.cfg.PowerDbm),
	}
	for _, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.command(cmd); err != nil {
			return fmt.Errorf("configure %s: %w", cmd, err)
		}
	}
	return nil
}

func (m *Modem) command(cmd string) error {
	m.cmdMu.Lock()
	defer m.cmdMu.Unlock()

	// A stale response from a previously timed-out command must not be
	// mistaken for this one's.
	select {
	case <-m.resp:
	default:
	}

	if _, err := io.WriteString(m.w, cmd+"\r\n"); err != nil {
		return fmt.Errorf("write %s: %w", cmd, err)
	}

	var err error
	select {
	case line := <-m.resp:
		if line != "+OK" {
			var code int
			if _, scanErr := fmt.Sscanf(line, "+ERR=%d", &code); scanErr != nil {
				code = -1
			}
			m.rejected.Add(1)
			err = &CommandError{Command: cmd, Code: code}
		}
	case <-time.After(m.cfg.ResponseTimeout):
		m.timeouts.Add(1)
		err = fmt.Errorf("%w: %s", ErrResponseTimeout, cmd)
	case <-m.done:
		return fmt.Errorf("modem connection closed during %s", cmd)
	}

	m.sleep(m.cfg.SettleDelay)
	return err
}
