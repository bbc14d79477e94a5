package web

import (
	"sync/atomic"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

// Status aggregates the counters both binaries expose on /api/status. All
// update paths are atomic; the owning loop increments, the HTTP handler
// snapshots.
type Status struct {
	startUnixNano int64
	role          atomic.Value // string

	// Station-side pipeline counters.
	linesSeen     atomic.Uint64
	notifications atomic.Uint64
	malformed     atomic.Uint64
	decodeErrors  atomic.Uint64
	decoded       atomic.Uint64
	passthrough   atomic.Uint64

	// Tracker-side cycle counters.
	cyclesNoFix    atomic.Uint64
	encodeErrors   atomic.Uint64
	transmitsOK    atomic.Uint64
	transmitErrors atomic.Uint64

	last       atomic.Value // LastRecord
	components atomic.Value // map[string]any
}

// LastRecord is the most recently decoded record with its link quality,
// kept only for display.
type LastRecord struct {
	ReceivedUTC string           `json:"received_utc"`
	Record      telemetry.Record `json:"record"`
	Link        telemetry.Link   `json:"link"`
	CSV         string           `json:"csv"`
}

func NewStatus(role string) *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.role.Store(role)
	s.last.Store(LastRecord{})
	s.components.Store(map[string]any{})
	return s
}

func (s *Status) MarkLine()          { s.linesSeen.Add(1) }
func (s *Status) MarkNotification()  { s.notifications.Add(1) }
func (s *Status) MarkMalformed()     { s.malformed.Add(1) }
func (s *Status) MarkDecodeError()   { s.decodeErrors.Add(1) }
func (s *Status) MarkPassthrough()   { s.passthrough.Add(1) }
func (s *Status) MarkCycleNoFix()    { s.cyclesNoFix.Add(1) }
func (s *Status) MarkEncodeError()   { s.encodeErrors.Add(1) }
func (s *Status) MarkTransmitOK()    { s.transmitsOK.Add(1) }
func (s *Status) MarkTransmitError() { s.transmitErrors.Add(1) }

func (s *Status) MarkDecoded(nowUTC time.Time, rec telemetry.Record, link telemetry.Link) {
	s.decoded.Add(1)
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	s.last.Store(LastRecord{
		ReceivedUTC: nowUTC.UTC().Format(time.RFC3339Nano),
		Record:      rec,
		Link:        link,
		CSV:         telemetry.FormatCSV(rec, link),
	})
}

// SetComponents replaces the per-component snapshot block (gnss, modem,
// feed, store) shown under "components" in the status JSON.
func (s *Status) SetComponents(m map[string]any) {
	if m == nil {
		m = map[string]any{}
	}
	s.components.Store(m)
}

type StatusSnapshot struct {
	Service   string `json:"service"`
	Role      string `json:"role"`
	NowUTC    string `json:"now_utc"`
	UptimeSec int64  `json:"uptime_sec"`

	LinesSeen     uint64 `json:"lines_seen"`
	Notifications uint64 `json:"notifications"`
	Malformed     uint64 `json:"malformed"`
	DecodeErrors  uint64 `json:"decode_errors"`
	Decoded       uint64 `json:"decoded"`
	Passthrough   uint64 `json:"passthrough"`

	CyclesNoFix    uint64 `json:"cycles_no_fix"`
	EncodeErrors   uint64 `json:"encode_errors"`
	TransmitsOK    uint64 `json:"transmits_ok"`
	TransmitErrors uint64 `json:"transmit_errors"`

	Last       LastRecord     `json:"last,omitempty"`
	Components map[string]any `json:"components"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	return StatusSnapshot{
		Service:   "lora-telemetry",
		Role:      s.role.Load().(string),
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),

		LinesSeen:     s.linesSeen.Load(),
		Notifications: s.notifications.Load(),
		Malformed:     s.malformed.Load(),
		DecodeErrors:  s.decodeErrors.Load(),
		Decoded:       s.decoded.Load(),
		Passthrough:   s.passthrough.Load(),

		CyclesNoFix:    s.cyclesNoFix.Load(),
		EncodeErrors:   s.encodeErrors.Load(),
		TransmitsOK:    s.transmitsOK.Load(),
		TransmitErrors: s.transmitErrors.Load(),

		Last:       s.last.Load().(LastRecord),
		Components: s.components.Load().(map[string]any),
	}
}
