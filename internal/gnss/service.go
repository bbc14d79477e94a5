// Package gnss runs the position sampler: a background reader for one GNSS
// receiver that keeps the most recent fix available for the tracker loop.
//
// The sampler holds the last good fix across dropouts. A poll during a
// dropout returns the previous fix unchanged rather than failing; callers
// therefore see a staleness window, not an error, and can judge it from the
// fix age in the snapshot. Only before the very first fix does Sample
// report no data.
package gnss

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/serialport"
	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

type Config struct {
	// Source selects the receiver hookup: "serial" (NMEA over a tty),
	// "i2c" (u-blox DDC stream), or "sim" (deterministic track).
	// Empty defaults to "serial".
	Source string

	Device string
	Baud   int

	// I2C settings for Source=="i2c". Bus is a periph bus name ("1" or
	// "/dev/i2c-1"); Addr is the receiver's DDC address.
	I2CBus  string
	I2CAddr uint16

	Sim SimConfig
}

type Snapshot struct {
	Valid  bool   `json:"valid"`
	Source string `json:"source"`
	Device string `json:"device,omitempty"`
	Baud   int    `json:"baud,omitempty"`

	LatE7 int32 `json:"lat_e7"`
	LonE7 int32 `json:"lon_e7"`
	AltMm int32 `json:"alt_mm"`

	FixQuality   string  `json:"fix_quality,omitempty"`
	Satellites   int     `json:"satellites,omitempty"`
	Sentences    uint64  `json:"sentences"`
	BadSentences uint64  `json:"bad_sentences"`
	FixAgeSec    float64 `json:"fix_age_sec,omitempty"`
	LastFixUTC   string  `json:"last_fix_utc,omitempty"`
	LastError    string  `json:"last_error,omitempty"`
}

type Service struct {
	cfg Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	last atomic.Value // Snapshot

	mu        sync.Mutex
	closer    io.Closer
	haveFix   bool
	fix       telemetry.Fix
	lastFixAt time.Time
}

func New(cfg Config) *Service {
	s := &Service{cfg: cfg}
	s.last.Store(Snapshot{Source: sourceName(cfg.Source), Device: cfg.Device, Baud: cfg.Baud})
	return s
}

func sourceName(src string) string {
	src = strings.ToLower(strings.TrimSpace(src))
	if src == "" {
		src = "serial"
	}
	return src
}

func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("gnss service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	switch sourceName(s.cfg.Source) {
	case "serial":
		return s.startSerialLocked(ctx)
	case "i2c":
		return s.startI2CLocked(ctx)
	case "sim":
		return s.startSimLocked(ctx)
	default:
		return fmt.Errorf("gnss source %q is not one of serial, i2c, sim", s.cfg.Source)
	}
}

func (s *Service) startSerialLocked(ctx context.Context) error {
	device := strings.TrimSpace(s.cfg.Device)
	if device == "" {
		return fmt.Errorf("gnss device is required for source=serial")
	}
	baud := s.cfg.Baud
	if baud == 0 {
		baud = 9600
	}

	f, err := serialport.Open(device, baud)
	if err != nil {
		s.setError(fmt.Sprintf("gnss open failed device=%s baud=%d: %v", device, baud, err))
		return err
	}
	s.closer = f

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() { _ = f.Close() }()

		log.Printf("gnss enabled source=serial device=%s baud=%d", device, baud)
		s.readSentences(childCtx, f)
	}()

	s.last.Store(Snapshot{Source: "serial", Device: device, Baud: baud})
	return nil
}

// readSentences consumes newline-delimited NMEA from r until the context
// ends or the stream dies. Shared by the serial and I2C sources.
func (s *Service) readSentences(ctx context.Context, r io.Reader) {
	reader := bufio.NewScanner(r)
	// NMEA sentences are < 82 chars; allow headroom for receiver chatter.
	reader.Buffer(make([]byte, 0, 256), 4096)

	var st nmeaState
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if !reader.Scan() {
			err := reader.Err()
			if err == nil {
				err = io.EOF
			}
			s.setError(fmt.Sprintf("gnss read stopped: %v", err))
			return
		}

		s.handleSentence(time.Now().UTC(), reader.Text(), &st)
	}
}

func (s *Service) handleSentence(now time.Time, line string, st *nmeaState) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "$") {
		return
	}
	updated, err := st.apply(line)
	if err != nil {
		// Noise on the wire is routine; keep the last error, don't spam.
		s.setError(err.Error())
		return
	}
	if updated {
		s.storeFix(now, st)
	}
	s.last.Store(s.snapshotFrom(now, st))
}

func (s *Service) storeFix(now time.Time, st *nmeaState) {
	s.mu.Lock()
	s.haveFix = true
	s.fix = st.fix
	s.lastFixAt = now
	s.mu.Unlock()
}

func (s *Service) snapshotFrom(now time.Time, st *nmeaState) Snapshot {
	s.mu.Lock()
	haveFix := s.haveFix
	fix := s.fix
	lastFixAt := s.lastFixAt
	s.mu.Unlock()

	prev := s.Snapshot()
	snap := Snapshot{
		Valid:        haveFix,
		Source:       prev.Source,
		Device:       prev.Device,
		Baud:         prev.Baud,
		LatE7:        fix.LatE7,
		LonE7:        fix.LonE7,
		AltMm:        fix.AltMm,
		FixQuality:   st.quality,
		Satellites:   st.satellites,
		Sentences:    st.sentences,
		BadSentences: st.bad,
		LastError:    prev.LastError,
	}
	if !lastFixAt.IsZero() {
		snap.FixAgeSec = now.Sub(lastFixAt).Seconds()
		snap.LastFixUTC = lastFixAt.Format(time.RFC3339Nano)
	}
	return snap
}

// Sample returns the held fix. ok is false only before the first fix has
// ever been seen; after that the most recent fix is returned even when the
// receiver has since gone quiet.
func (s *Service) Sample() (telemetry.Fix, bool) {
	if s == nil {
		return telemetry.Fix{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fix, s.haveFix
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	v := s.last.Load()
	if v == nil {
		return Snapshot{}
	}
	return v.(Snapshot)
}

func (s *Service) setError(msg string) {
	cur := s.Snapshot()
	cur.LastError = msg
	// Transient trouble does not flip validity; the held fix stands.
	s.last.Store(cur)
}
