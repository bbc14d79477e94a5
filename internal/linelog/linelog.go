// Package linelog captures the station's raw inbound lines to a file and
// plays captures back with their original timing.
//
// Log format, line-oriented text:
//
//   - Blank lines and lines starting with '#' are ignored.
//   - "START,<unix_ms>" opens a capture segment and resets the time origin,
//     so several runs can share one file.
//   - Data lines are: <t_ns>,<line text>
//     where t_ns is nanoseconds since the segment START. The line text is
//     everything after the first comma; modem lines themselves contain
//     commas, so only the first comma delimits.
package linelog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

type Record struct {
	At   time.Duration
	Line string
	// Marker is true for a START record; Line is empty then.
	Marker bool
}

type Reader struct {
	r io.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

func (rr *Reader) ReadAll() ([]Record, error) {
	s := bufio.NewScanner(rr.r)
	s.Buffer(make([]byte, 0, 4096), 64*1024)

	recs := make([]Record, 0, 1024)
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "START" || strings.HasPrefix(line, "START,") {
			recs = append(recs, Record{Marker: true})
			continue
		}

		comma := strings.IndexByte(line, ',')
		if comma < 0 {
			return nil, fmt.Errorf("invalid capture line (missing comma): %q", line)
		}
		tsStr := line[:comma]
		text := line[comma+1:]

		tsNs, err := strconv.ParseInt(tsStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid capture timestamp %q: %w", tsStr, err)
		}
		if tsNs < 0 {
			return nil, fmt.Errorf("invalid capture timestamp (negative): %d", tsNs)
		}

		recs = append(recs, Record{At: time.Duration(tsNs), Line: text})
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Writer appends capture records through a buffer; the station flushes it
// on an interval so a crash costs seconds of capture, not the buffer.
// Safe for a flusher goroutine running next to the write path.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	start  time.Time
	closed bool
}

// CreateWriter opens (or creates) path for appending and starts a new
// capture segment stamped with wall time.
func CreateWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(f, 64*1024)
	now := time.Now()
	if _, err := fmt.Fprintf(bw, "START,%d\n", now.UnixMilli()); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, w: bw, start: now}, nil
}

// WriteLine records one inbound line. CR/LF are stripped so the file stays
// one record per line regardless of what the transport delivered.
func (ww *Writer) WriteLine(now time.Time, line string) error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return errors.New("capture writer is closed")
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil
	}

	d := now.Sub(ww.start)
	if d < 0 {
		d = 0
	}
	_, err := fmt.Fprintf(ww.w, "%d,%s\n", d.Nanoseconds(), line)
	return err
}

func (ww *Writer) Flush() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	return ww.w.Flush()
}

func (ww *Writer) Close() error {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	if ww.closed {
		return nil
	}
	ww.closed = true
	if err := ww.w.Flush(); err != nil {
		_ = ww.f.Close()
		return err
	}
	return ww.f.Close()
}

type Sleeper interface {
	Sleep(d time.Duration)
}

type realSleeper struct{}

func (realSleeper) Sleep(d time.Duration) { time.Sleep(d) }

// Play delivers captured lines to cb with their recorded relative timing.
// START markers reset the origin. speedMultiplier 1.0 is real time, 2.0
// halves the waits. A nil sleeper sleeps for real; tests inject one so
// replays run instantly.
func Play(records []Record, speedMultiplier float64, loop bool, sleeper Sleeper, cb func(line string) error) error {
	if speedMultiplier <= 0 {
		return fmt.Errorf("speedMultiplier must be > 0")
	}
	if sleeper == nil {
		sleeper = realSleeper{}
	}
	if cb == nil {
		return errors.New("callback is nil")
	}
	if len(records) == 0 {
		return errors.New("no records")
	}

	for {
		var lastAt time.Duration
		var haveLast bool
		delivered := 0

		for _, r := range records {
			if r.Marker {
				lastAt = 0
				haveLast = false
				continue
			}

			if haveLast {
				wait := r.At - lastAt
				if wait < 0 {
					wait = 0
				}
				wait = time.Duration(float64(wait) / speedMultiplier)
				if wait > 0 {
					sleeper.Sleep(wait)
				}
			}

			if err := cb(r.Line); err != nil {
				return err
			}
			delivered++

			lastAt = r.At
			haveLast = true
		}

		// A marker-only capture delivers nothing; looping over it would
		// spin without ever sleeping or hitting the callback.
		if delivered == 0 {
			return errors.New("no records")
		}
		if !loop {
			return nil
		}
	}
}
