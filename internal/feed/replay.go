package feed

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/linelog"
)

type ReplayConfig struct {
	Path  string
	Speed float64
	Loop  bool

	// Sleeper overrides the pacing clock; tests inject one so replays
	// run instantly.
	Sleeper linelog.Sleeper
}

// Replay plays a linelog capture through the handler with its recorded
// timing. Done closes when the capture is exhausted (never, when looping).
type Replay struct {
	cfg  ReplayConfig
	recs []linelog.Record

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewReplay(cfg ReplayConfig) (*Replay, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("replay feed path is required")
	}
	if cfg.Speed == 0 {
		cfg.Speed = 1
	}
	if cfg.Speed < 0 {
		return nil, fmt.Errorf("replay feed speed must be > 0")
	}

	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", cfg.Path, err)
	}
	defer f.Close()

	recs, err := linelog.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", cfg.Path, err)
	}
	lines := 0
	for _, rec := range recs {
		if !rec.Marker {
			lines++
		}
	}
	// Segment markers alone carry nothing to play back; a capture from a
	// station that never received a line is empty for our purposes.
	if lines == 0 {
		return nil, fmt.Errorf("capture %s is empty", cfg.Path)
	}

	return &Replay{cfg: cfg, recs: recs, done: make(chan struct{})}, nil
}

func (r *Replay) Start(ctx context.Context, h Handler) error {
	if r == nil {
		return fmt.Errorf("replay feed is nil")
	}
	if h == nil {
		return fmt.Errorf("replay feed handler is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return fmt.Errorf("replay feed already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go func() {
		defer close(r.done)
		sleeper := r.cfg.Sleeper
		if sleeper == nil {
			sleeper = ctxSleeper{ctx: runCtx}
		}
		err := linelog.Play(r.recs, r.cfg.Speed, r.cfg.Loop, sleeper, func(line string) error {
			if err := runCtx.Err(); err != nil {
				return err
			}
			h(line)
			return nil
		})
		if err != nil && runCtx.Err() == nil {
			log.Printf("replay feed stopped: %v", err)
		}
	}()
	return nil
}

// Done closes when playback finishes or is cancelled.
func (r *Replay) Done() <-chan struct{} { return r.done }

func (r *Replay) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-r.done
}

// ctxSleeper sleeps but wakes early on cancellation so a long replay gap
// cannot stall shutdown.
type ctxSleeper struct {
	ctx context.Context
}

func (s ctxSleeper) Sleep(d time.Duration) {
	select {
	case <-s.ctx.Done():
	case <-time.After(d):
	}
}
