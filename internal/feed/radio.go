package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/rylr"
)

// Radio drains a modem's unsolicited line stream into the handler. The
// production path: the station owns the serial port through the modem, and
// command responses during Configure never reach the handler because the
// modem routes them separately.
type Radio struct {
	modem *rylr.Modem

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRadio(m *rylr.Modem) (*Radio, error) {
	if m == nil {
		return nil, fmt.Errorf("radio feed modem is nil")
	}
	return &Radio{modem: m, done: make(chan struct{})}, nil
}

func (r *Radio) Start(ctx context.Context, h Handler) error {
	if r == nil {
		return fmt.Errorf("radio feed is nil")
	}
	if h == nil {
		return fmt.Errorf("radio feed handler is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return fmt.Errorf("radio feed already started")
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	go func() {
		defer close(r.done)
		for {
			select {
			case <-runCtx.Done():
				return
			case line, ok := <-r.modem.Lines():
				if !ok {
					// Serial port died; nothing to reconnect to here.
					return
				}
				h(line)
			}
		}
	}()
	return nil
}

func (r *Radio) Close() {
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
