package gnss

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// u-blox DDC (I2C) stream registers: 0xFD/0xFE hold the available byte
// count big-endian, 0xFF is the data stream. 0xFF bytes read from the
// stream are idle filler, not data.
const (
	ddcRegAvail  = 0xFD
	ddcRegStream = 0xFF
	ddcIdleByte  = 0xFF

	ddcPollDelay = 100 * time.Millisecond
	ddcChunkMax  = 256
)

func (s *Service) startI2CLocked(ctx context.Context) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("gnss i2c host init: %w", err)
	}

	busName := strings.TrimSpace(s.cfg.I2CBus)
	if busName == "" {
		busName = "1"
	}
	addr := s.cfg.I2CAddr
	if addr == 0 {
		addr = 0x42
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		s.setError(fmt.Sprintf("gnss i2c open failed bus=%s: %v", busName, err))
		return fmt.Errorf("gnss i2c open bus %s: %w", busName, err)
	}
	s.closer = bus

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Printf("gnss enabled source=i2c bus=%s addr=0x%02x", busName, addr)
		r := &ddcReader{ctx: childCtx, dev: &i2c.Dev{Bus: bus, Addr: addr}}
		s.readSentences(childCtx, r)
	}()

	s.last.Store(Snapshot{Source: "i2c", Device: fmt.Sprintf("i2c-%s:0x%02x", busName, addr)})
	return nil
}

// ddcReader adapts the receiver's polled DDC stream to io.Reader so the
// same sentence loop serves serial and I2C hookups.
type ddcReader struct {
	ctx context.Context
	dev *i2c.Dev
}

func (r *ddcReader) Read(p []byte) (int, error) {
	for {
		if err := r.ctx.Err(); err != nil {
			return 0, err
		}

		var avail [2]byte
		if err := r.dev.Tx([]byte{ddcRegAvail}, avail[:]); err != nil {
			return 0, fmt.Errorf("ddc available: %w", err)
		}
		n := int(avail[0])<<8 | int(avail[1])
		if n == 0 {
			select {
			case <-r.ctx.Done():
				return 0, r.ctx.Err()
			case <-time.After(ddcPollDelay):
			}
			continue
		}

		if n > len(p) {
			n = len(p)
		}
		if n > ddcChunkMax {
			n = ddcChunkMax
		}
		buf := p[:n]
		if err := r.dev.Tx([]byte{ddcRegStream}, buf); err != nil {
			return 0, fmt.Errorf("ddc stream: %w", err)
		}

		// Compact out idle filler; a chunk can be filler end to end.
		out := 0
		for _, b := range buf {
			if b == ddcIdleByte {
				continue
			}
			p[out] = b
			out++
		}
		if out == 0 {
			continue
		}
		return out, nil
	}
}
