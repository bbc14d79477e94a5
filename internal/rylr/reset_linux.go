//go:build linux

package rylr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// Reset pulses the named GPIO line low to hard-reset a modem whose NRST pin
// is wired to a host GPIO, then waits out the boot banner. Line names are
// the kernel's ("GPIO17" on a Pi header). Safe to skip entirely: boards
// without the strap leave the line name empty in config and never call this.
func Reset(lineName string) error {
	lineName = strings.TrimSpace(lineName)
	if lineName == "" {
		return fmt.Errorf("rylr: reset line name is empty")
	}

	entries, err := os.ReadDir("/dev")
	if err != nil {
		return fmt.Errorf("rylr: scan /dev: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "gpiochip") {
			continue
		}
		chip, err := gpiocdev.NewChip(filepath.Join("/dev", e.Name()))
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(1), gpiocdev.WithConsumer("rylr-reset"))
		if err != nil {
			_ = chip.Close()
			continue
		}

		err = pulse(line)
		_ = line.Close()
		_ = chip.Close()
		return err
	}

	return fmt.Errorf("rylr: gpio line %q not found (or busy)", lineName)
}

func pulse(line *gpiocdev.Line) error {
	if err := line.SetValue(0); err != nil {
		return fmt.Errorf("rylr: drive reset low: %w", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := line.SetValue(1); err != nil {
		return fmt.Errorf("rylr: release reset: %w", err)
	}
	// The modem prints +READY and ignores commands while booting.
	time.Sleep(500 * time.Millisecond)
	return nil
}
