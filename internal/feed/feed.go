// Package feed supplies the station with its stream of raw modem lines.
// Three interchangeable sources exist: the radio's own serial port, a TCP
// bridge carrying the same stream, and a linelog capture replayed with its
// recorded timing.
//
// All sources deliver lines in arrival order, one at a time: the handler
// runs to completion before the next line is delivered, so the handler
// owns all downstream state without locking.
package feed

import (
	"context"
	"time"
)

// Handler consumes one inbound line, CR/LF already stripped.
type Handler func(line string)

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
