package sink

import (
	"fmt"
	"io"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

// CSV writes one row per record to w, newline-terminated. With Human set
// it writes the display rendering instead; that mode is for eyes on a
// terminal, anything downstream should consume the raw form.
type CSV struct {
	w     io.Writer
	human bool
}

func NewCSV(w io.Writer, human bool) *CSV {
	return &CSV{w: w, human: human}
}

func (c *CSV) Write(rec telemetry.Record, link telemetry.Link) error {
	line := telemetry.FormatCSV(rec, link)
	if c.human {
		line = telemetry.FormatHuman(rec, link)
	}
	if _, err := fmt.Fprintln(c.w, line); err != nil {
		return fmt.Errorf("csv sink: %w", err)
	}
	return nil
}

func (c *CSV) Close() error { return nil }
