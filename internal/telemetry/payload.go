package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Payload wire format, ASCII, four fields, three separators:
//
//	<timestampMs>;<latE7>;<lonE7>;<altMm>
//
// Values are plain base-10 integers with an optional leading minus, no
// padding and no trailing separator.

const payloadSep = ";"

var (
	ErrPayloadTooLarge = errors.New("payload exceeds radio capacity")
	ErrFieldCount      = errors.New("payload must have exactly 4 fields")
)

// FieldError reports a payload field that failed strict integer parsing.
// A corrupt field is surfaced as an error, never substituted with zero:
// a zero here would read as a plausible coordinate downstream.
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("parse %s field %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// EncodePayload renders r in the wire format. Equal records always encode
// to the same string. The only failure mode is a rendering longer than
// MaxPayloadLen, which the integer widths cannot actually produce; the
// check guards the invariant rather than a live risk.
func EncodePayload(r Record) (string, error) {
	s := fmt.Sprintf("%d;%d;%d;%d", r.TimestampMs, r.LatE7, r.LonE7, r.AltMm)
	if len(s) > MaxPayloadLen {
		return "", fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(s), MaxPayloadLen)
	}
	return s, nil
}

// DecodePayload is the strict inverse of EncodePayload. The payload must
// contain exactly three separators, and every field must parse fully as an
// integer of its wire width. Shape violations return ErrFieldCount; a bad
// field returns a *FieldError naming it.
func DecodePayload(payload string) (Record, error) {
	if strings.Count(payload, payloadSep) != 3 {
		return Record{}, fmt.Errorf("%w: %q", ErrFieldCount, payload)
	}
	parts := strings.Split(payload, payloadSep)

	ts, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Record{}, &FieldError{Field: "timestamp", Value: parts[0], Err: err}
	}
	lat, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return Record{}, &FieldError{Field: "latitude", Value: parts[1], Err: err}
	}
	lon, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return Record{}, &FieldError{Field: "longitude", Value: parts[2], Err: err}
	}
	alt, err := strconv.ParseInt(parts[3], 10, 32)
	if err != nil {
		return Record{}, &FieldError{Field: "altitude", Value: parts[3], Err: err}
	}

	return Record{
		TimestampMs: uint32(ts),
		Fix: Fix{
			LatE7: int32(lat),
			LonE7: int32(lon),
			AltMm: int32(alt),
		},
	}, nil
}
