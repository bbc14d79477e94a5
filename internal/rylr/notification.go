package rylr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

const notificationPrefix = "+RCV="

var ErrMalformedNotification = errors.New("malformed receive notification")

// Notification is one inbound +RCV report:
//
//	+RCV=<addr>,<len>,<payload>,<rssi>,<snr>
//
// Length is the sender-announced payload size. It is carried for status
// reporting but never checked against the actual payload: the payload's
// own framing is authoritative.
type Notification struct {
	Addr    uint16
	Length  int
	Payload string
	Link    telemetry.Link
	Raw     string
}

// ParseNotification extracts a Notification from one modem line. Lines
// without the +RCV= prefix are not notifications and return ok=false with
// no error; the caller passes them through as diagnostics.
//
// Field boundaries are positional: address and announced length end at the
// first two commas from the left, RSSI and SNR start at the last two
// commas from the right, and the payload is everything in between. A
// payload containing commas therefore survives intact. Anything with
// fewer than four commas after the prefix cannot carry all five fields
// and is malformed.
func ParseNotification(line string) (Notification, bool, error) {
	s := strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(s, notificationPrefix) {
		return Notification{}, false, nil
	}
	body := s[len(notificationPrefix):]

	c1 := strings.Index(body, ",")
	if c1 < 0 {
		return Notification{}, true, fmt.Errorf("%w: %q", ErrMalformedNotification, s)
	}
	c2 := strings.Index(body[c1+1:], ",")
	if c2 < 0 {
		return Notification{}, true, fmt.Errorf("%w: %q", ErrMalformedNotification, s)
	}
	c2 += c1 + 1
	c4 := strings.LastIndex(body, ",")
	c3 := strings.LastIndex(body[:c4], ",")
	// With fewer than four commas the positional anchors collide.
	if c3 <= c2 {
		return Notification{}, true, fmt.Errorf("%w: %q", ErrMalformedNotification, s)
	}

	addr, err := strconv.ParseUint(body[:c1], 10, 16)
	if err != nil {
		return Notification{}, true, fmt.Errorf("%w: bad address %q", ErrMalformedNotification, body[:c1])
	}
	length, err := strconv.ParseUint(body[c1+1:c2], 10, 31)
	if err != nil {
		return Notification{}, true, fmt.Errorf("%w: bad length %q", ErrMalformedNotification, body[c1+1:c2])
	}
	rssi, err := strconv.ParseInt(body[c3+1:c4], 10, 16)
	if err != nil {
		return Notification{}, true, fmt.Errorf("%w: bad rssi %q", ErrMalformedNotification, body[c3+1:c4])
	}
	snr, err := strconv.ParseInt(body[c4+1:], 10, 16)
	if err != nil {
		return Notification{}, true, fmt.Errorf("%w: bad snr %q", ErrMalformedNotification, body[c4+1:])
	}

	return Notification{
		Addr:    uint16(addr),
		Length:  int(length),
		Payload: body[c2+1 : c3],
		Link:    telemetry.Link{RSSI: int16(rssi), SNR: int16(snr)},
		Raw:     s,
	}, true, nil
}
