package sink

import (
	"fmt"
	"net"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

// UDP forwards each record as one CSV datagram. Fire-and-forget, like the
// radio link it mirrors: nobody listening just means dropped datagrams.
type UDP struct {
	dest string
	conn *net.UDPConn
}

func NewUDP(dest string) (*UDP, error) {
	addr, err := net.ResolveUDPAddr("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &UDP{dest: dest, conn: conn}, nil
}

func (u *UDP) Write(rec telemetry.Record, link telemetry.Link) error {
	if _, err := u.conn.Write([]byte(telemetry.FormatCSV(rec, link))); err != nil {
		return fmt.Errorf("udp sink %s: %w", u.dest, err)
	}
	return nil
}

func (u *UDP) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
