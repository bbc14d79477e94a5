// Package store keeps the station's decoded telemetry history in SQLite so
// the web API and offline analysis can query past records.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS telemetry (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    received_utc TEXT    NOT NULL,
    timestamp_ms INTEGER NOT NULL,
    lat_e7       INTEGER NOT NULL,
    lon_e7       INTEGER NOT NULL,
    alt_mm       INTEGER NOT NULL,
    rssi_dbm     INTEGER NOT NULL,
    snr_db       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_telemetry_received ON telemetry(received_utc);
`

const insertSQL = `
INSERT INTO telemetry (received_utc, timestamp_ms, lat_e7, lon_e7, alt_mm, rssi_dbm, snr_db)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Entry is one stored record with its receive wall time.
type Entry struct {
	ReceivedUTC string           `json:"received_utc"`
	Record      telemetry.Record `json:"record"`
	Link        telemetry.Link   `json:"link"`
}

type Store struct {
	db     *sql.DB
	insert *sql.Stmt
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One writer; SQLite serializes anyway and this avoids lock churn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	insert, err := db.Prepare(insertSQL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}

	return &Store{db: db, insert: insert}, nil
}

func (s *Store) Append(receivedAt time.Time, rec telemetry.Record, link telemetry.Link) error {
	_, err := s.insert.Exec(
		receivedAt.UTC().Format(time.RFC3339Nano),
		int64(rec.TimestampMs),
		int64(rec.LatE7),
		int64(rec.LonE7),
		int64(rec.AltMm),
		int64(link.RSSI),
		int64(link.SNR),
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(n int) ([]Entry, error) {
	if n <= 0 {
		n = 100
	}
	rows, err := s.db.Query(`
SELECT received_utc, timestamp_ms, lat_e7, lon_e7, alt_mm, rssi_dbm, snr_db
FROM telemetry ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		var ts, lat, lon, alt, rssi, snr int64
		if err := rows.Scan(&e.ReceivedUTC, &ts, &lat, &lon, &alt, &rssi, &snr); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Record = telemetry.Record{
			TimestampMs: uint32(ts),
			Fix:         telemetry.Fix{LatE7: int32(lat), LonE7: int32(lon), AltMm: int32(alt)},
		}
		e.Link = telemetry.Link{RSSI: int16(rssi), SNR: int16(snr)}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM telemetry`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	_ = s.insert.Close()
	return s.db.Close()
}
