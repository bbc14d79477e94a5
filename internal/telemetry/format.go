package telemetry

import "fmt"

// FormatCSV renders the downstream row format:
//
//	ts,lat,lon,alt,rssi,snr
//
// Raw integer values exactly as carried on the link, no spaces, no
// padding. The same record and link always produce a byte-identical row.
func FormatCSV(r Record, l Link) string {
	return fmt.Sprintf("%d,%d,%d,%d,%d,%d", r.TimestampMs, r.LatE7, r.LonE7, r.AltMm, l.RSSI, l.SNR)
}

// FormatHuman renders a record for eyes rather than parsers: coordinates
// in degrees, altitude in metres, units spelled out. Display only; sinks
// and storage always take the raw CSV form.
func FormatHuman(r Record, l Link) string {
	return fmt.Sprintf("t=%dms lat=%.7f lon=%.7f alt=%.3fm rssi=%ddBm snr=%ddB",
		r.TimestampMs,
		float64(r.LatE7)/LatLonScale,
		float64(r.LonE7)/LatLonScale,
		float64(r.AltMm)/AltScale,
		l.RSSI, l.SNR)
}
