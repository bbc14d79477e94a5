// Package telemetry defines the position telemetry model shared by the
// tracker and the ground station, the textual payload codec used on the
// radio link, and the CSV output format consumed downstream.
//
// All quantities travel as scaled integers: latitude and longitude in
// 1e-7 degree units, altitude in millimetres. Nothing on the data path
// converts to floating point; the display helpers are the only place the
// scale factors are applied.
package telemetry

const (
	// MaxPayloadLen is the modem's per-transmission data capacity in bytes.
	MaxPayloadLen = 240

	// LatLonScale converts LatE7/LonE7 to degrees.
	LatLonScale = 1e7
	// AltScale converts AltMm to metres.
	AltScale = 1e3
)

// Fix is a position sample in fixed-point units.
type Fix struct {
	LatE7 int32 `json:"lat_e7"`
	LonE7 int32 `json:"lon_e7"`
	AltMm int32 `json:"alt_mm"`
}

// Record is one telemetry sample as carried on the link: the tracker's
// millisecond uptime counter plus the position fix. The counter wraps like
// the 32-bit tick counter it originates from.
type Record struct {
	TimestampMs uint32 `json:"ts"`
	Fix
}

// Link is the receive-side quality reading reported by the modem alongside
// a notification. Not part of the transmitted payload.
type Link struct {
	RSSI int16 `json:"rssi"`
	SNR  int16 `json:"snr"`
}
