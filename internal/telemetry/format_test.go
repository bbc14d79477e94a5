package telemetry

import "testing"

func TestFormatCSV_RawIntegers(t *testing.T) {
	r := Record{TimestampMs: 12345, Fix: Fix{LatE7: 123456789, LonE7: 987654321, AltMm: 1000}}
	l := Link{RSSI: -45, SNR: 10}
	got := FormatCSV(r, l)
	if got != "12345,123456789,987654321,1000,-45,10" {
		t.Fatalf("row mismatch: %q", got)
	}
}

func TestFormatCSV_Deterministic(t *testing.T) {
	r := Record{TimestampMs: 1, Fix: Fix{LatE7: -2, LonE7: 3, AltMm: -4}}
	l := Link{RSSI: -99, SNR: -3}
	if FormatCSV(r, l) != FormatCSV(r, l) {
		t.Fatalf("same inputs produced different rows")
	}
}

func TestFormatHuman_AppliesScales(t *testing.T) {
	r := Record{TimestampMs: 1000, Fix: Fix{LatE7: 123456789, LonE7: -987654321, AltMm: 12345}}
	l := Link{RSSI: -45, SNR: 10}
	got := FormatHuman(r, l)
	want := "t=1000ms lat=12.3456789 lon=-98.7654321 alt=12.345m rssi=-45dBm snr=10dB"
	if got != want {
		t.Fatalf("display mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestFormatHuman_ZeroRecord(t *testing.T) {
	got := FormatHuman(Record{}, Link{})
	want := "t=0ms lat=0.0000000 lon=0.0000000 alt=0.000m rssi=0dBm snr=0dB"
	if got != want {
		t.Fatalf("display mismatch:\n got %q\nwant %q", got, want)
	}
}
