package gnss

import (
	"fmt"
	"math"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

// nmeaState folds RMC and GGA sentences into one fixed-point fix. RMC is
// the position/validity source, GGA contributes altitude, fix quality and
// satellite count. Other sentence types are counted and ignored.
type nmeaState struct {
	fix        telemetry.Fix
	quality    string
	satellites int

	sentences uint64
	bad       uint64
}

// apply parses one sentence. updated is true when a valid RMC refreshed
// the position; altitude-only GGA updates do not count as a fresh fix on
// their own (a receiver without a solution still emits GGA with quality 0).
func (st *nmeaState) apply(line string) (updated bool, err error) {
	st.sentences++

	sent, perr := nmea.Parse(line)
	if perr != nil {
		st.bad++
		return false, fmt.Errorf("gnss sentence: %v", perr)
	}

	switch sent.DataType() {
	case nmea.TypeRMC:
		m := sent.(nmea.RMC)
		if m.Validity != nmea.ValidRMC {
			return false, nil
		}
		st.fix.LatE7 = degToE7(m.Latitude)
		st.fix.LonE7 = degToE7(m.Longitude)
		return true, nil

	case nmea.TypeGGA:
		m := sent.(nmea.GGA)
		st.quality = m.FixQuality
		st.satellites = int(m.NumSatellites)
		if m.FixQuality != nmea.Invalid {
			st.fix.AltMm = metersToMm(m.Altitude)
		}
		return false, nil
	}
	return false, nil
}

func degToE7(deg float64) int32 {
	return int32(math.Round(deg * telemetry.LatLonScale))
}

func metersToMm(m float64) int32 {
	return int32(math.Round(m * telemetry.AltScale))
}
