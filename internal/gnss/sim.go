package gnss

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/sav-1305/Link-Budget-Analysis-Dashboard/internal/telemetry"
)

// SimConfig describes a deterministic circular track for benchside runs
// without a receiver attached.
type SimConfig struct {
	CenterLatDeg float64       `yaml:"center_lat_deg"`
	CenterLonDeg float64       `yaml:"center_lon_deg"`
	AltM         float64       `yaml:"alt_m"`
	RadiusM      float64       `yaml:"radius_m"`
	Period       time.Duration `yaml:"period"`
}

// Fix returns the track position at the given instant. Pure function of
// time, so runs are reproducible.
func (c SimConfig) Fix(now time.Time) telemetry.Fix {
	period := c.Period
	if period <= 0 {
		period = 120 * time.Second
	}
	radiusM := c.RadiusM
	if radiusM <= 0 {
		radiusM = 500
	}

	// Meters to degrees: ~111.32 km per degree of latitude.
	radiusDeg := radiusM / 111320.0

	phase := float64(now.UnixNano()%period.Nanoseconds()) / float64(period.Nanoseconds())
	w := 2 * math.Pi * phase

	latDeg := c.CenterLatDeg + radiusDeg*math.Sin(w)
	lonDeg := c.CenterLonDeg + (radiusDeg*math.Cos(w))/math.Cos(c.CenterLatDeg*math.Pi/180.0)

	return telemetry.Fix{
		LatE7: degToE7(latDeg),
		LonE7: degToE7(lonDeg),
		AltMm: metersToMm(c.AltM),
	}
}

func (s *Service) startSimLocked(ctx context.Context) error {
	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Printf("gnss enabled source=sim center=%.5f,%.5f radius_m=%.0f",
			s.cfg.Sim.CenterLatDeg, s.cfg.Sim.CenterLonDeg, s.cfg.Sim.RadiusM)

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-childCtx.Done():
				return
			case now := <-ticker.C:
				now = now.UTC()
				fix := s.cfg.Sim.Fix(now)

				s.mu.Lock()
				s.haveFix = true
				s.fix = fix
				s.lastFixAt = now
				s.mu.Unlock()

				s.last.Store(Snapshot{
					Valid:      true,
					Source:     "sim",
					LatE7:      fix.LatE7,
					LonE7:      fix.LonE7,
					AltMm:      fix.AltMm,
					LastFixUTC: now.Format(time.RFC3339Nano),
				})
			}
		}
	}()

	s.last.Store(Snapshot{Source: "sim"})
	return nil
}
