// Package location implements the Location Verifier: it scores a
// LocationSignal plus the VPN aggregate into a status, a numeric score, and
// an ordered flag list, applying a fixed rule table in a fixed order.
package location

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/geosentry/geosentry/pkg/geoip"
	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/threshold"
)

const staleAfterMs int64 = 60_000

// Result is the Location Verifier's output for one session.
type Result struct {
	Status models.VerificationStatus
	Score  int
	Flags  []models.Flag
}

// Verifier scores LocationSignal + VPN evidence against the Threshold
// Registry's current snapshot. GeoIP is an optional collaborator: a nil
// *geoip.Service simply skips the GPS-vs-GeoIP cross-check.
type Verifier struct {
	registry *threshold.Registry
	geo      *geoip.Service
	logger   *logrus.Logger

	// clock returns the current time as epoch milliseconds. Defaults to
	// time.Now; overridden in tests so staleness checks are deterministic.
	clock func() int64
}

// NewVerifier builds a Verifier. registry must not be nil; geo may be nil to
// disable the GPS-vs-GeoIP cross-check.
func NewVerifier(registry *threshold.Registry, geo *geoip.Service, logger *logrus.Logger) *Verifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Verifier{
		registry: registry,
		geo:      geo,
		logger:   logger,
		clock:    func() int64 { return time.Now().UnixMilli() },
	}
}

// Verify implements spec.md §4.C's algorithm. clientIP is used only for the
// optional GeoIP cross-check and never changes score/status.
func (v *Verifier) Verify(loc models.LocationSignal, vpnResult models.VPNAggregateResult, clientIP string) Result {
	if !loc.HasCoordinates() {
		return Result{
			Status: models.StatusUnableToVerify,
			Score:  0,
			Flags: []models.Flag{
				{Severity: models.SeverityFail, Message: "Location data not provided"},
			},
		}
	}

	t := v.registry.Get().Location
	lat, lon := *loc.Latitude, *loc.Longitude

	score := 100
	var flags []models.Flag

	deduct := func(amount int, f models.Flag) {
		score -= amount
		flags = append(flags, f)
	}

	if lat == 0 && lon == 0 {
		deduct(50, models.Flag{
			Severity: models.SeverityCritical,
			Message:  "Null Island",
			Explanation: "coordinates are exactly (0, 0), the default value naive spoofers leave behind",
		})
	}

	if lat == math.Trunc(lat) && lon == math.Trunc(lon) {
		deduct(20, models.Flag{
			Severity: models.SeverityWarning,
			Message:  "Integer coordinates",
			Explanation: "latitude and longitude are both whole numbers, unusual for a genuine GPS fix",
		})
	}

	if loc.AccuracyMeters != nil && *loc.AccuracyMeters > t.Accuracy.LowMeters {
		deduct(30, models.Flag{
			Severity: models.SeverityWarning,
			Message:  "Low accuracy",
		})
	}

	if v.clock()-loc.TimestampMs > staleAfterMs {
		deduct(10, models.Flag{
			Severity: models.SeverityWarning,
			Message:  "Stale timestamp",
		})
	}

	if loc.ResponseTimeMs != nil && float64(*loc.ResponseTimeMs) < t.ResponseTime.SuspiciousMs {
		deduct(20, models.Flag{
			Severity: models.SeverityWarning,
			Message:  "Fast response",
			Explanation: "response time is too fast for a genuine geolocation resolution",
		})
	}

	if vpnResult.IsVPN {
		deduct(30, models.Flag{
			Severity: models.SeverityWarning,
			Message:  "VPN/Proxy detected",
		})
	}

	if anyProviderFlags(vpnResult, func(p models.VPNProviderResult) bool { return p.IsTor }) {
		deduct(20, models.Flag{
			Severity: models.SeverityFail,
			Message:  "Tor exit node detected",
		})
	}

	if anyProviderFlags(vpnResult, func(p models.VPNProviderResult) bool {
		return p.FraudScore != nil && *p.FraudScore > 90
	}) {
		deduct(20, models.Flag{
			Severity: models.SeverityFail,
			Message:  "High fraud score",
		})
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	flags = append(flags, v.geoConsistencyFlag(lat, lon, clientIP)...)

	status := models.StatusAuthentic
	switch {
	case float64(score) < t.Score.LikelySpoofed:
		status = models.StatusLikelySpoofed
	case float64(score) < t.Score.Suspicious:
		status = models.StatusSuspicious
	}

	return Result{Status: status, Score: score, Flags: flags}
}

// geoConsistencyFlag is the supplemented GPS-vs-GeoIP cross-check: purely
// informational, never affects score or status. Grounded in the teacher's
// IPGPSRule, generalised from a persisted-rule to an ephemeral info flag.
func (v *Verifier) geoConsistencyFlag(lat, lon float64, clientIP string) []models.Flag {
	if v.geo == nil || clientIP == "" {
		return nil
	}
	data, ok := v.geo.Lookup(clientIP)
	if !ok {
		return nil
	}

	distanceKm := haversineKm(lat, lon, data.Latitude, data.Longitude)
	if distanceKm <= 1000 {
		return nil
	}

	v.logger.WithFields(logrus.Fields{"distanceKm": distanceKm, "clientIp": clientIP}).
		Debug("gps coordinates disagree with geoip centroid")

	return []models.Flag{{
		Severity:    models.SeverityInfo,
		Message:     "ip_geo_mismatch",
		Explanation: "reported GPS coordinates are over 1000km from the IP's GeoIP location",
	}}
}

func anyProviderFlags(result models.VPNAggregateResult, predicate func(models.VPNProviderResult) bool) bool {
	for _, p := range result.Details.Providers {
		if p.Errored() {
			continue
		}
		if predicate(p) {
			return true
		}
	}
	return false
}

// haversineKm computes great-circle distance in kilometres, grounded on the
// teacher's pkg/rules/utils.go helper of the same shape.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0

	dLat := (lat2 - lat1) * (math.Pi / 180.0)
	dLon := (lon2 - lon1) * (math.Pi / 180.0)

	rlat1 := lat1 * (math.Pi / 180.0)
	rlat2 := lat2 * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(rlat1)*math.Cos(rlat2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
