// Package fingerprint implements the Fingerprint Builder: a pure,
// deterministic transform from one verification session's evidence into a
// canonical SessionFingerprint, plus its canonical text projection used as
// the embedding source.
package fingerprint

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/geosentry/geosentry/pkg/environment"
	"github.com/geosentry/geosentry/pkg/location"
	"github.com/geosentry/geosentry/pkg/models"
)

// SessionRecord is everything the Orchestrator has gathered about one
// session by the time the Fingerprint Builder runs: the raw signals plus
// the Location Verifier, Environment Analyzer, and VPN Aggregator outputs.
// ID is assigned by the caller (the Orchestrator, via uuid.New()) so that
// Build stays a pure function of its input — the "random, opaque
// identifier" spec.md calls for is generated once upstream, not inside this
// package, which keeps Build(x) == Build(x) true for any x.
type SessionRecord struct {
	ID        string
	Timestamp time.Time

	Location    models.LocationSignal
	LocationOut location.Result

	Environment    models.EnvironmentSignal
	EnvironmentOut environment.Result

	Network models.NetworkSignal
	VPN     models.VPNAggregateResult
}

// Build produces a SessionFingerprint from a SessionRecord. Missing nested
// fields are recorded as null (nil pointers), never zero-valued structs.
func Build(record SessionRecord) models.SessionFingerprint {
	fp := models.SessionFingerprint{
		ID:        record.ID,
		Timestamp: record.Timestamp,
	}

	fp.Location = buildLocation(record)
	fp.Environment = buildEnvironment(record)
	fp.Network = buildNetwork(record)
	fp.Summary = buildSummary(record)

	return fp
}

func buildLocation(record SessionRecord) *models.FingerprintLocation {
	if !record.Location.HasCoordinates() {
		return nil
	}
	return &models.FingerprintLocation{
		Latitude:       record.Location.Latitude,
		Longitude:      record.Location.Longitude,
		AccuracyMeters: record.Location.AccuracyMeters,
		ResponseTimeMs: record.Location.ResponseTimeMs,
	}
}

func buildEnvironment(record SessionRecord) *models.FingerprintEnvironment {
	env := record.Environment
	if env == (models.EnvironmentSignal{}) {
		return nil
	}

	resolution := ""
	if env.ScreenWidth != nil && env.ScreenHeight != nil {
		resolution = strconv.Itoa(*env.ScreenWidth) + "x" + strconv.Itoa(*env.ScreenHeight)
	}

	return &models.FingerprintEnvironment{
		Platform:      env.Platform,
		Resolution:    resolution,
		ColorDepth:    env.ColorDepth,
		WebGLRenderer: env.WebGLRenderer,
		UserAgent:     env.UserAgent,
		Timezone:      env.Timezone,
		Language:      env.Language,
	}
}

func buildNetwork(record SessionRecord) *models.FingerprintNetwork {
	if record.Network.ClientIP == "" {
		return nil
	}
	return &models.FingerprintNetwork{
		IP:            record.Network.ClientIP,
		ObservedIPs:   record.Network.CandidateIPs,
		IsVPN:         record.VPN.IsVPN,
		VPNConfidence: record.VPN.Confidence,
	}
}

func buildSummary(record SessionRecord) models.FingerprintSummary {
	locationScore := record.LocationOut.Score
	environmentScore := record.EnvironmentOut.Score

	overall := models.OverallRiskUnknown
	if record.Location.HasCoordinates() {
		avg := float64(locationScore+environmentScore) / 2
		switch {
		case avg < 40:
			overall = models.OverallRiskHigh
		case avg < 70:
			overall = models.OverallRiskMedium
		default:
			overall = models.OverallRiskLow
		}
	}

	var indicators []string
	for _, f := range record.LocationOut.Flags {
		if f.Severity == models.SeverityWarning || f.Severity == models.SeverityFail || f.Severity == models.SeverityCritical {
			indicators = append(indicators, f.Message)
		}
	}
	for _, f := range record.EnvironmentOut.Flags {
		if f.Severity == models.SeverityWarning || f.Severity == models.SeverityFail || f.Severity == models.SeverityCritical {
			indicators = append(indicators, f.Message)
		}
	}

	return models.FingerprintSummary{
		LocationScore:      locationScore,
		EnvironmentScore:   environmentScore,
		OverallRisk:        overall,
		SpoofingIndicators: indicators,
	}
}

// TextProjection produces the canonical, line-oriented, key-prefixed
// serialisation of a fingerprint used as the embedding model's input. The
// line set and order are fixed so identical fingerprints yield
// byte-identical text and thus identical embeddings (spec.md's invariant 5).
func TextProjection(fp models.SessionFingerprint) string {
	var b strings.Builder

	writeLine := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	if fp.Location != nil {
		lat, lon := "null", "null"
		if fp.Location.Latitude != nil {
			lat = strconv.FormatFloat(*fp.Location.Latitude, 'f', 6, 64)
		}
		if fp.Location.Longitude != nil {
			lon = strconv.FormatFloat(*fp.Location.Longitude, 'f', 6, 64)
		}
		writeLine("location", fmt.Sprintf("%s,%s", lat, lon))

		accuracy := "null"
		if fp.Location.AccuracyMeters != nil {
			accuracy = strconv.FormatFloat(*fp.Location.AccuracyMeters, 'f', 1, 64)
		}
		writeLine("accuracy", accuracy)
	} else {
		writeLine("location", "null,null")
		writeLine("accuracy", "null")
	}

	if fp.Network != nil {
		writeLine("vpn", fmt.Sprintf("%t@%d", fp.Network.IsVPN, fp.Network.VPNConfidence))
		writeLine("observedIps", strings.Join(fp.Network.ObservedIPs, ","))
	} else {
		writeLine("vpn", "false@0")
		writeLine("observedIps", "")
	}

	if fp.Environment != nil {
		writeLine("platform", fp.Environment.Platform)
		writeLine("resolution", fp.Environment.Resolution)
		writeLine("gpu", fp.Environment.WebGLRenderer)
		writeLine("userAgent", fp.Environment.UserAgent)
	} else {
		writeLine("platform", "")
		writeLine("resolution", "")
		writeLine("gpu", "")
		writeLine("userAgent", "")
	}

	writeLine("riskTier", string(fp.Summary.OverallRisk))
	writeLine("locationScore", strconv.Itoa(fp.Summary.LocationScore))
	writeLine("environmentScore", strconv.Itoa(fp.Summary.EnvironmentScore))
	writeLine("spoofingIndicators", strings.Join(fp.Summary.SpoofingIndicators, ";"))

	return b.String()
}
