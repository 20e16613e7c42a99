package fingerprint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosentry/geosentry/pkg/environment"
	"github.com/geosentry/geosentry/pkg/location"
	"github.com/geosentry/geosentry/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func sampleRecord() SessionRecord {
	return SessionRecord{
		ID:        "fp-1",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Location: models.LocationSignal{
			Latitude:       ptr(37.7749),
			Longitude:      ptr(-122.4194),
			AccuracyMeters: ptr(15.0),
			TimestampMs:    1000,
		},
		LocationOut: location.Result{Status: models.StatusAuthentic, Score: 90},
		Environment: models.EnvironmentSignal{
			Platform:      "Win32",
			ScreenWidth:   ptr(1920),
			ScreenHeight:  ptr(1080),
			WebGLRenderer: "NVIDIA GeForce GTX 1080",
			UserAgent:     "Mozilla/5.0",
		},
		EnvironmentOut: environment.Result{Kind: models.EnvironmentLocalDesktop, Score: 100},
		Network: models.NetworkSignal{
			ClientIP:     "8.8.8.8",
			CandidateIPs: []string{"8.8.8.8"},
		},
		VPN: models.VPNAggregateResult{IsVPN: false, Confidence: 0},
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	record := sampleRecord()

	a := Build(record)
	b := Build(record)

	assert.Equal(t, a, b)
	assert.Equal(t, TextProjection(a), TextProjection(b))
}

func TestBuildPopulatesNestedRecords(t *testing.T) {
	fp := Build(sampleRecord())

	require.NotNil(t, fp.Location)
	require.NotNil(t, fp.Environment)
	require.NotNil(t, fp.Network)
	assert.Equal(t, "Win32", fp.Environment.Platform)
	assert.Equal(t, "1920x1080", fp.Environment.Resolution)
}

func TestBuildMissingLocationIsNilAndUnknownRisk(t *testing.T) {
	record := sampleRecord()
	record.Location = models.LocationSignal{TimestampMs: 1000}
	record.LocationOut = location.Result{Status: models.StatusUnableToVerify, Score: 0}

	fp := Build(record)

	assert.Nil(t, fp.Location)
	assert.Equal(t, models.OverallRiskUnknown, fp.Summary.OverallRisk)
}

func TestBuildOverallRiskBuckets(t *testing.T) {
	cases := []struct {
		locationScore, environmentScore int
		want                            models.OverallRisk
	}{
		{90, 90, models.OverallRiskLow},
		{60, 60, models.OverallRiskMedium},
		{10, 10, models.OverallRiskHigh},
	}

	for _, c := range cases {
		record := sampleRecord()
		record.LocationOut.Score = c.locationScore
		record.EnvironmentOut.Score = c.environmentScore

		fp := Build(record)
		assert.Equal(t, c.want, fp.Summary.OverallRisk)
	}
}

func TestBuildSpoofingIndicatorsPreserveOrder(t *testing.T) {
	record := sampleRecord()
	record.LocationOut.Flags = []models.Flag{
		{Severity: models.SeverityWarning, Message: "Integer coordinates"},
		{Severity: models.SeverityInfo, Message: "ip_geo_mismatch"},
	}
	record.EnvironmentOut.Flags = []models.Flag{
		{Severity: models.SeverityCritical, Message: "Virtual GPU renderer"},
	}

	fp := Build(record)

	assert.Equal(t, []string{"Integer coordinates", "Virtual GPU renderer"}, fp.Summary.SpoofingIndicators)
}

func TestTextProjectionIsByteIdenticalForEqualFingerprints(t *testing.T) {
	fp1 := Build(sampleRecord())
	fp2 := Build(sampleRecord())

	assert.Equal(t, TextProjection(fp1), TextProjection(fp2))
}

func TestTextProjectionHandlesNilSections(t *testing.T) {
	fp := models.SessionFingerprint{ID: "x", Summary: models.FingerprintSummary{OverallRisk: models.OverallRiskUnknown}}

	text := TextProjection(fp)

	assert.Contains(t, text, "location: null,null")
	assert.Contains(t, text, "vpn: false@0")
}
