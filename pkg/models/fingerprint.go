package models

import "time"

// OverallRisk is the fingerprint summary's coarse risk bucket, derived
// purely from location/environment scores (not the full Risk Evaluator
// tier — that is a separate, richer computation over the fingerprint plus
// its neighbours).
type OverallRisk string

const (
	OverallRiskLow     OverallRisk = "low"
	OverallRiskMedium  OverallRisk = "medium"
	OverallRiskHigh    OverallRisk = "high"
	OverallRiskUnknown OverallRisk = "unknown"
)

// FingerprintLocation is the normalised location subset carried in a
// SessionFingerprint. Unlike LocationSignal it never carries a raw
// timestamp cursor — only what downstream similarity search needs.
type FingerprintLocation struct {
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	AccuracyMeters *float64 `json:"accuracyMeters,omitempty"`
	ResponseTimeMs *int64   `json:"responseTimeMs,omitempty"`
}

// FingerprintEnvironment is the normalised environment subset.
type FingerprintEnvironment struct {
	Platform      string `json:"platform,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	ColorDepth    *int   `json:"colorDepth,omitempty"`
	WebGLRenderer string `json:"webglRenderer,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	Language      string `json:"language,omitempty"`
}

// FingerprintNetwork is the normalised network subset.
type FingerprintNetwork struct {
	IP            string   `json:"ip,omitempty"`
	ObservedIPs   []string `json:"observedIps,omitempty"`
	IsVPN         bool     `json:"isVpn"`
	VPNConfidence int      `json:"vpnConfidence"`
}

// FingerprintSummary is the derived, at-a-glance read of a fingerprint.
type FingerprintSummary struct {
	LocationScore      int         `json:"locationScore"`
	EnvironmentScore    int         `json:"environmentScore"`
	OverallRisk         OverallRisk `json:"overallRisk"`
	SpoofingIndicators  []string    `json:"spoofingIndicators"`
}

// SessionFingerprint is the canonical, deterministic structured record
// built from one verification session. It doubles as the embedding source
// (via its text projection, see pkg/fingerprint) and as the payload stored
// alongside its vector in the vector index.
type SessionFingerprint struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`

	Location    *FingerprintLocation    `json:"location,omitempty"`
	Environment *FingerprintEnvironment `json:"environment,omitempty"`
	Network     *FingerprintNetwork     `json:"network,omitempty"`

	Summary FingerprintSummary `json:"summary"`
}
