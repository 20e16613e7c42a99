// Package models holds the request-scoped data types that flow through
// geosentry's verification pipeline: the raw signals a client reports, the
// evidence derived from them, and the verdict the orchestrator returns.
//
// All types here except VectorPoint are request-scoped and discarded once
// a verdict is emitted; VectorPoint is the only thing geosentry persists,
// and it does so in an external vector index, not here.
package models

// LocationSignal is the geolocation evidence reported for a session.
//
// Coordinates are optional, but if present both Latitude and Longitude
// must be set — a signal with only one of the two is malformed and should
// be rejected at the orchestrator boundary, not silently treated as
// "absent".
type LocationSignal struct {
	// Latitude and Longitude are signed decimal degrees. Both nil means no
	// location was reported; the verifier takes the "location unavailable"
	// path in that case.
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty"`

	// AccuracyMeters is the client-reported radius of uncertainty, if any.
	AccuracyMeters *float64 `json:"accuracyMeters,omitempty" validate:"omitempty,gte=0"`

	// TimestampMs is when the client captured the location, epoch
	// milliseconds.
	TimestampMs int64 `json:"timestampMs" validate:"required"`

	// ResponseTimeMs is how long the client took to answer the location
	// request, measured by the collector. A suspiciously low value is a
	// spoofing tell (real GPS/network geolocation rarely resolves this
	// fast).
	ResponseTimeMs *int64 `json:"responseTimeMs,omitempty" validate:"omitempty,gte=0"`
}

// HasCoordinates reports whether both Latitude and Longitude are present.
// It does not validate the "both or neither" invariant — callers validate
// that at the orchestrator boundary — it only tells downstream code
// whether there is anything to score.
func (l LocationSignal) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// EnvironmentSignal describes the client's rendering/device environment.
// Every field is optional; a missing field degrades the analysis rather
// than failing it.
type EnvironmentSignal struct {
	ScreenWidth  *int    `json:"screenWidth,omitempty" validate:"omitempty,gt=0"`
	ScreenHeight *int    `json:"screenHeight,omitempty" validate:"omitempty,gt=0"`
	ColorDepth   *int    `json:"colorDepth,omitempty" validate:"omitempty,gt=0"`
	TouchSupport *bool   `json:"touchSupport,omitempty"`
	WebGLRenderer string `json:"webglRenderer,omitempty"`
	Platform      string `json:"platform,omitempty"`
	Timezone      string `json:"timezone,omitempty"`
	Language      string `json:"language,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
}

// NetworkSignal describes the network context the client was observed on.
type NetworkSignal struct {
	// ClientIP is the textual IPv4/IPv6 address the request arrived from.
	// It may be a private-range address; that is detected explicitly, not
	// inferred from this struct.
	ClientIP string `json:"clientIp" validate:"required,ip"`

	// CandidateIPs are additional addresses observed via client-side
	// peer-connection (WebRTC) candidate gathering.
	CandidateIPs []string `json:"candidateIps,omitempty"`

	// SuspiciousBrowserProperties lists names of browser/navigator
	// properties the collector flagged as anomalous (e.g. automation
	// markers). geosentry only cares whether each name is present, not
	// its value — the enumeration itself lives with the collector.
	SuspiciousBrowserProperties []string `json:"suspiciousBrowserProperties,omitempty"`
}
