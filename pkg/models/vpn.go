package models

// GeoTriple is a coarse location a VPN provider reports for an IP.
type GeoTriple struct {
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// VPNProviderResult is one IP-reputation provider's normalised verdict for
// an IP. Error is set when the call failed (network, timeout, HTTP >= 400,
// malformed response); a failed call still produces a VPNProviderResult so
// the aggregator can account for it, it just carries no usable signal.
type VPNProviderResult struct {
	Provider string `json:"provider"`

	IsVPN     bool `json:"isVpn"`
	IsProxy   bool `json:"isProxy"`
	IsTor     bool `json:"isTor"`
	IsHosting bool `json:"isHosting"`
	IsRelay   bool `json:"isRelay"`

	// FraudScore is 0-100, if the provider supplies one.
	FraudScore *float64 `json:"fraudScore,omitempty"`

	Organization string    `json:"organization,omitempty"`
	ASN          string    `json:"asn,omitempty"`
	ISP          string    `json:"isp,omitempty"`
	Location     GeoTriple `json:"location,omitempty"`

	// Extra carries provider-specific fields that don't map onto the
	// normalised shape above, for observability.
	Extra map[string]any `json:"extra,omitempty"`

	// Error is non-empty when the call failed; such results are excluded
	// from the aggregator's confidence denominator.
	Error string `json:"error,omitempty"`
}

// Errored reports whether this result represents a failed provider call.
func (r VPNProviderResult) Errored() bool {
	return r.Error != ""
}

// VPNAggregateDetails carries the raw counts and full provider result set
// behind a VPNAggregateResult, for observability and diagnostics.
type VPNAggregateDetails struct {
	TotalChecks   int                 `json:"totalChecks"`
	VPNDetections int                 `json:"vpnDetections"`
	Providers     []VPNProviderResult `json:"providers"`
	Error         string              `json:"error,omitempty"`
}

// VPNAggregateResult is the VPN/Proxy Aggregator's consensus verdict for an
// IP, combining every enabled provider's result.
type VPNAggregateResult struct {
	IP         string `json:"ip"`
	IsVPN      bool   `json:"isVpn"`
	Confidence int    `json:"confidence"`

	// FlaggedProviders are the providers (among those that answered
	// without error) that reported IsVPN.
	FlaggedProviders []VPNProviderResult `json:"flaggedProviders"`

	Details VPNAggregateDetails `json:"details"`
}
