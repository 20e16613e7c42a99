package models

// VerificationStatus is the Location Verifier's (and, by extension, the
// Orchestrator's) headline classification for a session.
type VerificationStatus string

const (
	StatusAuthentic      VerificationStatus = "authentic"
	StatusSuspicious     VerificationStatus = "suspicious"
	StatusLikelySpoofed  VerificationStatus = "likely_spoofed"
	StatusUnableToVerify VerificationStatus = "unable_to_verify"
)

// EnvironmentKind is the Environment Analyzer's classification of the
// client's runtime.
type EnvironmentKind string

const (
	EnvironmentLocalDesktop    EnvironmentKind = "local_desktop"
	EnvironmentPossiblyRemote  EnvironmentKind = "possibly_remote"
	EnvironmentRemoteDesktop   EnvironmentKind = "remote_desktop"
	EnvironmentVirtualMachine  EnvironmentKind = "virtual_machine"
)

// Verdict is the Session Orchestrator's composed response for one
// verification request.
type Verdict struct {
	Status VerificationStatus `json:"status"`

	LocationScore    int             `json:"locationScore"`
	EnvironmentScore int             `json:"environmentScore"`
	EnvironmentKind  EnvironmentKind `json:"environmentKind"`

	LocationFlags    []Flag `json:"locationFlags"`
	EnvironmentFlags []Flag `json:"environmentFlags"`

	VPN *VPNAggregateResult `json:"vpn,omitempty"`

	Fingerprint *SessionFingerprint `json:"fingerprint,omitempty"`
	Risk        *RiskEvaluation     `json:"risk,omitempty"`

	// Diagnostics records best-effort step failures (embedding model,
	// vector store, missing risk evaluator) that did not fail the verdict
	// but degraded some part of it. Empty when every step succeeded.
	Diagnostics []string `json:"diagnostics,omitempty"`
}
