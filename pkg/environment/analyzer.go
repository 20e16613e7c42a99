// Package environment implements the Environment Analyzer: it scores an
// EnvironmentSignal into an environment kind, a numeric score, and an
// ordered flag list.
package environment

import (
	"strconv"
	"strings"

	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/threshold"
)

// virtualMachineRenderers is the WebGL-renderer substring set that
// identifies a virtualised GPU, per spec.md §4.D.
var virtualMachineRenderers = []string{"vmware", "virtualbox", "microsoft basic", "llvmpipe"}

// canonicalResolutions is the set of common physical-display resolutions
// used by the "uncommon resolution" rule.
var canonicalResolutions = map[string]bool{
	"1920x1080": true,
	"1366x768":  true,
	"1536x864":  true,
	"1440x900":  true,
	"1280x720":  true,
	"2560x1440": true,
	"3840x2160": true,
	"1600x900":  true,
	"1280x800":  true,
	"1024x768":  true,
}

// Result is the Environment Analyzer's output for one session.
type Result struct {
	Kind  models.EnvironmentKind
	Score int
	Flags []models.Flag
}

// Analyzer scores an EnvironmentSignal against the Threshold Registry's
// current snapshot.
type Analyzer struct {
	registry *threshold.Registry
}

// NewAnalyzer builds an Analyzer. registry must not be nil.
func NewAnalyzer(registry *threshold.Registry) *Analyzer {
	return &Analyzer{registry: registry}
}

// Analyze implements spec.md §4.D's algorithm.
func (a *Analyzer) Analyze(env models.EnvironmentSignal) Result {
	t := a.registry.Get().Environment

	score := 100
	kind := models.EnvironmentLocalDesktop
	var flags []models.Flag

	deduct := func(amount int, f models.Flag) {
		score -= amount
		flags = append(flags, f)
	}

	if env.ScreenWidth != nil && env.ScreenHeight != nil {
		if !isCanonicalAspectRatio(*env.ScreenWidth, *env.ScreenHeight) {
			deduct(20, models.Flag{Severity: models.SeverityWarning, Message: "Unusual aspect ratio"})
		}
	}

	if env.ColorDepth != nil && float64(*env.ColorDepth) < t.ColorDepth.RDPIndicator {
		deduct(25, models.Flag{Severity: models.SeverityWarning, Message: "Low colour depth"})
	}

	if matchesVirtualRenderer(env.WebGLRenderer) {
		deduct(50, models.Flag{
			Severity:    models.SeverityCritical,
			Message:     "Virtual GPU renderer",
			Explanation: "WebGL renderer string matches a known virtual-machine GPU driver",
		})
		kind = models.EnvironmentVirtualMachine
	}

	if indicatesAndroid(env.Platform) && (env.TouchSupport == nil || !*env.TouchSupport) {
		deduct(30, models.Flag{Severity: models.SeverityWarning, Message: "Android without touch support"})
	}

	if env.ScreenWidth != nil && env.ScreenHeight != nil {
		key := resolutionKey(*env.ScreenWidth, *env.ScreenHeight)
		if !canonicalResolutions[key] {
			deduct(15, models.Flag{Severity: models.SeverityWarning, Message: "Uncommon resolution"})
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	if kind != models.EnvironmentVirtualMachine {
		switch {
		case float64(score) < t.Score.LikelyRemote:
			kind = models.EnvironmentRemoteDesktop
		case float64(score) < t.Score.PossiblyRemote:
			kind = models.EnvironmentPossiblyRemote
		}
	}

	return Result{Kind: kind, Score: score, Flags: flags}
}

func isCanonicalAspectRatio(width, height int) bool {
	if height == 0 {
		return false
	}
	ratio := float64(width) / float64(height)
	const epsilon = 0.01
	for _, r := range []float64{16.0 / 9.0, 16.0 / 10.0, 4.0 / 3.0, 21.0 / 9.0} {
		if diff := ratio - r; diff < epsilon && diff > -epsilon {
			return true
		}
	}
	return false
}

func matchesVirtualRenderer(renderer string) bool {
	lower := strings.ToLower(renderer)
	for _, needle := range virtualMachineRenderers {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}

func indicatesAndroid(platform string) bool {
	return strings.Contains(strings.ToLower(platform), "android")
}

func resolutionKey(width, height int) string {
	return strconv.Itoa(width) + "x" + strconv.Itoa(height)
}
