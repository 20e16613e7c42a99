// Package risk implements the Risk Evaluator: a lite, deterministic
// tallying path and a full, generative-model path, both producing the same
// RiskEvaluation shape.
package risk

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/threshold"
)

// virtualMachineRenderers mirrors the Environment Analyzer's GPU set; kept
// here too since the lite evaluator judges the fingerprint's own GPU
// string, not the analyzer's verdict.
var virtualMachineRenderers = []string{"vmware", "virtualbox", "microsoft basic", "llvmpipe"}

// neighbourHighRiskRadiusKm bounds the supplemented neighbour
// geo-consistency check (SPEC_FULL.md §5) — it never changes the riskScore
// table, only the similarity-insights text.
const neighbourHighRiskRadiusKm = 50.0

// patternSignal is one row of the lite evaluator's tally table: a named
// condition over the fingerprint and its neighbours, worth a fixed bonus
// when it matches. This is the teacher's Rule/EphemeralGeoRule pattern
// (a capability list the engine walks without switching on concrete
// types) repurposed from a persisted login-history rule into an ephemeral
// pattern-tally row.
type patternSignal struct {
	name    string
	bonus   float64
	matches func(fp models.SessionFingerprint, neighbours []models.ScoredPoint) bool
}

func patternSignals(s threshold.Snapshot) []patternSignal {
	t := s.PatternAnalysis
	return []patternSignal{
		{
			name:  "VPN detected",
			bonus: t.VPNDetectedBonus,
			matches: func(fp models.SessionFingerprint, _ []models.ScoredPoint) bool {
				return fp.Network != nil && fp.Network.IsVPN
			},
		},
		{
			name:  "Low location accuracy",
			bonus: t.LowAccuracyBonus,
			matches: func(fp models.SessionFingerprint, _ []models.ScoredPoint) bool {
				return fp.Location != nil && fp.Location.AccuracyMeters != nil &&
					*fp.Location.AccuracyMeters > s.Location.Accuracy.LowMeters
			},
		},
		{
			name:  "Suspiciously fast response",
			bonus: t.FastResponseBonus,
			matches: func(fp models.SessionFingerprint, _ []models.ScoredPoint) bool {
				return fp.Location != nil && fp.Location.ResponseTimeMs != nil &&
					float64(*fp.Location.ResponseTimeMs) < t.FastResponseMs
			},
		},
		{
			name:  "Virtual GPU renderer",
			bonus: t.VirtualGPUBonus,
			matches: func(fp models.SessionFingerprint, _ []models.ScoredPoint) bool {
				return fp.Environment != nil && matchesVirtualRenderer(fp.Environment.WebGLRenderer)
			},
		},
		{
			name:  "Low colour depth",
			bonus: t.LowColorDepthBonus,
			matches: func(fp models.SessionFingerprint, _ []models.ScoredPoint) bool {
				return fp.Environment != nil && fp.Environment.ColorDepth != nil &&
					float64(*fp.Environment.ColorDepth) < s.Environment.ColorDepth.RDPIndicator
			},
		},
		{
			name:  "Majority of neighbours high-risk",
			bonus: t.NeighbourHighRiskBonus,
			matches: func(_ models.SessionFingerprint, neighbours []models.ScoredPoint) bool {
				if len(neighbours) == 0 {
					return false
				}
				high := 0
				for _, n := range neighbours {
					if n.Payload.Summary.OverallRisk == models.OverallRiskHigh {
						high++
					}
				}
				return float64(high) > float64(len(neighbours))/2
			},
		},
	}
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

// Generator requests a one-sentence summary (lite path) or a full JSON
// risk assessment (full path) from an external generative model. The
// evaluator must tolerate a nil Generator or one that errors.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Evaluator produces RiskEvaluations via the lite (deterministic) or full
// (generative) path, sharing the same output shape.
type Evaluator struct {
	registry  *threshold.Registry
	generator Generator
	logger    *logrus.Logger
}

// NewEvaluator builds an Evaluator. generator may be nil; the lite path
// then always uses a templated explanation, and the full path always falls
// back to the lite path.
func NewEvaluator(registry *threshold.Registry, generator Generator, logger *logrus.Logger) *Evaluator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Evaluator{registry: registry, generator: generator, logger: logger}
}

// Lite implements spec.md §4.G's deterministic path. It never returns an
// error: any internal failure is absorbed into tier UNKNOWN, score 0,
// marker "error", per the error-handling design.
func (e *Evaluator) Lite(ctx context.Context, fp models.SessionFingerprint, neighbours []models.ScoredPoint) (result models.RiskEvaluation) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{"panic": r}).Error("risk evaluator lite path panicked")
			result = models.RiskEvaluation{Tier: models.RiskUnknown, ProcessingTime: models.ProcessingError}
		}
	}()

	snapshot := e.registry.Get()
	t := snapshot.PatternAnalysis

	var riskFactors, patterns []string
	score := 0.0
	for _, sig := range patternSignals(snapshot) {
		if sig.matches(fp, neighbours) {
			score += sig.bonus
			riskFactors = append(riskFactors, sig.name)
			patterns = append(patterns, sig.name)
		}
	}

	tier := models.RiskLow
	switch {
	case score >= t.TierHigh:
		tier = models.RiskHigh
	case score >= t.TierMedium:
		tier = models.RiskMedium
	}

	confidence := int(math.Min(90, 50+10*float64(len(riskFactors))))

	explanation := e.explanation(ctx, fp, tier, riskFactors)
	similarityInsights := neighbourGeoConsistency(fp, neighbours)

	recommendations := recommendationsFor(tier)

	return models.RiskEvaluation{
		Tier:               tier,
		Confidence:         confidence,
		Explanation:        explanation,
		RiskFactors:        riskFactors,
		Patterns:           patterns,
		Recommendations:    recommendations,
		SimilarityInsights: similarityInsights,
		ProcessingTime:     models.ProcessingFast,
	}
}

func (e *Evaluator) explanation(ctx context.Context, fp models.SessionFingerprint, tier models.RiskTier, factors []string) string {
	templated := templatedExplanation(tier, factors)
	if e.generator == nil {
		return templated
	}

	prompt := fmt.Sprintf(
		"Summarize in one sentence the fraud risk for a session with tier %s and risk factors: %s.",
		tier, strings.Join(factors, ", "),
	)
	summary, err := e.generator.Generate(ctx, prompt)
	if err != nil || strings.TrimSpace(summary) == "" {
		e.logger.WithFields(logrus.Fields{"error": err}).Debug("generative summary unavailable, using templated explanation")
		return templated
	}
	return summary
}

func templatedExplanation(tier models.RiskTier, factors []string) string {
	if len(factors) == 0 {
		return fmt.Sprintf("Risk tier %s: no spoofing indicators observed.", tier)
	}
	return fmt.Sprintf("Risk tier %s based on: %s.", tier, strings.Join(factors, ", "))
}

func recommendationsFor(tier models.RiskTier) []string {
	switch tier {
	case models.RiskHigh:
		return []string{"Require additional verification before granting access", "Log session for manual review"}
	case models.RiskMedium:
		return []string{"Monitor session for further anomalies"}
	default:
		return []string{"No action required"}
	}
}

// neighbourGeoConsistency is the supplemented neighbour geo-consistency
// signal (SPEC_FULL.md §5): it fills the similarity-insights text only,
// never the explanation or the riskScore table above.
func neighbourGeoConsistency(fp models.SessionFingerprint, neighbours []models.ScoredPoint) string {
	if fp.Location == nil || fp.Location.Latitude == nil || fp.Location.Longitude == nil {
		return ""
	}
	if len(neighbours) == 0 {
		return ""
	}

	nearest := neighbours[0]
	if nearest.Payload.Summary.OverallRisk != models.OverallRiskHigh {
		return ""
	}
	if nearest.Payload.Location == nil || nearest.Payload.Location.Latitude == nil || nearest.Payload.Location.Longitude == nil {
		return ""
	}

	distanceKm := haversineKm(
		*fp.Location.Latitude, *fp.Location.Longitude,
		*nearest.Payload.Location.Latitude, *nearest.Payload.Location.Longitude,
	)
	if distanceKm > neighbourHighRiskRadiusKm {
		return ""
	}

	return fmt.Sprintf(
		"Nearest neighbour session (%.1fkm away, similarity %.2f) was also high-risk, corroborating this verdict.",
		distanceKm, nearest.Score,
	)
}

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
