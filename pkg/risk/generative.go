package risk

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/geosentry/geosentry/pkg/models"
)

// maxFullPathNeighbours is the cap on neighbours submitted to the
// generative model in one prompt, per spec.md §4.G.
const maxFullPathNeighbours = 5

// generativeResponse is the JSON object the full path asks the model for.
type generativeResponse struct {
	RiskAssessment      string   `json:"riskAssessment"`
	Confidence          float64  `json:"confidence"`
	Explanation         string   `json:"explanation"`
	Patterns            []string `json:"patterns"`
	TechnicalIndicators []string `json:"technicalIndicators"`
	SpoofingTechniques  []string `json:"spoofingTechniques"`
	Recommendations     []string `json:"recommendations"`
	SimilarityInsights  string   `json:"similarityInsights"`
}

// Full implements spec.md §4.G's generative path. It never returns an
// error: a missing generator, or a Generate call that fails, degrades to the
// lite path's result; a reply that is not parseable JSON yields tier MEDIUM,
// confidence 70, and the raw reply as the explanation.
func (e *Evaluator) Full(ctx context.Context, fp models.SessionFingerprint, neighbours []models.ScoredPoint) models.RiskEvaluation {
	if e.generator == nil {
		return e.Lite(ctx, fp, neighbours)
	}

	prompt := fullPathPrompt(fp, neighbours)
	raw, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		e.logger.WithError(err).Warn("generative model unavailable, falling back to lite risk evaluation")
		return e.Lite(ctx, fp, neighbours)
	}

	var parsed generativeResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		e.logger.WithError(err).Debug("generative model returned non-JSON, using raw-text fallback")
		return models.RiskEvaluation{
			Tier:           models.RiskMedium,
			Confidence:     70,
			Explanation:    raw,
			ProcessingTime: models.ProcessingFull,
		}
	}

	return models.RiskEvaluation{
		Tier:               parseTier(parsed.RiskAssessment),
		Confidence:         clampConfidence(parsed.Confidence),
		Explanation:        parsed.Explanation,
		RiskFactors:        append(append([]string{}, parsed.TechnicalIndicators...), parsed.SpoofingTechniques...),
		Patterns:           parsed.Patterns,
		Recommendations:    parsed.Recommendations,
		SimilarityInsights: parsed.SimilarityInsights,
		ProcessingTime:     models.ProcessingFull,
	}
}

func fullPathPrompt(fp models.SessionFingerprint, neighbours []models.ScoredPoint) string {
	var b strings.Builder
	b.WriteString("You are a fraud-detection risk analyst. Given the session fingerprint and its nearest-neighbour ")
	b.WriteString("sessions below, respond with a single JSON object with fields riskAssessment, confidence, ")
	b.WriteString("explanation, patterns, technicalIndicators, spoofingTechniques, recommendations, similarityInsights.\n\n")

	b.WriteString("Fingerprint:\n")
	encodeJSONInto(&b, fp)

	limit := len(neighbours)
	if limit > maxFullPathNeighbours {
		limit = maxFullPathNeighbours
	}
	b.WriteString("\nNeighbours:\n")
	for _, n := range neighbours[:limit] {
		encodeJSONInto(&b, n)
		b.WriteString("\n")
	}

	return b.String()
}

func encodeJSONInto(b *strings.Builder, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	b.Write(data)
}

// extractJSON trims leading/trailing prose some models wrap their JSON in
// (e.g. markdown code fences), returning the substring between the first
// '{' and the last '}'.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return raw
	}
	return raw[start : end+1]
}

func parseTier(s string) models.RiskTier {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(models.RiskLow):
		return models.RiskLow
	case string(models.RiskMedium):
		return models.RiskMedium
	case string(models.RiskHigh):
		return models.RiskHigh
	default:
		return models.RiskUnknown
	}
}

func clampConfidence(c float64) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return int(c)
}
