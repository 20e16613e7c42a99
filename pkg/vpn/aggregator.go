package vpn

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/threshold"
)

// providerDeadline is the per-call deadline every provider is given,
// per spec.md §4.B and §5.
const providerDeadline = 5 * time.Second

// Aggregator dispatches to every enabled Provider concurrently and reduces
// the results into a VPNAggregateResult.
type Aggregator struct {
	providers []Provider
	registry  *threshold.Registry
	logger    *logrus.Logger
}

// NewAggregator builds an Aggregator over the given provider registry, in
// the order they should be reported back (spec.md §5: the details list
// SHOULD preserve registry order, not arrival order). A nil thresholds
// registry falls back to threshold.Default() semantics via threshold.New().
func NewAggregator(providers []Provider, registry *threshold.Registry, logger *logrus.Logger) *Aggregator {
	if registry == nil {
		registry = threshold.New()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Aggregator{providers: providers, registry: registry, logger: logger}
}

// Detect implements the VPN/Proxy Aggregator's detect(ip) operation.
func (a *Aggregator) Detect(ctx context.Context, ip string) models.VPNAggregateResult {
	if isPrivateOrReserved(ip) {
		return models.VPNAggregateResult{
			IP:         ip,
			IsVPN:      false,
			Confidence: 0,
			Details: models.VPNAggregateDetails{
				Error: "Private IP",
			},
		}
	}

	enabled := make([]Provider, 0, len(a.providers))
	for _, p := range a.providers {
		if p.Enabled() {
			enabled = append(enabled, p)
		}
	}

	results := make([]models.VPNProviderResult, len(enabled))
	var wg sync.WaitGroup
	for i, p := range enabled {
		wg.Add(1)
		go func(i int, p Provider) {
			defer wg.Done()
			results[i] = a.call(ctx, p, ip)
		}(i, p)
	}
	wg.Wait()

	return aggregate(ip, results, a.registry.Get().VPN.Confidence.Detected)
}

func (a *Aggregator) call(ctx context.Context, p Provider, ip string) models.VPNProviderResult {
	callCtx, cancel := context.WithTimeout(ctx, providerDeadline)
	defer cancel()

	result, err := p.Call(callCtx, ip)
	if err != nil {
		a.logger.WithFields(logrus.Fields{"provider": p.Name(), "ip": ip, "error": err}).
			Debug("vpn provider call failed")
		return models.VPNProviderResult{Provider: p.Name(), Error: err.Error()}
	}
	result.Provider = p.Name()
	return result
}

// aggregate reduces provider results into a consensus verdict, applying the
// invariant confidence = round(100*|D|/|S|) when |S| > 0, else 0, where S
// is the successful subset and D is the VPN-flagging subset of S.
func aggregate(ip string, results []models.VPNProviderResult, detectedThreshold float64) models.VPNAggregateResult {
	var successful, flagged []models.VPNProviderResult
	for _, r := range results {
		if r.Errored() {
			continue
		}
		successful = append(successful, r)
		if r.IsVPN {
			flagged = append(flagged, r)
		}
	}

	confidence := 0
	if len(successful) > 0 {
		confidence = int(roundHalfAwayFromZero(100 * float64(len(flagged)) / float64(len(successful))))
	}

	details := models.VPNAggregateDetails{
		TotalChecks:   len(results),
		VPNDetections: len(flagged),
		Providers:     results,
	}
	if len(successful) == 0 && len(results) > 0 {
		details.Error = "all providers errored"
	}

	return models.VPNAggregateResult{
		IP:               ip,
		IsVPN:            float64(confidence) >= detectedThreshold,
		Confidence:       confidence,
		FlaggedProviders: flagged,
		Details:          details,
	}
}

func roundHalfAwayFromZero(v float64) float64 {
	if v < 0 {
		return -roundHalfAwayFromZero(-v)
	}
	i := float64(int64(v))
	if v-i >= 0.5 {
		return i + 1
	}
	return i
}

// isPrivateOrReserved reports whether ip is in a private, loopback,
// link-local, or otherwise non-routable range, per spec.md §4.B step 1.
func isPrivateOrReserved(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsPrivate() ||
		parsed.IsLoopback() ||
		parsed.IsLinkLocalUnicast() ||
		parsed.IsLinkLocalMulticast() ||
		parsed.IsUnspecified()
}
