// Command geosentry is a runnable walkthrough of the verification
// pipeline: it wires every collaborator with in-memory defaults (no
// external credentials required) and drives a handful of representative
// sessions through Orchestrator.Verify.
package main

import (
	"context"
	"fmt"

	"github.com/geosentry/geosentry/pkg/environment"
	"github.com/geosentry/geosentry/pkg/location"
	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/orchestrator"
	"github.com/geosentry/geosentry/pkg/risk"
	"github.com/geosentry/geosentry/pkg/threshold"
	"github.com/geosentry/geosentry/pkg/vectorstore"
	"github.com/geosentry/geosentry/pkg/vpn"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("  geosentry - session verification pipeline")
	fmt.Println("===========================================")
	fmt.Println()

	registry := threshold.New()

	aggregator := vpn.NewAggregator([]vpn.Provider{
		&vpn.FallbackProvider{ASNBlocklist: vpn.DefaultASNBlocklist()},
	}, registry, nil)
	fmt.Println("✓ VPN aggregator ready (fallback provider only, no API keys configured)")

	locationVerifier := location.NewVerifier(registry, nil, nil)
	environmentAnalyzer := environment.NewAnalyzer(registry)
	store := vectorstore.NewMemoryStore()
	embedder := keywordEmbedder{dimensions: 16}
	riskEvaluator := risk.NewEvaluator(registry, nil, nil)
	fmt.Println("✓ location verifier, environment analyzer, vector store, and risk evaluator ready")
	fmt.Println()

	guard := orchestrator.New(registry, locationVerifier, environmentAnalyzer, aggregator, embedder, store, riskEvaluator, nil)

	ctx := context.Background()

	fmt.Println("--- scenario 1: authentic suburban session ---")
	printVerdict(guard.Verify(ctx, models.LocationSignal{
		Latitude:       floatPtr(37.3861),
		Longitude:      floatPtr(-122.0839),
		AccuracyMeters: floatPtr(20),
		TimestampMs:    1_700_000_000_000,
		ResponseTimeMs: int64Ptr(600),
	}, models.EnvironmentSignal{
		ScreenWidth:   intPtr(1920),
		ScreenHeight:  intPtr(1080),
		ColorDepth:    intPtr(24),
		WebGLRenderer: "Apple M1",
		Platform:      "MacIntel",
		TouchSupport:  boolPtr(false),
	}, models.NetworkSignal{ClientIP: "8.8.8.8"}, false))

	fmt.Println("--- scenario 2: null island spoof ---")
	printVerdict(guard.Verify(ctx, models.LocationSignal{
		Latitude:       floatPtr(0),
		Longitude:      floatPtr(0),
		AccuracyMeters: floatPtr(5000),
		TimestampMs:    1_700_000_000_000,
		ResponseTimeMs: int64Ptr(5),
	}, models.EnvironmentSignal{}, models.NetworkSignal{ClientIP: "185.107.56.1"}, false))

	fmt.Println("--- scenario 3: datacenter ASN consensus ---")
	printVerdict(guard.Verify(ctx, models.LocationSignal{
		Latitude:       floatPtr(39.92),
		Longitude:      floatPtr(32.85),
		AccuracyMeters: floatPtr(30),
		TimestampMs:    1_700_000_000_000,
		ResponseTimeMs: int64Ptr(300),
	}, models.EnvironmentSignal{
		ScreenWidth:   intPtr(1366),
		ScreenHeight:  intPtr(768),
		ColorDepth:    intPtr(24),
		WebGLRenderer: "Intel UHD Graphics",
	}, models.NetworkSignal{ClientIP: "52.94.76.1"}, false))

	fmt.Println("--- scenario 4: virtualized remote session ---")
	printVerdict(guard.Verify(ctx, models.LocationSignal{
		Latitude:       floatPtr(51.5),
		Longitude:      floatPtr(-0.1),
		AccuracyMeters: floatPtr(1500),
		TimestampMs:    1_700_000_000_000,
		ResponseTimeMs: int64Ptr(2),
	}, models.EnvironmentSignal{
		ScreenWidth:   intPtr(1024),
		ScreenHeight:  intPtr(768),
		ColorDepth:    intPtr(16),
		WebGLRenderer: "VMware SVGA 3D",
	}, models.NetworkSignal{ClientIP: "81.2.69.142"}, false))

	fmt.Println("--- scenario 5: private network short-circuit ---")
	printVerdict(guard.Verify(ctx, models.LocationSignal{
		Latitude:       floatPtr(41.0),
		Longitude:      floatPtr(29.0),
		AccuracyMeters: floatPtr(10),
		TimestampMs:    1_700_000_000_000,
		ResponseTimeMs: int64Ptr(400),
	}, models.EnvironmentSignal{
		ScreenWidth:  intPtr(1440),
		ScreenHeight: intPtr(900),
		ColorDepth:   intPtr(24),
	}, models.NetworkSignal{ClientIP: "10.0.0.5"}, false))

	fmt.Println("===========================================")
	fmt.Println("done")
	fmt.Println("===========================================")
}

func printVerdict(verdict models.Verdict, err error) {
	if err != nil {
		fmt.Printf("rejected: %v\n\n", err)
		return
	}

	fmt.Printf("status: %s | location score: %d | environment: %s (%d)\n",
		verdict.Status, verdict.LocationScore, verdict.EnvironmentKind, verdict.EnvironmentScore)

	if verdict.VPN != nil {
		fmt.Printf("vpn: detected=%t confidence=%d\n", verdict.VPN.IsVPN, verdict.VPN.Confidence)
	}
	if verdict.Risk != nil {
		fmt.Printf("risk: tier=%s confidence=%d factors=%v\n", verdict.Risk.Tier, verdict.Risk.Confidence, verdict.Risk.RiskFactors)
	}
	for _, flag := range verdict.LocationFlags {
		fmt.Printf("  location flag [%s] %s\n", flag.Severity, flag.Message)
	}
	for _, flag := range verdict.EnvironmentFlags {
		fmt.Printf("  environment flag [%s] %s\n", flag.Severity, flag.Message)
	}
	for _, d := range verdict.Diagnostics {
		fmt.Printf("  diagnostic: %s\n", d)
	}
	fmt.Println()
}

// keywordEmbedder is a dependency-free stand-in for a real embedding
// service, letting the demo exercise the vector-store pattern-analysis
// step without network access. It feeds every character of the
// fingerprint's text projection through a running FNV-style hash and
// counts the hits per bucket of a fixed-length vector.
type keywordEmbedder struct {
	dimensions int
}

func (k keywordEmbedder) Dimensions() int { return k.dimensions }

func (k keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vector := make([]float32, k.dimensions)
	hash := 2166136261
	for _, r := range text {
		hash = (hash ^ int(r)) * 16777619
		idx := hash % k.dimensions
		if idx < 0 {
			idx += k.dimensions
		}
		vector[idx]++
	}
	return vector, nil
}

func floatPtr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64     { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }
