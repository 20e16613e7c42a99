package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosentry/geosentry/pkg/environment"
	"github.com/geosentry/geosentry/pkg/location"
	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/risk"
	"github.com/geosentry/geosentry/pkg/threshold"
	"github.com/geosentry/geosentry/pkg/vectorstore"
	"github.com/geosentry/geosentry/pkg/vpn"
)

func ptr[T any](v T) *T { return &v }

type noopProvider struct{}

func (noopProvider) Name() string  { return "noop" }
func (noopProvider) Enabled() bool { return false }
func (noopProvider) Call(ctx context.Context, ip string) (models.VPNProviderResult, error) {
	return models.VPNProviderResult{}, nil
}

type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dims)
	for i := range v {
		v[i] = float32(len(text) % (i + 2))
	}
	return v, nil
}

// orderTrackingStore wraps a MemoryStore to record the call sequence
// patternAnalysis issues against it.
type orderTrackingStore struct {
	*vectorstore.MemoryStore
	calls []string
}

func (s *orderTrackingStore) Upsert(ctx context.Context, point models.VectorPoint) error {
	s.calls = append(s.calls, "upsert")
	return s.MemoryStore.Upsert(ctx, point)
}

func (s *orderTrackingStore) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredPoint, error) {
	s.calls = append(s.calls, "search")
	return s.MemoryStore.Search(ctx, vector, k)
}

func newTestOrchestrator() *Orchestrator {
	registry := threshold.New()
	locVerifier := location.NewVerifier(registry, nil, nil)
	envAnalyzer := environment.NewAnalyzer(registry)
	aggregator := vpn.NewAggregator([]vpn.Provider{noopProvider{}}, registry, nil)
	embedder := &fakeEmbedder{dims: 8}
	store := vectorstore.NewMemoryStore()
	evaluator := risk.NewEvaluator(registry, nil, nil)

	return New(registry, locVerifier, envAnalyzer, aggregator, embedder, store, evaluator, nil)
}

func TestVerifyRejectsMismatchedCoordinates(t *testing.T) {
	o := newTestOrchestrator()

	_, err := o.Verify(context.Background(), models.LocationSignal{
		Latitude:    ptr(1.0),
		TimestampMs: 1000,
	}, models.EnvironmentSignal{}, models.NetworkSignal{ClientIP: "8.8.8.8"}, false)

	require.Error(t, err)
}

func TestVerifyRejectsInvalidNetworkSignal(t *testing.T) {
	o := newTestOrchestrator()

	_, err := o.Verify(context.Background(), models.LocationSignal{TimestampMs: 1000}, models.EnvironmentSignal{}, models.NetworkSignal{ClientIP: "not-an-ip"}, false)

	require.Error(t, err)
}

func TestVerifyAuthenticSessionEndToEnd(t *testing.T) {
	o := newTestOrchestrator()

	loc := models.LocationSignal{
		Latitude:       ptr(37.7749),
		Longitude:      ptr(-122.4194),
		AccuracyMeters: ptr(15.0),
		TimestampMs:    1_700_000_000_000,
		ResponseTimeMs: ptr(int64(250)),
	}
	env := models.EnvironmentSignal{
		ScreenWidth:   ptr(1920),
		ScreenHeight:  ptr(1080),
		ColorDepth:    ptr(24),
		WebGLRenderer: "NVIDIA GeForce GTX 1080",
		Platform:      "Win32",
	}
	net := models.NetworkSignal{ClientIP: "8.8.8.8"}

	verdict, err := o.Verify(context.Background(), loc, env, net, false)

	require.NoError(t, err)
	assert.Equal(t, models.EnvironmentLocalDesktop, verdict.EnvironmentKind)
	assert.NotNil(t, verdict.Fingerprint)
	assert.NotNil(t, verdict.Risk)
	assert.NotNil(t, verdict.VPN)
	assert.Empty(t, verdict.Diagnostics)
}

func TestVerifyMissingLocationYieldsUnableToVerify(t *testing.T) {
	o := newTestOrchestrator()

	verdict, err := o.Verify(context.Background(), models.LocationSignal{TimestampMs: 1000}, models.EnvironmentSignal{}, models.NetworkSignal{ClientIP: "8.8.8.8"}, false)

	require.NoError(t, err)
	assert.Equal(t, models.StatusUnableToVerify, verdict.Status)
	assert.Equal(t, 0, verdict.LocationScore)
}

func TestVerifyDegradesGracefullyWithoutVectorStore(t *testing.T) {
	registry := threshold.New()
	o := New(
		registry,
		location.NewVerifier(registry, nil, nil),
		environment.NewAnalyzer(registry),
		vpn.NewAggregator([]vpn.Provider{noopProvider{}}, registry, nil),
		nil, nil,
		risk.NewEvaluator(registry, nil, nil),
		nil,
	)

	loc := models.LocationSignal{Latitude: ptr(1.0), Longitude: ptr(1.0), TimestampMs: 1_700_000_000_000}
	verdict, err := o.Verify(context.Background(), loc, models.EnvironmentSignal{}, models.NetworkSignal{ClientIP: "8.8.8.8"}, false)

	require.NoError(t, err)
	assert.NotEmpty(t, verdict.Diagnostics)
	assert.NotNil(t, verdict.Risk)
}

func TestVerifyUpsertsBeforeSearchingNeighbours(t *testing.T) {
	registry := threshold.New()
	store := &orderTrackingStore{MemoryStore: vectorstore.NewMemoryStore()}
	o := New(
		registry,
		location.NewVerifier(registry, nil, nil),
		environment.NewAnalyzer(registry),
		vpn.NewAggregator([]vpn.Provider{noopProvider{}}, registry, nil),
		&fakeEmbedder{dims: 8},
		store,
		risk.NewEvaluator(registry, nil, nil),
		nil,
	)

	loc := models.LocationSignal{Latitude: ptr(1.0), Longitude: ptr(1.0), TimestampMs: 1_700_000_000_000}
	_, err := o.Verify(context.Background(), loc, models.EnvironmentSignal{}, models.NetworkSignal{ClientIP: "8.8.8.8"}, false)

	require.NoError(t, err)
	require.Equal(t, []string{"upsert", "search"}, store.calls)
}

func TestCheckIPExposesAggregatorDirectly(t *testing.T) {
	o := newTestOrchestrator()
	result := o.CheckIP(context.Background(), "192.168.1.5")
	assert.False(t, result.IsVPN)
	assert.Equal(t, "Private IP", result.Details.Error)
}
