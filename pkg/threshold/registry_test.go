package threshold

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecValues(t *testing.T) {
	d := Default()
	assert.Equal(t, 10.0, d.Location.ResponseTime.SuspiciousMs)
	assert.Equal(t, 1000.0, d.Location.Accuracy.LowMeters)
	assert.Equal(t, 60.0, d.Location.Score.LikelySpoofed)
	assert.Equal(t, 80.0, d.Location.Score.Suspicious)
	assert.Equal(t, 50.0, d.Environment.Score.LikelyRemote)
	assert.Equal(t, 75.0, d.Environment.Score.PossiblyRemote)
	assert.Equal(t, 24.0, d.Environment.ColorDepth.RDPIndicator)
	assert.Equal(t, 50.0, d.VPN.Confidence.Detected)
	assert.Equal(t, 20.0, d.Scoring.Deductions.LocationWarning)
	assert.Equal(t, 40.0, d.Scoring.Deductions.LocationFail)
	assert.Equal(t, 25.0, d.Scoring.Deductions.EnvironmentWarning)
	assert.Equal(t, 50.0, d.Scoring.Deductions.EnvironmentFail)
}

func TestRegistryGetReturnsDefaultsInitially(t *testing.T) {
	r := New()
	assert.Equal(t, Default(), r.Get())
}

func TestReplaceIsAtomic(t *testing.T) {
	r := New()
	s := Default()
	s.VPN.Confidence.Detected = 75
	r.Replace(s)
	assert.Equal(t, 75.0, r.Get().VPN.Confidence.Detected)
}

func TestLoadMergesOverDefaults(t *testing.T) {
	r := New()
	doc := `{"vpn":{"confidence":{"detected":90}}}`
	require.NoError(t, r.Load(strings.NewReader(doc)))

	got := r.Get()
	assert.Equal(t, 90.0, got.VPN.Confidence.Detected)
	// Untouched keys keep their built-in default.
	assert.Equal(t, 1000.0, got.Location.Accuracy.LowMeters)
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	r := New()
	err := r.Load(strings.NewReader("{not json"))
	assert.Error(t, err)
	// A failed load must not have mutated the snapshot.
	assert.Equal(t, Default(), r.Get())
}

func TestConcurrentReadersSeeConsistentSnapshots(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := Default()
			s.VPN.Confidence.Detected = float64(n)
			r.Replace(s)
		}(i)
	}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap := r.Get()
			// Whatever value we saw, it must be a value that was
			// actually Replace()'d, not a torn/partial struct.
			assert.GreaterOrEqual(t, snap.VPN.Confidence.Detected, 0.0)
		}()
	}
	wg.Wait()
}
