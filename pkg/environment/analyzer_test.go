package environment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geosentry/geosentry/pkg/models"
	"github.com/geosentry/geosentry/pkg/threshold"
)

func ptr[T any](v T) *T { return &v }

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(threshold.New())
}

func TestAnalyzeCleanSignalIsLocalDesktop(t *testing.T) {
	a := newTestAnalyzer()
	env := models.EnvironmentSignal{
		ScreenWidth:  ptr(1920),
		ScreenHeight: ptr(1080),
		ColorDepth:   ptr(24),
		Platform:     "Win32",
	}

	result := a.Analyze(env)

	assert.Equal(t, models.EnvironmentLocalDesktop, result.Kind)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Flags)
}

func TestAnalyzeVMwareRendererForcesVirtualMachine(t *testing.T) {
	a := newTestAnalyzer()
	env := models.EnvironmentSignal{
		ScreenWidth:   ptr(800),
		ScreenHeight:  ptr(600),
		ColorDepth:    ptr(16),
		WebGLRenderer: "VMware SVGA 3D",
	}

	result := a.Analyze(env)

	assert.Equal(t, models.EnvironmentVirtualMachine, result.Kind)
}

func TestAnalyzeVMwareRendererCaseInsensitive(t *testing.T) {
	a := newTestAnalyzer()
	env := models.EnvironmentSignal{WebGLRenderer: "VMWARE Virtual GPU"}

	result := a.Analyze(env)

	assert.Equal(t, models.EnvironmentVirtualMachine, result.Kind)
}

func TestAnalyzeLowColorDepth(t *testing.T) {
	a := newTestAnalyzer()
	env := models.EnvironmentSignal{ColorDepth: ptr(16)}

	result := a.Analyze(env)

	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "Low colour depth", result.Flags[0].Message)
	assert.Equal(t, 75, result.Score)
}

func TestAnalyzeAndroidWithoutTouch(t *testing.T) {
	a := newTestAnalyzer()
	env := models.EnvironmentSignal{Platform: "Linux armv8l Android"}

	result := a.Analyze(env)

	require.NotEmpty(t, result.Flags)
	assert.Equal(t, "Android without touch support", result.Flags[0].Message)
}

func TestAnalyzeAndroidWithTouchDoesNotFlag(t *testing.T) {
	a := newTestAnalyzer()
	env := models.EnvironmentSignal{Platform: "Android", TouchSupport: ptr(true)}

	result := a.Analyze(env)

	assert.Empty(t, result.Flags)
}

func TestAnalyzeScoreDrivesRemoteDesktopKind(t *testing.T) {
	a := newTestAnalyzer()
	// Low colour depth (-25) + uncommon resolution (-15) + unusual aspect
	// ratio (-20) + android w/o touch (-30) = score 10 < likelyRemote (50).
	env := models.EnvironmentSignal{
		ScreenWidth:  ptr(333),
		ScreenHeight: ptr(777),
		ColorDepth:   ptr(8),
		Platform:     "Android",
	}

	result := a.Analyze(env)

	assert.Equal(t, models.EnvironmentRemoteDesktop, result.Kind)
	assert.GreaterOrEqual(t, result.Score, 0)
}
