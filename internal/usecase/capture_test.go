package usecase

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"github.com/likevi9528/vcs-capture-service/internal/infra/tempfiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedCapturer writes a uniform frame whose gray level depends on the
// requested timestamp, or fails outright for timestamps in failAt.
type scriptedCapturer struct {
	ms      bool
	grayAt  map[int]uint8 // keyed on whole seconds for simplicity
	failAt  map[int]bool
	invoked []float64
}

func (c *scriptedCapturer) Capture(_ context.Context, _ string, seconds float64, outPath string) error {
	c.invoked = append(c.invoked, seconds)
	if c.failAt[int(seconds)] {
		return errors.New("decoder crashed")
	}
	gray, ok := c.grayAt[int(seconds)]
	if !ok {
		gray = 128
	}
	return writeUniformPNG(outPath, gray)
}

func (c *scriptedCapturer) Probe(context.Context, string, float64) error { return nil }

func (c *scriptedCapturer) MillisecondPrecision() bool { return c.ms }

func writeUniformPNG(path string, gray uint8) error {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = gray
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func newTestEngine(t *testing.T, capturer *scriptedCapturer, duration float64) *CaptureEngine {
	t.Helper()
	scratch, err := tempfiles.NewRegistry(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { scratch.Drain() })

	return NewCaptureEngine(capturer, scratch, duration, CaptureEngineConfig{
		BlankLowPercent:  10,
		BlankHighPercent: 90,
	}, zap.NewNop())
}

func TestCaptureAtReturnsFrame(t *testing.T) {
	cap := &scriptedCapturer{ms: true}
	engine := newTestEngine(t, cap, 600)

	artifact, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 100, true)
	require.NoError(t, err)
	assert.Equal(t, 100.0, effective)
	info, err := os.Stat(artifact)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestCaptureCacheInvokesAdapterOnce(t *testing.T) {
	cap := &scriptedCapturer{ms: false}
	engine := newTestEngine(t, cap, 600)

	// 10.0 and 10.7 normalize to the same whole-second key.
	first, _, err := engine.CaptureAt(context.Background(), "v.mp4", 10.0, true)
	require.NoError(t, err)
	second, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 10.7, true)
	require.NoError(t, err)

	assert.Len(t, cap.invoked, 1)
	assert.Equal(t, 10.0, effective)
	assert.NotEqual(t, first, second, "cache hits return an independent copy")
	for _, p := range []string{first, second} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestCaptureArtifactSurvivesCallerRename(t *testing.T) {
	cap := &scriptedCapturer{ms: true}
	engine := newTestEngine(t, cap, 600)

	first, _, err := engine.CaptureAt(context.Background(), "v.mp4", 20.0, true)
	require.NoError(t, err)

	// A caller moving its artifact away must not invalidate the cache.
	moved := first + ".moved"
	require.NoError(t, os.Rename(first, moved))

	second, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 20.0, true)
	require.NoError(t, err)
	assert.Equal(t, 20.0, effective)
	assert.Len(t, cap.invoked, 1)
	assert.FileExists(t, second)
}

func TestCaptureMillisecondKeysStayDistinct(t *testing.T) {
	cap := &scriptedCapturer{ms: true}
	engine := newTestEngine(t, cap, 600)

	_, _, err := engine.CaptureAt(context.Background(), "v.mp4", 10.0, true)
	require.NoError(t, err)
	_, _, err = engine.CaptureAt(context.Background(), "v.mp4", 10.7, true)
	require.NoError(t, err)

	assert.Len(t, cap.invoked, 2)
}

func TestCaptureEvadesBlankFrames(t *testing.T) {
	// The request and the first alternative are solid black; the second
	// alternative is a normal frame.
	cap := &scriptedCapturer{
		ms:     true,
		grayAt: map[int]uint8{100: 0, 105: 0, 95: 128},
	}
	engine := newTestEngine(t, cap, 600)

	artifact, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 100, true)
	require.NoError(t, err)
	assert.Equal(t, 95.0, effective, "caller must get the timestamp actually used")
	assert.Equal(t, []float64{100, 105, 95}, cap.invoked)
	assert.FileExists(t, artifact)
}

func TestCaptureBlankWithoutEvasionAccepted(t *testing.T) {
	cap := &scriptedCapturer{ms: true, grayAt: map[int]uint8{100: 255}}
	engine := newTestEngine(t, cap, 600)

	_, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 100, false)
	require.NoError(t, err)
	assert.Equal(t, 100.0, effective)
	assert.Len(t, cap.invoked, 1)
}

func TestCaptureAllAlternativesBlankKeepsLast(t *testing.T) {
	blank := map[int]uint8{}
	for _, s := range []int{100, 105, 95, 110, 90, 130, 70} {
		blank[s] = 0
	}
	cap := &scriptedCapturer{ms: true, grayAt: blank}
	engine := newTestEngine(t, cap, 600)

	artifact, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 100, true)
	require.NoError(t, err)
	// Degrades to the last captured frame instead of failing.
	assert.Equal(t, 70.0, effective)
	assert.FileExists(t, artifact)
}

func TestCaptureFailureWithoutEvasionIsFatal(t *testing.T) {
	cap := &scriptedCapturer{ms: true, failAt: map[int]bool{100: true}}
	engine := newTestEngine(t, cap, 600)

	_, _, err := engine.CaptureAt(context.Background(), "v.mp4", 100, false)
	assert.ErrorIs(t, err, entity.ErrCaptureFailed)
}

func TestCaptureFailedAlternativesAreSkipped(t *testing.T) {
	// The request and first alternative crash the decoder; the second
	// alternative works.
	cap := &scriptedCapturer{
		ms:     true,
		failAt: map[int]bool{100: true, 105: true},
		grayAt: map[int]uint8{95: 128},
	}
	engine := newTestEngine(t, cap, 600)

	_, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 100, true)
	require.NoError(t, err)
	assert.Equal(t, 95.0, effective)
}

func TestCaptureOffsetsOutsideStreamSkipped(t *testing.T) {
	// At 2s into a 3s stream every alternative lands outside [0, 3], so a
	// blank request frame is kept.
	cap := &scriptedCapturer{ms: true, grayAt: map[int]uint8{2: 0}}
	engine := newTestEngine(t, cap, 3)

	_, effective, err := engine.CaptureAt(context.Background(), "v.mp4", 2, true)
	require.NoError(t, err)
	assert.Equal(t, 2.0, effective)
	assert.Equal(t, []float64{2}, cap.invoked)
}

func TestCaptureEverythingFailsReturnsError(t *testing.T) {
	fail := map[int]bool{}
	for _, s := range []int{100, 105, 95, 110, 90, 130, 70} {
		fail[s] = true
	}
	cap := &scriptedCapturer{ms: true, failAt: fail}
	engine := newTestEngine(t, cap, 600)

	_, _, err := engine.CaptureAt(context.Background(), "v.mp4", 100, true)
	assert.ErrorIs(t, err, entity.ErrCaptureFailed)
}
