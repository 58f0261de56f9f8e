package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"strconv"

	_ "image/jpeg"
	_ "image/png"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"github.com/likevi9528/vcs-capture-service/internal/domain/port"
	"github.com/likevi9528/vcs-capture-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// evasionOffsets are the alternative seek positions tried, in order, relative
// to the requested timestamp when a capture fails or comes back blank.
var evasionOffsets = []float64{5, -5, 10, -10, 30, -30}

// CaptureEngineConfig tunes blank-frame detection. Luminance percentages at
// or below Low, or at or above High, mark a frame as a solid color.
type CaptureEngineConfig struct {
	BlankLowPercent  float64
	BlankHighPercent float64
}

type cacheEntry struct {
	artifact  string
	timestamp float64
}

// CaptureEngine produces still frames at requested timestamps, retrying
// nearby offsets to evade blank frames and caching results by normalized
// timestamp so overlapping capture sets never decode the same position twice.
// One engine serves exactly one input file; the cache is never shared across
// files.
type CaptureEngine struct {
	capturer port.Capturer
	temp     port.TempFileProvider
	duration float64
	cfg      CaptureEngineConfig
	cache    map[string]cacheEntry
	logger   *zap.Logger
}

func NewCaptureEngine(
	capturer port.Capturer,
	temp port.TempFileProvider,
	duration float64,
	cfg CaptureEngineConfig,
	logger *zap.Logger,
) *CaptureEngine {
	if cfg.BlankLowPercent <= 0 {
		cfg.BlankLowPercent = 10
	}
	if cfg.BlankHighPercent <= 0 {
		cfg.BlankHighPercent = 90
	}
	return &CaptureEngine{
		capturer: capturer,
		temp:     temp,
		duration: duration,
		cfg:      cfg,
		cache:    make(map[string]cacheEntry),
		logger:   logger,
	}
}

// CaptureAt captures one still at timestamp. The returned artifact is the
// caller's to move or delete; the engine keeps its own cached copy in
// scratch. The returned timestamp is the position actually used, which
// differs from the request when evasion kicked in; callers must derive
// display labels from it, not from the request.
func (e *CaptureEngine) CaptureAt(ctx context.Context, path string, timestamp float64, evasionAllowed bool) (string, float64, error) {
	key := e.cacheKey(timestamp)

	if hit, ok := e.cache[key]; ok {
		metrics.CacheHitsTotal.Inc()
		copyPath, err := e.copyArtifact(hit.artifact)
		if err != nil {
			return "", 0, fmt.Errorf("copy cached frame: %w", err)
		}
		e.logger.Debug("capture served from cache",
			zap.String("key", key),
			zap.Float64("timestamp", hit.timestamp),
		)
		return copyPath, hit.timestamp, nil
	}

	artifact, effective, err := e.captureWithEvasion(ctx, path, timestamp, evasionAllowed)
	if err != nil {
		metrics.CapturesTotal.WithLabelValues("failed").Inc()
		return "", 0, err
	}

	e.cache[key] = cacheEntry{artifact: artifact, timestamp: effective}
	metrics.CapturesTotal.WithLabelValues("ok").Inc()

	copyPath, err := e.copyArtifact(artifact)
	if err != nil {
		return "", 0, fmt.Errorf("copy captured frame: %w", err)
	}
	return copyPath, effective, nil
}

func (e *CaptureEngine) captureWithEvasion(ctx context.Context, path string, timestamp float64, evasionAllowed bool) (string, float64, error) {
	artifact, err := e.captureOne(ctx, path, timestamp)
	if err != nil {
		if !evasionAllowed {
			return "", 0, fmt.Errorf("%w: at %.3fs: %v", entity.ErrCaptureFailed, timestamp, err)
		}
		e.logger.Warn("capture failed, trying alternative offsets",
			zap.Float64("timestamp", timestamp),
			zap.Error(err),
		)
		artifact = ""
	}

	lastArtifact := artifact
	lastTimestamp := timestamp
	if artifact != "" {
		blank, blankErr := e.isLikelyBlank(artifact)
		if blankErr != nil {
			return "", 0, fmt.Errorf("inspect frame: %w", blankErr)
		}
		if !blank {
			return artifact, timestamp, nil
		}
		metrics.BlankFramesTotal.Inc()
		if !evasionAllowed {
			e.logger.Warn("blank frame accepted, evasion disabled",
				zap.Float64("timestamp", timestamp),
			)
			return artifact, timestamp, nil
		}
		e.logger.Info("likely blank frame, evading",
			zap.Float64("timestamp", timestamp),
		)
	}

	for _, off := range evasionOffsets {
		candidate := timestamp + off
		if candidate < 0 || candidate > e.duration {
			continue
		}

		metrics.EvasionRetriesTotal.Inc()
		alt, err := e.captureOne(ctx, path, candidate)
		if err != nil {
			// Alternatives are best-effort; a failing one is skipped,
			// not escalated.
			e.logger.Debug("evasion capture failed",
				zap.Float64("candidate", candidate),
				zap.Error(err),
			)
			continue
		}

		blank, blankErr := e.isLikelyBlank(alt)
		if blankErr != nil {
			return "", 0, fmt.Errorf("inspect frame: %w", blankErr)
		}
		if !blank {
			return alt, candidate, nil
		}
		metrics.BlankFramesTotal.Inc()
		lastArtifact = alt
		lastTimestamp = candidate
	}

	if lastArtifact != "" {
		e.logger.Warn("all alternatives blank, keeping last captured frame",
			zap.Float64("requested", timestamp),
			zap.Float64("used", lastTimestamp),
		)
		return lastArtifact, lastTimestamp, nil
	}

	return "", 0, fmt.Errorf("%w: at %.3fs and all alternatives", entity.ErrCaptureFailed, timestamp)
}

// captureOne invokes the adapter once and validates its output. A zero-byte
// output file counts as a failure.
func (e *CaptureEngine) captureOne(ctx context.Context, path string, timestamp float64) (string, error) {
	out, err := e.temp.NewTempFile(".png")
	if err != nil {
		return "", err
	}

	if err := e.capturer.Capture(ctx, path, timestamp, out); err != nil {
		return "", err
	}

	info, err := os.Stat(out)
	if err != nil {
		return "", err
	}
	if info.Size() == 0 {
		return "", errors.New("adapter wrote an empty file")
	}

	return out, nil
}

// isLikelyBlank decodes the frame and checks its mean luminance against the
// solid-black and solid-white thresholds.
func (e *CaptureEngine) isLikelyBlank(artifact string) (bool, error) {
	lum, err := meanLuminancePercent(artifact)
	if err != nil {
		return false, err
	}
	return lum <= e.cfg.BlankLowPercent || lum >= e.cfg.BlankHighPercent, nil
}

// cacheKey normalizes a timestamp to the adapter's seek granularity.
func (e *CaptureEngine) cacheKey(timestamp float64) string {
	if e.capturer.MillisecondPrecision() {
		return strconv.FormatFloat(truncate3(timestamp), 'f', 3, 64)
	}
	return strconv.Itoa(int(timestamp))
}

func (e *CaptureEngine) copyArtifact(src string) (string, error) {
	dst, err := e.temp.NewTempFile(".png")
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return dst, nil
}

// meanLuminancePercent returns the frame's average Rec. 601 luma as a
// percentage of full scale.
func meanLuminancePercent(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, err
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return 0, errors.New("empty image")
	}

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
		}
	}

	pixels := float64(bounds.Dx() * bounds.Dy())
	return sum / pixels / 65535 * 100, nil
}
