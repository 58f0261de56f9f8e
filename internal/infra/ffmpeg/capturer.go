package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Capturer extracts single stills with ffmpeg. It honors fractional seek
// positions, so timestamps and cache keys carry millisecond precision.
type Capturer struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewCapturer(timeout time.Duration, logger *zap.Logger) *Capturer {
	return &Capturer{binary: "ffmpeg", timeout: timeout, logger: logger}
}

func (c *Capturer) MillisecondPrecision() bool { return true }

func (c *Capturer) Capture(ctx context.Context, path string, seconds float64, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary,
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(seconds),
		"-i", path,
		"-frames:v", "1",
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		// Never leave a partial file behind.
		os.Remove(outPath)
		return fmt.Errorf("ffmpeg capture at %ss: %w, output: %s", formatSeconds(seconds), err, out)
	}

	info, err := os.Stat(outPath)
	if err != nil || info.Size() == 0 {
		os.Remove(outPath)
		return fmt.Errorf("ffmpeg produced no frame at %ss", formatSeconds(seconds))
	}
	return nil
}

// Probe decodes one frame at the given position into the null muxer, scaled
// down hard. Success only means the position is seekable; the output is
// discarded.
func (c *Capturer) Probe(ctx context.Context, path string, seconds float64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary,
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(seconds),
		"-i", path,
		"-frames:v", "1",
		"-vf", "scale=96:-2",
		"-f", "null",
		"-",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		c.logger.Debug("probe unreachable",
			zap.Float64("seconds", seconds),
			zap.ByteString("output", out),
		)
		return fmt.Errorf("probe at %ss: %w", formatSeconds(seconds), err)
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
