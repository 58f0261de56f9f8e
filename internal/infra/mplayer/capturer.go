package mplayer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Capturer extracts stills with mplayer's png video output. mplayer only
// seeks to whole seconds, so it reports no millisecond precision and the
// scheduler and cache key timestamps on integer seconds.
type Capturer struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewCapturer(timeout time.Duration, logger *zap.Logger) *Capturer {
	return &Capturer{binary: "mplayer", timeout: timeout, logger: logger}
}

func (c *Capturer) MillisecondPrecision() bool { return false }

func (c *Capturer) Capture(ctx context.Context, path string, seconds float64, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// mplayer names its output itself, so capture into a scratch dir and
	// move the single frame to outPath.
	dir, err := os.MkdirTemp(filepath.Dir(outPath), "mpcap")
	if err != nil {
		return fmt.Errorf("create capture dir: %w", err)
	}
	defer os.RemoveAll(dir)

	ts := strconv.Itoa(int(seconds))
	cmd := exec.CommandContext(ctx, c.binary,
		"-nosound",
		"-really-quiet",
		"-vo", "png:outdir="+dir,
		"-frames", "1",
		"-ss", ts,
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("mplayer capture at %ss: %w, output: %s", ts, err, out)
	}

	frames, err := filepath.Glob(filepath.Join(dir, "*.png"))
	if err != nil || len(frames) == 0 {
		return fmt.Errorf("mplayer produced no frame at %ss", ts)
	}

	if err := os.Rename(frames[0], outPath); err != nil {
		return fmt.Errorf("move captured frame: %w", err)
	}
	return nil
}

// Probe decodes one frame to the null output at the given position.
func (c *Capturer) Probe(ctx context.Context, path string, seconds float64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ts := strconv.Itoa(int(seconds))
	cmd := exec.CommandContext(ctx, c.binary,
		"-nosound",
		"-really-quiet",
		"-vo", "null",
		"-frames", "1",
		"-ss", ts,
		path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		c.logger.Debug("probe unreachable",
			zap.String("seconds", ts),
			zap.ByteString("output", out),
		)
		return fmt.Errorf("probe at %ss: %w", ts, err)
	}
	return nil
}
