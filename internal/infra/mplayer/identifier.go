package mplayer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"go.uber.org/zap"
)

// Identifier probes a file with `mplayer -identify` and zero decoded frames.
// It is the secondary identifier: its frame rate carries three decimals of
// precision, but for codecs missing from its table it reports raw or zero
// dimensions, and its duration is occasionally plain wrong.
type Identifier struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewIdentifier(timeout time.Duration, logger *zap.Logger) *Identifier {
	return &Identifier{binary: "mplayer", timeout: timeout, logger: logger}
}

func (i *Identifier) Identify(ctx context.Context, path string) (*entity.MediaRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, i.binary,
		"-identify",
		"-frames", "0",
		"-vo", "null",
		"-ao", "null",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("mplayer identify %s: %w", path, err)
	}

	return parseIdentify(out, i.logger), nil
}

// parseIdentify extracts the ID_* key/value lines. All field extraction
// stays inside this adapter; callers only ever see the typed record.
func parseIdentify(out []byte, logger *zap.Logger) *entity.MediaRecord {
	rec := &entity.MediaRecord{}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "ID_") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		switch key {
		case "ID_LENGTH":
			if v, err := strconv.ParseFloat(value, 64); err == nil && v >= 0 {
				rec.Duration = v
				rec.HasDuration = true
			}
		case "ID_VIDEO_WIDTH":
			rec.Width, _ = strconv.Atoi(value)
		case "ID_VIDEO_HEIGHT":
			rec.Height, _ = strconv.Atoi(value)
		case "ID_VIDEO_FPS":
			rec.FrameRate, _ = strconv.ParseFloat(value, 64)
		case "ID_VIDEO_FORMAT":
			rec.VideoCodecID = strings.ToLower(value)
			rec.VideoCodecName = entity.VideoCodecDisplayName(rec.VideoCodecID)
		case "ID_AUDIO_CODEC":
			rec.AudioCodecID = strings.ToLower(value)
			rec.AudioCodecName = entity.AudioCodecDisplayName(rec.AudioCodecID)
		case "ID_AUDIO_NCH":
			rec.AudioChannels, _ = strconv.Atoi(value)
		case "ID_VIDEO_ASPECT":
			rec.DisplayAspect = formatAspect(value)
		}
	}

	logger.Debug("secondary identify",
		zap.Int("width", rec.Width),
		zap.Int("height", rec.Height),
		zap.Float64("duration", rec.Duration),
		zap.Float64("fps", rec.FrameRate),
	)
	return rec
}

// formatAspect maps mplayer's decimal aspect to the common ratio notation
// where it matches one, otherwise keeps the decimal.
func formatAspect(value string) string {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v <= 0 {
		return ""
	}
	switch {
	case withinAspect(v, 16.0/9.0):
		return "16:9"
	case withinAspect(v, 4.0/3.0):
		return "4:3"
	case withinAspect(v, 2.35):
		return "2.35:1"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func withinAspect(v, target float64) bool {
	d := v - target
	if d < 0 {
		d = -d
	}
	return d < 0.01
}
