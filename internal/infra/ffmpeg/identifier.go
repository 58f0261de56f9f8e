package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"go.uber.org/zap"
)

// Identifier probes a file with ffprobe in dry-run mode (no frames decoded).
// It is the primary identifier: duration and codec detection are rich, but
// the reported frame rate is a coarse container-level average.
type Identifier struct {
	binary  string
	timeout time.Duration
	logger  *zap.Logger
}

func NewIdentifier(timeout time.Duration, logger *zap.Logger) *Identifier {
	return &Identifier{binary: "ffprobe", timeout: timeout, logger: logger}
}

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeStream struct {
	CodecType          string `json:"codec_type"`
	CodecName          string `json:"codec_name"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	AvgFrameRate       string `json:"avg_frame_rate"`
	Channels           int    `json:"channels"`
	DisplayAspectRatio string `json:"display_aspect_ratio"`
}

type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

func (i *Identifier) Identify(ctx context.Context, path string) (*entity.MediaRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, i.binary,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	rec := &entity.MediaRecord{}

	if d := strings.TrimSpace(probe.Format.Duration); d != "" && d != "N/A" {
		if v, err := strconv.ParseFloat(d, 64); err == nil && v >= 0 {
			rec.Duration = v
			rec.HasDuration = true
		}
	}

	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if rec.VideoCodecID != "" {
				continue // first video stream wins
			}
			rec.Width = s.Width
			rec.Height = s.Height
			rec.VideoCodecID = s.CodecName
			rec.VideoCodecName = entity.VideoCodecDisplayName(s.CodecName)
			rec.FrameRate = parseRational(s.AvgFrameRate)
			rec.DisplayAspect = s.DisplayAspectRatio
		case "audio":
			if rec.AudioCodecID != "" {
				continue
			}
			rec.AudioCodecID = s.CodecName
			rec.AudioCodecName = entity.AudioCodecDisplayName(s.CodecName)
			rec.AudioChannels = s.Channels
		}
	}

	i.logger.Debug("primary identify",
		zap.String("path", path),
		zap.Int("width", rec.Width),
		zap.Int("height", rec.Height),
		zap.Float64("duration", rec.Duration),
		zap.Float64("fps", rec.FrameRate),
	)
	return rec, nil
}

// parseRational turns ffprobe's "30000/1001" style frame rates into a float.
// "0/0" and garbage both read as unknown.
func parseRational(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
