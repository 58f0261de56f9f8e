package usecase

import (
	"context"
	"strconv"
	"strings"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"github.com/likevi9528/vcs-capture-service/internal/domain/port"
	"go.uber.org/zap"
)

const (
	// Frame rates above this from the primary identifier are a known
	// false-detection signature and are discarded.
	falseDetectionFrameRate = 500.0

	// The active decoder reports exactly this rate when it silently failed
	// to find real timing information.
	suspiciousFrameRate = 1000.0

	// Codec id the primary identifier emits when its codec table has no
	// entry for the stream.
	undetectedVideoCodec = "rawvideo"

	defaultInconsistencyThreshold = 0.2
)

// ReconcilerConfig tunes the merge of the two identifier records.
type ReconcilerConfig struct {
	// InconsistencyThreshold is the duration delta, in seconds, above which
	// the two identifiers are considered to disagree.
	InconsistencyThreshold float64

	// ActivePrimary is true when the capture adapter is backed by the same
	// decoder as the primary identifier.
	ActivePrimary bool
}

// Reconciler merges the outputs of both identifiers into one canonical
// MediaRecord, deciding along the way whether the file needs safe mode.
// It is a pure function of its inputs plus the reachability probe.
type Reconciler struct {
	prober   port.Capturer
	measurer *LengthMeasurer
	cfg      ReconcilerConfig
	logger   *zap.Logger
}

func NewReconciler(prober port.Capturer, measurer *LengthMeasurer, cfg ReconcilerConfig, logger *zap.Logger) *Reconciler {
	if cfg.InconsistencyThreshold <= 0 {
		cfg.InconsistencyThreshold = defaultInconsistencyThreshold
	}
	return &Reconciler{prober: prober, measurer: measurer, cfg: cfg, logger: logger}
}

// Reconcile builds the canonical record for path from the primary and
// secondary identifier outputs. Either record may be nil when that adapter is
// disabled or failed outright. The returned decisions list every fallback
// taken; quirks holds the per-file safe-mode state and is mutated in place.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	path string,
	primary, secondary *entity.MediaRecord,
	quirks *entity.QuirksState,
) (*entity.MediaRecord, []entity.Decision, error) {
	var decisions []entity.Decision

	if !hasDuration(primary) && !hasDuration(secondary) {
		return nil, nil, entity.ErrNoDuration
	}

	canonical := &entity.MediaRecord{}
	if primary != nil {
		*canonical = *primary
	} else {
		*canonical = *secondary
	}

	// Frame rate: the secondary decoder is trusted when the primary has
	// nothing, when the secondary carries a corrected three-decimal
	// estimate, or when the primary's value is a false detection.
	if secondary != nil && secondary.FrameRate > 0 {
		switch {
		case primary == nil || primary.FrameRate <= 0,
			hasThreeDecimals(secondary.FrameRate),
			primary.FrameRate > falseDetectionFrameRate:
			canonical.FrameRate = secondary.FrameRate
			decisions = append(decisions, entity.DecisionFrameRateFromSecondary)
		}
	}

	// Channels and display aspect come from the secondary whenever it has
	// them; it reads container metadata the primary ignores.
	if secondary != nil {
		if secondary.AudioChannels > 0 && secondary.AudioChannels != canonical.AudioChannels {
			canonical.AudioChannels = secondary.AudioChannels
			decisions = append(decisions, entity.DecisionChannelsFromSecondary)
		}
		if secondary.DisplayAspect != "" && secondary.DisplayAspect != canonical.DisplayAspect {
			canonical.DisplayAspect = secondary.DisplayAspect
			decisions = append(decisions, entity.DecisionAspectFromSecondary)
		}
	}

	active := primary
	if !r.cfg.ActivePrimary {
		active = secondary
	}
	if !hasDuration(active) {
		return nil, nil, entity.ErrNoDuration
	}

	decisions, err := r.crossCheckDuration(canonical, primary, secondary, quirks, decisions)
	if err != nil {
		return nil, nil, err
	}

	// Dimension fallback.
	if !canonical.HasValidDimensions() {
		if secondary != nil && secondary.HasValidDimensions() {
			canonical.Width = secondary.Width
			canonical.Height = secondary.Height
			decisions = append(decisions, entity.DecisionDimensionsFromSecondary)
		} else {
			return nil, nil, entity.ErrNoDimensions
		}
	}

	// The primary reports a raw-video sentinel when its codec table has no
	// entry; the secondary usually still knows the real codec.
	if canonical.VideoCodecID == undetectedVideoCodec && secondary != nil && secondary.VideoCodecID != "" {
		canonical.VideoCodecID = secondary.VideoCodecID
		canonical.VideoCodecName = secondary.VideoCodecName
		decisions = append(decisions, entity.DecisionCodecFromSecondary)
	}

	if !quirks.Enabled && active.FrameRate == suspiciousFrameRate {
		quirks.Enabled = true
		decisions = append(decisions, entity.DecisionQuirksOnFrameRate)
	}

	if !quirks.Enabled {
		if err := r.prober.Probe(ctx, path, canonical.Duration); err != nil {
			r.logger.Warn("end of stream not reachable, enabling safe mode",
				zap.Float64("duration", canonical.Duration),
				zap.Error(err),
			)
			quirks.Enabled = true
			decisions = append(decisions, entity.DecisionQuirksOnProbeFailure)
		}
	}

	if quirks.Enabled {
		measured, err := r.measurer.Measure(ctx, path, canonical.Duration, quirks)
		if err != nil {
			return nil, nil, err
		}
		r.logger.Info("safe length measured",
			zap.Float64("reported", canonical.Duration),
			zap.Float64("measured", measured),
		)
		canonical.Duration = measured
		decisions = append(decisions, entity.DecisionDurationMeasured)
	}

	return canonical, decisions, nil
}

// crossCheckDuration merges the two reported durations and flags the pair
// inconsistent when they disagree beyond the threshold. A zero on either side
// is always treated as a disagreement.
func (r *Reconciler) crossCheckDuration(
	canonical *entity.MediaRecord,
	primary, secondary *entity.MediaRecord,
	quirks *entity.QuirksState,
	decisions []entity.Decision,
) ([]entity.Decision, error) {
	if !hasDuration(primary) || !hasDuration(secondary) {
		// Only one identifier reported anything; there is nothing to
		// disagree with.
		if hasDuration(primary) {
			canonical.Duration = primary.Duration
		} else {
			canonical.Duration = secondary.Duration
		}
		canonical.HasDuration = true
		return decisions, nil
	}

	pd, sd := primary.Duration, secondary.Duration
	if pd == 0 && sd == 0 {
		return decisions, entity.ErrNoDuration
	}

	delta := pd - sd
	if delta < 0 {
		delta = -delta
	}
	if pd == 0 || sd == 0 {
		delta = r.cfg.InconsistencyThreshold + 1
		decisions = append(decisions, entity.DecisionForcedInconsistent)
	}

	if pd > 0 && sd > 0 {
		canonical.Duration = min(pd, sd)
	} else {
		canonical.Duration = max(pd, sd)
	}
	canonical.HasDuration = true

	if delta >= r.cfg.InconsistencyThreshold {
		r.logger.Warn("identifiers disagree on duration, enabling safe mode",
			zap.Float64("primary", pd),
			zap.Float64("secondary", sd),
			zap.Float64("delta", delta),
		)
		quirks.Enabled = true
		decisions = append(decisions, entity.DecisionQuirksOnDelta)
	}

	return decisions, nil
}

func hasDuration(r *entity.MediaRecord) bool {
	return r != nil && r.HasDuration
}

// hasThreeDecimals reports whether f prints with exactly three fractional
// digits, the signature of a corrected frame-rate estimate (23.976, 29.970
// printed as 29.97 does not count).
func hasThreeDecimals(f float64) bool {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	dot := strings.IndexByte(s, '.')
	return dot >= 0 && len(s)-dot-1 == 3
}
