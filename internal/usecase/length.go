package usecase

import (
	"context"
	"math"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"github.com/likevi9528/vcs-capture-service/internal/domain/port"
	"github.com/likevi9528/vcs-capture-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// LengthMeasurer finds the largest reachable timestamp at or below the
// reported duration when the decoder cannot seek to the reported end.
//
// The search is a bounded linear rewind, not a binary search: reachability is
// not monotonic near codec-specific seek boundaries, so every candidate in
// the budget is probed in order. The budget stays small on purpose; each
// probe is a cheap zero-frame decode.
type LengthMeasurer struct {
	prober port.Capturer
	logger *zap.Logger
}

func NewLengthMeasurer(prober port.Capturer, logger *zap.Logger) *LengthMeasurer {
	return &LengthMeasurer{prober: prober, logger: logger}
}

// Measure rewinds from reported in steps of quirks.ProbeStepSeconds until a
// reachable candidate is found, up to min(quirks.MaxRewindSeconds, reported).
// The result is truncated toward zero to three decimals.
func (m *LengthMeasurer) Measure(ctx context.Context, path string, reported float64, quirks *entity.QuirksState) (float64, error) {
	maxRewind := quirks.MaxRewindSeconds
	if maxRewind == entity.UnboundedRewind {
		maxRewind = reported
		quirks.RewindLimitReached = true
	} else if maxRewind > reported {
		maxRewind = reported
	}

	step := quirks.ProbeStepSeconds
	probes := 0
	for rewind := step; rewind <= maxRewind+1e-9; rewind += step {
		candidate := reported - rewind
		if candidate < 0 {
			break
		}

		probes++
		metrics.LengthProbesTotal.Inc()
		if err := m.prober.Probe(ctx, path, candidate); err != nil {
			m.logger.Debug("candidate length unreachable",
				zap.Float64("candidate", candidate),
				zap.Error(err),
			)
			continue
		}

		measured := truncate3(candidate)
		m.logger.Info("reachable length found",
			zap.Float64("measured", measured),
			zap.Int("probes", probes),
		)
		return measured, nil
	}

	m.logger.Warn("rewind budget exhausted without a reachable length",
		zap.Float64("reported", reported),
		zap.Float64("max_rewind", maxRewind),
		zap.Int("probes", probes),
	)
	return 0, entity.ErrLengthUnmeasurable
}

// truncate3 truncates toward zero to millisecond precision.
func truncate3(v float64) float64 {
	return math.Trunc(v*1000) / 1000
}
