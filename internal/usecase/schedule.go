package usecase

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"go.uber.org/zap"
)

// EndOffset trims the tail of the captured span, either by absolute seconds
// or as a percentage of the effective end. Explicit marks an offset the
// request asked for, as opposed to the worker default: only explicit offsets
// turn "span too small" into an error.
type EndOffset struct {
	Value    float64
	Percent  bool
	Explicit bool
}

// ParseEndOffset parses "30", "12.5" or "5%" into an EndOffset. The empty
// string is a zero offset.
func ParseEndOffset(s string, explicit bool) (EndOffset, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EndOffset{}, nil
	}
	pct := strings.HasSuffix(s, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || v < 0 {
		return EndOffset{}, fmt.Errorf("invalid end offset %q", s)
	}
	return EndOffset{Value: v, Percent: pct, Explicit: explicit}, nil
}

// ScheduleRequest holds everything the scheduler needs; it is a pure
// function of this input.
type ScheduleRequest struct {
	// Duration is the canonical reconciled length of the stream.
	Duration float64

	// From/To bound the span. To <= 0 or To >= Duration means "end of
	// stream".
	From float64
	To   float64

	EndOffset EndOffset

	// Interval > 0 selects the fixed-interval policy, Count > 0 the
	// fixed-count policy. Exactly one must be set.
	Interval float64
	Count    int

	// Manual timestamps are unioned into the generated set.
	Manual []float64

	// MillisecondPrecision mirrors the active capture adapter. Without it
	// every timestamp and the step itself are clamped to whole seconds.
	MillisecondPrecision bool
}

// Scheduler computes the ordered set of capture timestamps.
type Scheduler struct {
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Build returns the strictly increasing, de-duplicated capture timestamps
// for the request. The implicit point at the start bound itself is never
// emitted; it is a lower bound, not a capture.
func (s *Scheduler) Build(req ScheduleRequest) ([]float64, error) {
	length := req.Duration
	start := math.Max(0, req.From)

	explicitTo := req.To > 0 && req.To < length
	end := length
	if explicitTo {
		end = req.To
	}

	offset := req.EndOffset.Value
	if req.EndOffset.Percent {
		offset = offset / 100 * end
	}
	if explicitTo {
		// An explicit upper bound already says where to stop.
		offset = 0
	}

	if offset > 0 && end-offset-start <= 0 {
		if req.EndOffset.Explicit {
			return nil, entity.ErrOffsetTooLarge
		}
		s.logger.Warn("default end offset leaves no usable span, ignoring",
			zap.Float64("offset", offset),
			zap.Float64("span", end-start),
		)
		offset = 0
	}

	limit := end - offset

	var points []float64
	switch {
	case req.Count == 1:
		points = []float64{clampPrecision(start+(end-start)/2, req.MillisecondPrecision)}

	case req.Count > 1:
		step := clampPrecision((end-offset-start)/float64(req.Count), req.MillisecondPrecision)
		if step > length {
			return nil, entity.ErrIntervalTooLarge
		}
		if step <= 0 {
			return nil, entity.ErrIntervalTooSmall
		}
		for i := 1; i <= req.Count; i++ {
			t := start + step*float64(i)
			if t > limit+timeEpsilon {
				break
			}
			points = append(points, clampPrecision(t, req.MillisecondPrecision))
		}

	case req.Interval > 0:
		step := clampPrecision(req.Interval, req.MillisecondPrecision)
		if step > length {
			return nil, entity.ErrIntervalTooLarge
		}
		if step <= 0 {
			return nil, entity.ErrIntervalTooSmall
		}
		for t := start + step; t <= limit+timeEpsilon; t += step {
			points = append(points, clampPrecision(t, req.MillisecondPrecision))
		}

	default:
		return nil, fmt.Errorf("schedule request selects no policy")
	}

	for _, m := range req.Manual {
		if m <= 0 || m > length {
			s.logger.Warn("manual timestamp outside stream, skipping", zap.Float64("timestamp", m))
			continue
		}
		points = append(points, clampPrecision(m, req.MillisecondPrecision))
	}

	sort.Float64s(points)
	points = dedupe(points)

	return points, nil
}

const timeEpsilon = 1e-9

// clampPrecision truncates toward zero to the adapter's seek granularity.
func clampPrecision(v float64, milliseconds bool) float64 {
	if milliseconds {
		return math.Trunc(v*1000) / 1000
	}
	return math.Trunc(v)
}

// dedupe removes exact duplicates from a sorted slice. Equality is exact
// because every element already went through clampPrecision.
func dedupe(sorted []float64) []float64 {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
