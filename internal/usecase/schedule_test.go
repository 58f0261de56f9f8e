package usecase

import (
	"testing"

	"github.com/likevi9528/vcs-capture-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testScheduler() *Scheduler { return NewScheduler(zap.NewNop()) }

func TestScheduleFixedIntervalWithDefaultPercentOffset(t *testing.T) {
	// 600s stream, default 5% end offset (=30s), 100s interval: the usable
	// end is 570, so 500 is the last accepted point.
	offset, err := ParseEndOffset("5%", false)
	require.NoError(t, err)

	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             600,
		From:                 0,
		To:                   -1,
		EndOffset:            offset,
		Interval:             100,
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 300, 400, 500}, points)
}

func TestScheduleFixedCountOfOne(t *testing.T) {
	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             100,
		Count:                1,
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 50.0, points[0])
}

func TestScheduleFixedCount(t *testing.T) {
	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             100,
		Count:                4,
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{25, 50, 75, 100}, points)
}

func TestScheduleFixedCountNeverExceedsCount(t *testing.T) {
	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             10,
		Count:                3,
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	assert.Len(t, points, 3)
}

func TestScheduleExplicitOffsetTooLarge(t *testing.T) {
	offset, err := ParseEndOffset("90", true)
	require.NoError(t, err)

	_, err = testScheduler().Build(ScheduleRequest{
		Duration:             60,
		EndOffset:            offset,
		Interval:             10,
		MillisecondPrecision: true,
	})
	assert.ErrorIs(t, err, entity.ErrOffsetTooLarge)
}

func TestScheduleDefaultOffsetTooLargeIsIgnored(t *testing.T) {
	offset, err := ParseEndOffset("90", false)
	require.NoError(t, err)

	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             60,
		EndOffset:            offset,
		Interval:             20,
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	// The oversized default is dropped with a warning, not an error.
	assert.Equal(t, []float64{20, 40, 60}, points)
}

func TestScheduleExplicitToDisablesOffset(t *testing.T) {
	offset, err := ParseEndOffset("5%", false)
	require.NoError(t, err)

	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             600,
		To:                   300,
		EndOffset:            offset,
		Interval:             100,
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 200, 300}, points)
}

func TestScheduleIntervalTooLarge(t *testing.T) {
	_, err := testScheduler().Build(ScheduleRequest{
		Duration:             60,
		Interval:             120,
		MillisecondPrecision: true,
	})
	assert.ErrorIs(t, err, entity.ErrIntervalTooLarge)
}

func TestScheduleIntervalTooSmallAtWholeSecondPrecision(t *testing.T) {
	_, err := testScheduler().Build(ScheduleRequest{
		Duration:             60,
		Interval:             0.4,
		MillisecondPrecision: false,
	})
	assert.ErrorIs(t, err, entity.ErrIntervalTooSmall)
}

func TestScheduleWholeSecondClamping(t *testing.T) {
	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             10,
		Interval:             2.7,
		MillisecondPrecision: false,
	})
	require.NoError(t, err)
	// The step clamps to 2s and every point is a whole second.
	assert.Equal(t, []float64{2, 4, 6, 8, 10}, points)
}

func TestScheduleFromBound(t *testing.T) {
	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             100,
		From:                 40,
		Interval:             20,
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []float64{60, 80, 100}, points)
}

func TestScheduleManualTimestampsUnionedAndDeduped(t *testing.T) {
	points, err := testScheduler().Build(ScheduleRequest{
		Duration:             100,
		Interval:             50,
		Manual:               []float64{50, 42.123, 650, -3},
		MillisecondPrecision: true,
	})
	require.NoError(t, err)
	// 50 collapses with the generated point; out-of-range entries are
	// dropped.
	assert.Equal(t, []float64{42.123, 50, 100}, points)
}

func TestScheduleNoPolicyFails(t *testing.T) {
	_, err := testScheduler().Build(ScheduleRequest{Duration: 100})
	assert.Error(t, err)
}

func TestParseEndOffset(t *testing.T) {
	cases := []struct {
		in      string
		value   float64
		percent bool
		wantErr bool
	}{
		{"", 0, false, false},
		{"30", 30, false, false},
		{"12.5", 12.5, false, false},
		{"5%", 5, true, false},
		{"-4", 0, false, true},
		{"abc", 0, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			off, err := ParseEndOffset(tc.in, true)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.value, off.Value)
			assert.Equal(t, tc.percent, off.Percent)
		})
	}
}
