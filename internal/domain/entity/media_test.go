package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasValidDimensions(t *testing.T) {
	cases := []struct {
		w, h int
		want bool
	}{
		{1280, 720, true},
		{0, 720, false},
		{1280, 0, false},
		{0, 0, false},
	}
	for _, tc := range cases {
		r := &MediaRecord{Width: tc.w, Height: tc.h}
		assert.Equal(t, tc.want, r.HasValidDimensions())
	}
}

func TestCodecDisplayNames(t *testing.T) {
	assert.Equal(t, "MPEG-4 AVC", VideoCodecDisplayName("h264"))
	assert.Equal(t, "AC-3", AudioCodecDisplayName("ac3"))
	// Unknown ids keep their raw form.
	assert.Equal(t, "somecodec", VideoCodecDisplayName("somecodec"))
	assert.Equal(t, "0x2000", AudioCodecDisplayName("0x2000"))
}

func TestJobLifecycle(t *testing.T) {
	job := NewJob("u1", "u1/video.mkv", 1024, 3)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.True(t, job.CanRetry())

	job.MarkProcessing()
	assert.Equal(t, 1, job.Attempt)

	job.MarkCompleted("u1/stills.zip", 16, 3600.5, true)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, 16, job.CaptureCount)
	assert.True(t, job.QuirksUsed)
	assert.NotNil(t, job.CompletedAt)

	for i := 0; i < 2; i++ {
		job.MarkProcessing()
	}
	assert.False(t, job.CanRetry())
}
