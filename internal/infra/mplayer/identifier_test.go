package mplayer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

const sampleIdentify = `MPlayer SVN-r38000 (C) 2000-2019 MPlayer Team
Playing video.avi.
ID_VIDEO_ID=0
ID_AUDIO_ID=1
ID_FILENAME=video.avi
ID_DEMUXER=avi
ID_VIDEO_FORMAT=H264
ID_VIDEO_BITRATE=1538464
ID_VIDEO_WIDTH=1280
ID_VIDEO_HEIGHT=720
ID_VIDEO_FPS=23.976
ID_VIDEO_ASPECT=1.7778
ID_AUDIO_CODEC=aac
ID_AUDIO_FORMAT=255
ID_AUDIO_BITRATE=128000
ID_AUDIO_RATE=48000
ID_AUDIO_NCH=2
ID_LENGTH=1425.37
ID_EXIT=EOF
`

func TestParseIdentify(t *testing.T) {
	rec := parseIdentify([]byte(sampleIdentify), zap.NewNop())

	assert.Equal(t, 1280, rec.Width)
	assert.Equal(t, 720, rec.Height)
	assert.Equal(t, 23.976, rec.FrameRate)
	assert.True(t, rec.HasDuration)
	assert.Equal(t, 1425.37, rec.Duration)
	assert.Equal(t, "h264", rec.VideoCodecID)
	assert.Equal(t, "aac", rec.AudioCodecID)
	assert.Equal(t, "AAC", rec.AudioCodecName)
	assert.Equal(t, 2, rec.AudioChannels)
	assert.Equal(t, "16:9", rec.DisplayAspect)
}

func TestParseIdentifyRawDimensions(t *testing.T) {
	out := "ID_VIDEO_FORMAT=0x10000005\nID_VIDEO_WIDTH=0\nID_VIDEO_HEIGHT=0\nID_LENGTH=60.00\n"
	rec := parseIdentify([]byte(out), zap.NewNop())

	assert.False(t, rec.HasValidDimensions())
	assert.True(t, rec.HasDuration)
	assert.Equal(t, 60.0, rec.Duration)
}

func TestParseIdentifyEmptyOutput(t *testing.T) {
	rec := parseIdentify(nil, zap.NewNop())

	assert.False(t, rec.HasDuration)
	assert.False(t, rec.HasValidDimensions())
}

func TestFormatAspect(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1.7778", "16:9"},
		{"1.3333", "4:3"},
		{"2.35", "2.35:1"},
		{"1.5000", "1.5000"},
		{"0", ""},
		{"junk", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatAspect(tc.in), tc.in)
	}
}
