package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRational(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30000/1001", 30000.0 / 1001},
		{"25/1", 25},
		{"24", 24},
		{"0/0", 0},
		{"", 0},
		{"N/A", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseRational(tc.in), tc.in)
	}
}
