package ffmpeg

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateZipBundlesStillsInNameOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"still_0000200.000.png", "still_0000100.000.png"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("fakepng"), 0o644))
		paths = append(paths, p)
	}

	out := filepath.Join(dir, "stills.zip")
	require.NoError(t, NewZipCreator().CreateZip(context.Background(), paths, out))

	r, err := zip.OpenReader(out)
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.File, 2)
	assert.Equal(t, "still_0000100.000.png", r.File[0].Name)
	assert.Equal(t, "still_0000200.000.png", r.File[1].Name)
}

func TestCreateZipRejectsEmptyStill(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "still_0000000.000.png")
	require.NoError(t, os.WriteFile(p, nil, 0o644))

	err := NewZipCreator().CreateZip(context.Background(), []string{p}, filepath.Join(dir, "out.zip"))
	assert.Error(t, err)
}
