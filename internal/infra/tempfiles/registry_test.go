package tempfiles

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTempFileUniquePaths(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		p, err := reg.NewTempFile(".png")
		require.NoError(t, err)
		assert.False(t, seen[p], "duplicate path %s", p)
		seen[p] = true
		assert.FileExists(t, p)
	}
}

func TestDrainRemovesRegisteredFiles(t *testing.T) {
	reg, err := NewRegistry(t.TempDir())
	require.NoError(t, err)

	a, err := reg.NewTempFile(".png")
	require.NoError(t, err)
	b, err := reg.NewTempFile(".zip")
	require.NoError(t, err)

	require.NoError(t, reg.Drain())
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
}

func TestDrainToleratesMovedFiles(t *testing.T) {
	dir := t.TempDir()
	reg, err := NewRegistry(dir)
	require.NoError(t, err)

	p, err := reg.NewTempFile(".png")
	require.NoError(t, err)
	require.NoError(t, os.Remove(p))

	assert.NoError(t, reg.Drain())
}
