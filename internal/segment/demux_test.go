package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTsHasKeyFrame_NonTSDataReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ts")
	require.NoError(t, os.WriteFile(path, []byte("not a ts file"), 0o644))

	isKey, err := tsHasKeyFrame(path)
	require.NoError(t, err)
	assert.False(t, isKey)
}

func TestFmp4HasMoov_NonMP4DataReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.m4s")
	require.NoError(t, os.WriteFile(path, []byte("not an mp4 file"), 0o644))

	hasMoov, err := fmp4HasMoov(path)
	if err == nil {
		assert.False(t, hasMoov)
	}
}
