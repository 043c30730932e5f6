package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkLiveDir(t *testing.T, root, platform, room, liveID string, age time.Duration) {
	t.Helper()
	dir := filepath.Join(root, platform, room, liveID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "archive.ts"), []byte("x"), 0o644))

	modTime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(dir, modTime, modTime))
}

func TestSweep_RemovesOnlyStaleArchives(t *testing.T) {
	root := t.TempDir()
	mkLiveDir(t, root, "mainstream", "room1", "111", 40*24*time.Hour)
	mkLiveDir(t, root, "mainstream", "room1", "222", 2*24*time.Hour)

	s := New(root, 30, "", nil)
	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = os.Stat(filepath.Join(root, "mainstream", "room1", "111"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(root, "mainstream", "room1", "222"))
	assert.NoError(t, err)
}

func TestSweep_DisabledWhenRetentionDaysZero(t *testing.T) {
	root := t.TempDir()
	mkLiveDir(t, root, "mainstream", "room1", "111", 90*24*time.Hour)

	s := New(root, 0, "", nil)
	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	_, err = os.Stat(filepath.Join(root, "mainstream", "room1", "111"))
	assert.NoError(t, err)
}

func TestSweep_MissingCacheRootIsNotError(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "does-not-exist"), 30, "", nil)
	removed, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestStart_RejectsEmptySchedule(t *testing.T) {
	s := New(t.TempDir(), 30, "", nil)
	err := s.Start(context.Background())
	assert.Error(t, err)
}
