package retention

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestNewSweeper(t *testing.T) {
	t.Run("valid spec", func(t *testing.T) {
		s, err := NewSweeper(t.TempDir(), time.Hour, "0 3 * * *", slog.Default())
		require.NoError(t, err)
		assert.False(t, s.NextRun().IsZero())
	})

	t.Run("invalid spec", func(t *testing.T) {
		_, err := NewSweeper(t.TempDir(), time.Hour, "not a cron spec", slog.Default())
		assert.ErrorIs(t, err, ErrInvalidCronSpec)
	})
}

func TestSweep(t *testing.T) {
	t.Run("removes only expired logs", func(t *testing.T) {
		dir := t.TempDir()
		expired := writeAged(t, dir, "build-gcc.1234.log", 48*time.Hour)
		fresh := writeAged(t, dir, "build-glibc.1234.log", time.Minute)
		other := writeAged(t, dir, "notes.txt", 48*time.Hour)

		s, err := NewSweeper(dir, 24*time.Hour, "* * * * *", slog.Default())
		require.NoError(t, err)

		removed, err := s.Sweep()
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		assert.NoFileExists(t, expired)
		assert.FileExists(t, fresh)
		assert.FileExists(t, other)
	})

	t.Run("skips directories", func(t *testing.T) {
		dir := t.TempDir()
		sub := filepath.Join(dir, "old.log")
		require.NoError(t, os.Mkdir(sub, 0o755))
		stamp := time.Now().Add(-48 * time.Hour)
		require.NoError(t, os.Chtimes(sub, stamp, stamp))

		s, err := NewSweeper(dir, 24*time.Hour, "* * * * *", slog.Default())
		require.NoError(t, err)

		removed, err := s.Sweep()
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
		assert.DirExists(t, sub)
	})

	t.Run("missing directory is not an error", func(t *testing.T) {
		s, err := NewSweeper(filepath.Join(t.TempDir(), "absent"), time.Hour, "* * * * *", slog.Default())
		require.NoError(t, err)

		removed, err := s.Sweep()
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
	})
}
