package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogWriterFlushInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.log")

	lw, err := NewLogWriter(path, false, 2)
	require.NoError(t, err)

	require.NoError(t, lw.WriteLine("first"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Empty(t, raw, "line written before the flush interval elapsed")

	require.NoError(t, lw.WriteLine("second"))
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first\nsecond\n", string(raw))

	require.NoError(t, lw.Close())
}

func TestLogWriterCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.log")

	lw, err := NewLogWriter(path, true, 1)
	require.NoError(t, err)
	require.NoError(t, lw.WriteLine("03/22/14,17:15:04,424.687500"))
	require.NoError(t, lw.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "03/22/14,17:15:04,424.687500\r\n", string(raw))
}

func TestLogWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0644))

	lw, err := NewLogWriter(path, false, 1)
	require.NoError(t, err)
	require.NoError(t, lw.WriteLine("new"))
	require.NoError(t, lw.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "existing\nnew\n", string(raw))
}

func TestLogWriterUnopenablePath(t *testing.T) {
	_, err := NewLogWriter(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), false, 1)
	require.Error(t, err)
}
