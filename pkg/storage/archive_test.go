package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestArchiveSaveAndOpen(t *testing.T) {
	archive, err := NewArchive(t.TempDir())
	require.NoError(t, err)

	name, err := archive.Save("risk-list/t-1.csv", []byte("Student,Grade\n"))
	require.NoError(t, err)
	require.Equal(t, "risk-list/t-1.csv", name)

	file, err := archive.Open(name)
	require.NoError(t, err)
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "Student,Grade\n", string(data))
}

func TestArchiveCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	archive, err := NewArchive(dir)
	require.NoError(t, err)

	_, err = archive.Save("old.csv", []byte("old"))
	require.NoError(t, err)
	_, err = archive.Save("fresh.csv", []byte("fresh"))
	require.NoError(t, err)

	stale := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "old.csv"), stale, stale))

	deleted, err := archive.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	require.Equal(t, []string{"old.csv"}, deleted)

	_, err = os.Stat(filepath.Join(dir, "fresh.csv"))
	require.NoError(t, err)
}
