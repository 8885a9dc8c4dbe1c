package writer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriterWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.ibd")
	fw := &FileWriter{Path: path}

	require.NoError(t, fw.WriteFile([]byte("first")))
	require.NoError(t, fw.WriteFile([]byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBackupCopiesOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.ibd")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	require.NoError(t, Backup(path))

	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), bak)
}

func TestBackupMissingSource(t *testing.T) {
	assert.Error(t, Backup(filepath.Join(t.TempDir(), "absent")))
}

func TestMemWriterCopies(t *testing.T) {
	var mw MemWriter
	src := []byte{1, 2, 3}
	require.NoError(t, mw.WriteFile(src))
	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, mw.Buf)
}
