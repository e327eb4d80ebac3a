package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, make([]byte, 2048), 0o644))

	f, err := OpenLogFile(path)
	require.NoError(t, err)
	assert.Equal(t, "app.log", f.Name)
	assert.Equal(t, int64(2048), f.Size)
	assert.Equal(t, "2.0 KB", f.SizeLabel())
	assert.Equal(t, SourceFile, f.source())

	rc, err := f.open()
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	_, err = OpenLogFile(dir)
	assert.Error(t, err)
	_, err = OpenLogFile(filepath.Join(dir, "missing.log"))
	assert.Error(t, err)
}

func TestSizeLabelRounding(t *testing.T) {
	assert.Equal(t, "0.0 KB", LogFile{Size: 0}.SizeLabel())
	assert.Equal(t, "1.5 KB", LogFile{Size: 1536}.SizeLabel())
	assert.Equal(t, "0.5 KB", LogFile{Size: 512}.SizeLabel())
}
