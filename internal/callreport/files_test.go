package callreport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touchFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
}

func TestFindRequiredFiles(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir,
		"FFIEC CDR Call Bulk POR 03312025.txt",
		"FFIEC CDR Call Schedule RC 03312025.txt",
		"FFIEC CDR Call Schedule RCCI 03312025.txt",
		"FFIEC CDR Call Schedule RI 03312025.txt",
		"FFIEC CDR Call Schedule RCM 03312025.txt",
		"FFIEC CDR Call Schedule RCN 03312025.txt",
		"FFIEC CDR Call Schedule RIB 03312025.txt",
		"Readme.pdf",
	)

	files, err := FindRequiredFiles(dir)
	require.NoError(t, err)

	assert.Empty(t, files.MissingRequired())
	assert.Contains(t, files.POR, "POR")
	assert.Contains(t, files.RC, "Schedule RC ")
	assert.Contains(t, files.RCCI, "RCCI")
	assert.Contains(t, files.RI, "Schedule RI ")
	assert.Contains(t, files.RCM, "RCM")
	assert.Contains(t, files.RCN, "RCN")
	assert.Contains(t, files.RIB, "RIB")
}

func TestFindRequiredFiles_MultiPartKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir,
		"FFIEC CDR Call Schedule RCCI 03312025(1 of 2).txt",
		"FFIEC CDR Call Schedule RCCI 03312025(2 of 2).txt",
	)

	files, err := FindRequiredFiles(dir)
	require.NoError(t, err)
	assert.Contains(t, files.RCCI, "(1 of 2)")
}

func TestFindRequiredFiles_Missing(t *testing.T) {
	dir := t.TempDir()
	touchFiles(t, dir,
		"FFIEC CDR Call Bulk POR 03312025.txt",
		"FFIEC CDR Call Schedule RI 03312025.txt",
	)

	files, err := FindRequiredFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"RC", "RCCI"}, files.MissingRequired())
}

func TestFindRequiredFiles_BadDir(t *testing.T) {
	_, err := FindRequiredFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
