package callreport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDictFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdrm.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDictionary_MnemonicLayout(t *testing.T) {
	path := writeDictFile(t,
		"Mnemonic\tItem Code\tDescription\r\n"+
			"RCFD\t2170\tTotal assets\r\n"+
			"RIAD\t4340\tNet income\r\n")

	dict, err := LoadDictionary(path)
	require.NoError(t, err)

	assert.Equal(t, "Total assets", dict.Describe("RCFD2170"))
	assert.Equal(t, "Net income", dict.Describe("RIAD4340"))
}

func TestLoadDictionary_TwoColumnLayout(t *testing.T) {
	path := writeDictFile(t,
		"Code\tDescription\r\n"+
			"rcon2200\tDeposits in domestic offices\r\n")

	dict, err := LoadDictionary(path)
	require.NoError(t, err)
	assert.Equal(t, "Deposits in domestic offices", dict.Describe("RCON2200"))
}

func TestDictionary_DescribeFallsBackToCode(t *testing.T) {
	dict := Dictionary{"RCFD2170": "Total assets"}
	assert.Equal(t, "RCFDXXXX", dict.Describe("RCFDXXXX"))
}

func TestLoadDictionary_Empty(t *testing.T) {
	path := writeDictFile(t, "Code\tDescription\r\n")
	_, err := LoadDictionary(path)
	assert.Error(t, err)
}

func TestLoadDictionary_MissingFile(t *testing.T) {
	_, err := LoadDictionary(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
