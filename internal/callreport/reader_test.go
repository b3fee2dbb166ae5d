package callreport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func writeScheduleFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schedule.txt")
	content := ""
	for _, l := range lines {
		content += l + "\r\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadSchedule_Basic(t *testing.T) {
	path := writeScheduleFile(t,
		"\"IDRSSD\"\t\"RCFD2170\"\t\"RCON2200\"",
		"\"Reporting ID\"\t\"Total assets\"\t\"Deposits in domestic offices\"",
		"12345\t1000000\t800000",
		"67890\t\t500000",
	)

	sched, err := ReadSchedule(path, ReaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"IDRSSD", "RCFD2170", "RCON2200"}, sched.Codes)
	assert.Equal(t, "Total assets", sched.Descriptions[1])
	require.Len(t, sched.Records, 2)
	assert.Zero(t, sched.SkippedRows)

	id, ok := sched.Records[0].ID()
	require.True(t, ok)
	assert.Equal(t, int64(12345), id)

	v, ok := sched.Records[0].Float("RCFD2170")
	require.True(t, ok)
	assert.Equal(t, 1_000_000.0, v)

	// Empty cell means the field was not reported, not zero.
	_, ok = sched.Records[1].Float("RCFD2170")
	assert.False(t, ok)
}

func TestReadSchedule_MalformedRowSkipped(t *testing.T) {
	path := writeScheduleFile(t,
		"IDRSSD\tRCFD2170",
		"Reporting ID\tTotal assets",
		"12345\t1000000",
		"67890\t500000\textra-cell",
		"11111\t250000",
	)

	sched, err := ReadSchedule(path, ReaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, sched.SkippedRows)
	require.Len(t, sched.Records, 2)
}

func TestReadSchedule_Windows1252(t *testing.T) {
	// "Coöperative" encoded as windows-1252 bytes.
	name, err := charmap.Windows1252.NewEncoder().String("Coöperative Bank")
	require.NoError(t, err)

	path := writeScheduleFile(t,
		"IDRSSD\tName",
		"Reporting ID\tInstitution name",
		"12345\t"+name,
	)

	sched, err := ReadSchedule(path, ReaderOptions{Encoding: "windows-1252"})
	require.NoError(t, err)
	require.Len(t, sched.Records, 1)
	assert.Equal(t, "Coöperative Bank", sched.Records[0].Str("Name"))
}

func TestReadSchedule_UnsupportedEncoding(t *testing.T) {
	path := writeScheduleFile(t, "IDRSSD", "Reporting ID")
	_, err := ReadSchedule(path, ReaderOptions{Encoding: "ebcdic"})
	assert.Error(t, err)
}

func TestReadSchedule_EmptyFile(t *testing.T) {
	path := writeScheduleFile(t)
	_, err := ReadSchedule(path, ReaderOptions{})
	assert.Error(t, err)
}

func TestRecord_NonNumericValue(t *testing.T) {
	path := writeScheduleFile(t,
		"IDRSSD\tTEXT4087",
		"Reporting ID\tWebsite",
		"12345\thttps://example.bank",
	)

	sched, err := ReadSchedule(path, ReaderOptions{})
	require.NoError(t, err)
	rec := sched.Records[0]

	assert.Equal(t, "https://example.bank", rec.Str("TEXT4087"))
	_, ok := rec.Float("TEXT4087")
	assert.False(t, ok)
}

func TestMergeRecords(t *testing.T) {
	a := Record{
		"RCFD2170": Value{Raw: "100", Num: 100, Numeric: true},
		"RCON2200": Value{Raw: "80", Num: 80, Numeric: true},
	}
	b := Record{
		"RCON2200": Value{Raw: "90", Num: 90, Numeric: true},
		"RCFD1763": Value{Raw: "5", Num: 5, Numeric: true},
	}

	merged := MergeRecords(a, b)

	v, _ := merged.Float("RCFD2170")
	assert.Equal(t, 100.0, v)
	v, _ = merged.Float("RCON2200")
	assert.Equal(t, 90.0, v, "overlay wins on collision")
	v, _ = merged.Float("RCFD1763")
	assert.Equal(t, 5.0, v)

	// Inputs stay untouched.
	v, _ = a.Float("RCON2200")
	assert.Equal(t, 80.0, v)
}
