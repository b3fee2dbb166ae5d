// Package callreport ingests quarterly Call Report bulk schedules and
// transforms them into the canonical statement model.
package callreport

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// idField is the entity key column present in every bulk schedule.
const idField = "IDRSSD"

// Value is one raw cell. Numeric cells keep their parsed value; everything
// else stays a string. Empty cells are never stored, so absence from a
// Record means the field was not reported.
type Value struct {
	Raw     string
	Num     float64
	Numeric bool
}

// Record maps field codes to raw values for one entity in one schedule.
type Record map[string]Value

// Str returns the string form of a field, or "" when absent.
func (r Record) Str(code string) string {
	return r[code].Raw
}

// Float returns a field's numeric value and whether it was present and numeric.
func (r Record) Float(code string) (float64, bool) {
	v, ok := r[code]
	if !ok || !v.Numeric {
		return 0, false
	}
	return v.Num, true
}

// ID returns the entity's RSSD id, if the record carries one.
func (r Record) ID() (int64, bool) {
	v, ok := r[idField]
	if !ok || !v.Numeric {
		return 0, false
	}
	return int64(v.Num), true
}

// Schedule is the parsed content of one bulk schedule file: the header code
// row, the human-readable description row, and one record per entity.
type Schedule struct {
	Codes        []string
	Descriptions []string
	Records      []Record
	SkippedRows  int
}

// ReaderOptions configures schedule parsing.
type ReaderOptions struct {
	// Encoding selects the source byte encoding: "" / "utf-8" (default)
	// or "windows-1252" for older extracts.
	Encoding string
}

// ReadSchedule parses a tab-delimited schedule file. Rows that do not match
// the header's column count are skipped and counted, not fatal.
func ReadSchedule(path string, opts ReaderOptions) (*Schedule, error) {
	sched := &Schedule{}
	err := ScanSchedule(path, opts, func(rec Record) error {
		sched.Records = append(sched.Records, rec)
		return nil
	}, sched)
	if err != nil {
		return nil, err
	}
	return sched, nil
}

// ScanSchedule streams a schedule file record by record. The file is read
// in a single forward pass and never buffered whole; filings can run to
// tens of thousands of rows. The header and description rows are written
// into sched as they are seen.
func ScanSchedule(path string, opts ReaderOptions, fn func(Record) error, sched *Schedule) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "callreport: open schedule %s", path)
	}
	defer f.Close() //nolint:errcheck

	var src io.Reader = f
	switch strings.ToLower(opts.Encoding) {
	case "", "utf-8", "utf8":
	case "windows-1252", "cp1252":
		src = transform.NewReader(f, charmap.Windows1252.NewDecoder())
	default:
		return eris.Errorf("callreport: unsupported encoding %q", opts.Encoding)
	}

	scanner := bufio.NewScanner(src)
	// Wide schedules produce very long lines.
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)

	log := zap.L().With(zap.String("schedule", path))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		switch lineNo {
		case 1:
			sched.Codes = splitHeader(line)
			continue
		case 2:
			sched.Descriptions = splitHeader(line)
			continue
		}

		if line == "" {
			continue
		}

		cells := strings.Split(line, "\t")
		if len(cells) != len(sched.Codes) {
			sched.SkippedRows++
			log.Warn("skipping malformed row",
				zap.Int("line", lineNo),
				zap.Int("cells", len(cells)),
				zap.Int("expected", len(sched.Codes)),
			)
			continue
		}

		rec := make(Record, len(cells))
		for i, cell := range cells {
			cell = strings.TrimSpace(trimQuotes(cell))
			if cell == "" {
				continue // missing, not zero
			}
			if n, err := strconv.ParseFloat(cell, 64); err == nil {
				rec[sched.Codes[i]] = Value{Raw: cell, Num: n, Numeric: true}
			} else {
				rec[sched.Codes[i]] = Value{Raw: cell}
			}
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrapf(err, "callreport: read schedule %s", path)
	}
	if len(sched.Codes) == 0 {
		return eris.Errorf("callreport: schedule %s has no header row", path)
	}
	return nil
}

// splitHeader splits a header line on tabs and strips surrounding quotes.
func splitHeader(line string) []string {
	cells := strings.Split(line, "\t")
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = trimQuotes(strings.TrimSpace(c))
	}
	return out
}

// trimQuotes removes surrounding double quotes from a cell.
func trimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// MergeRecords overlays b onto a copy of a. Used to combine the balance
// sheet and loan detail schedules for one entity before transformation.
func MergeRecords(a, b Record) Record {
	merged := make(Record, len(a)+len(b))
	for k, v := range a {
		merged[k] = v
	}
	for k, v := range b {
		merged[k] = v
	}
	return merged
}
