package callreport

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// ScheduleFiles holds the located schedule file paths for one quarter.
// POR, RC, RCCI and RI are required; the rest are optional.
type ScheduleFiles struct {
	POR  string // roster (institutions on file)
	RC   string // balance sheet
	RCCI string // loan detail (RC-C part I)
	RI   string // income statement
	RCM  string // memoranda (website)
	RCN  string // credit quality
	RIB  string // charge-offs and recoveries
}

// MissingRequired lists the required schedules that have no path set.
func (f ScheduleFiles) MissingRequired() []string {
	var missing []string
	for _, s := range []struct {
		name, path string
	}{
		{"POR", f.POR},
		{"RC", f.RC},
		{"RCCI", f.RCCI},
		{"RI", f.RI},
	} {
		if s.path == "" {
			missing = append(missing, s.name)
		}
	}
	return missing
}

var (
	// FFIEC bulk names look like "FFIEC CDR Call Schedule RC 03312025.txt"
	// or "FFIEC CDR Call Schedule RCCI 03312025(1 of 2).txt".
	scheduleTokenRe = regexp.MustCompile(`(?i)schedule\s+([a-z]+)`)
	porRe           = regexp.MustCompile(`(?i)\bpor\b`)
)

// FindRequiredFiles locates the schedule files inside an already-unpacked
// quarterly bulk directory by filename pattern. Multi-part schedules keep
// the first part found; callers see missing required files through
// MissingRequired.
func FindRequiredFiles(dir string) (ScheduleFiles, error) {
	var files ScheduleFiles

	entries, err := os.ReadDir(dir)
	if err != nil {
		return files, eris.Wrapf(err, "callreport: read directory %s", dir)
	}

	setIfEmpty := func(dst *string, path string) {
		if *dst == "" {
			*dst = path
		}
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())

		if porRe.MatchString(entry.Name()) {
			setIfEmpty(&files.POR, path)
			continue
		}

		m := scheduleTokenRe.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		switch strings.ToUpper(m[1]) {
		case "RC":
			setIfEmpty(&files.RC, path)
		case "RCCI":
			setIfEmpty(&files.RCCI, path)
		case "RI":
			setIfEmpty(&files.RI, path)
		case "RCM":
			setIfEmpty(&files.RCM, path)
		case "RCN":
			setIfEmpty(&files.RCN, path)
		case "RIB":
			setIfEmpty(&files.RIB, path)
		}
	}

	return files, nil
}
