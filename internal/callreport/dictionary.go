package callreport

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Dictionary maps field codes (prefix + MDRM item) to their published
// descriptions. Used only for diagnostics; imports work without it.
type Dictionary map[string]string

// Describe returns the description for a code, or the code itself when the
// dictionary has no entry for it.
func (d Dictionary) Describe(code string) string {
	if desc, ok := d[code]; ok {
		return desc
	}
	return code
}

// LoadDictionary reads an MDRM data dictionary from the published workbook
// (.xlsx) or a tab-delimited export. Two layouts are accepted: a
// Mnemonic / Item Code / Description sheet, or plain code / description
// pairs in the first two columns.
func LoadDictionary(path string) (Dictionary, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return loadDictionaryXLSX(path)
	}
	return loadDictionaryText(path)
}

func loadDictionaryXLSX(path string) (Dictionary, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "callreport: open dictionary %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("callreport: dictionary %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	var rows [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = strings.TrimSpace(c.String())
		}
		rows = append(rows, cells)
	}
	return dictionaryFromRows(rows)
}

func loadDictionaryText(path string) (Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "callreport: open dictionary %s", path)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var rows [][]string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		cells := strings.Split(line, "\t")
		for i := range cells {
			cells[i] = strings.TrimSpace(trimQuotes(cells[i]))
		}
		rows = append(rows, cells)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "callreport: read dictionary %s", path)
	}
	return dictionaryFromRows(rows)
}

// dictionaryFromRows detects the layout from the header row and builds the
// code -> description map.
func dictionaryFromRows(rows [][]string) (Dictionary, error) {
	if len(rows) < 2 {
		return nil, eris.New("callreport: dictionary has no data rows")
	}

	header := rows[0]
	col := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}

	dict := make(Dictionary, len(rows)-1)

	mnemonic, item, desc := col("Mnemonic"), col("Item Code"), col("Description")
	if mnemonic >= 0 && item >= 0 && desc >= 0 {
		for _, row := range rows[1:] {
			if len(row) <= desc || len(row) <= mnemonic || len(row) <= item {
				continue
			}
			code := strings.ToUpper(row[mnemonic] + row[item])
			if code == "" {
				continue
			}
			dict[code] = row[desc]
		}
		return dict, nil
	}

	// Plain two-column layout.
	for _, row := range rows[1:] {
		if len(row) < 2 || row[0] == "" {
			continue
		}
		dict[strings.ToUpper(row[0])] = row[1]
	}
	return dict, nil
}
