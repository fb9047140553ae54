package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// nullSentinels are the values the registry (and spreadsheet exports of it) use for a missing value.
var nullSentinels = map[string]struct{}{
	"NULL": {}, "null": {}, "NaN": {}, "nan": {}, "N/A": {}, "n/a": {}, "#N/A": {}, "<NA>": {},
}

// Normalise trims s and returns "" for empty strings and null sentinels.
func Normalise(s string) string {
	s = strings.TrimSpace(s)
	if _, ok := nullSentinels[s]; ok {
		return ""
	}
	return s
}

// MissingColumnError is returned when an extract file lacks required columns.
type MissingColumnError struct {
	File    string
	Columns []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("file %q is missing required column(s): %v", filepath.Base(e.File), strings.Join(e.Columns, ", "))
}

// csvFile reads a CSV with a header row and gives access to the required columns by name.
type csvFile struct {
	path   string
	r      *csv.Reader
	closer io.Closer
	index  map[string]int
	line   int
}

func openCsvFile(path string, required []string) (*csvFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %q", path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // rows are checked against the required columns instead.
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		_ = f.Close()
		if err == io.EOF {
			return nil, &MissingColumnError{File: path, Columns: required}
		}
		return nil, errors.Wrapf(err, "error reading header of %q", path)
	}
	c := &csvFile{path: path, r: r, closer: f, index: make(map[string]int, len(header)), line: 1}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff") // strip a UTF-8 BOM.
		}
		c.index[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	var missing []string
	for _, col := range required {
		if _, ok := c.index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		_ = f.Close()
		sort.Strings(missing)
		return nil, &MissingColumnError{File: path, Columns: missing}
	}
	return c, nil
}

// next returns a function to fetch normalised values of the current row by column name, or io.EOF.
func (c *csvFile) next() (func(col string) string, error) {
	rec, err := c.r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrapf(err, "error reading %q", filepath.Base(c.path))
	}
	c.line++
	return func(col string) string {
		idx := c.index[col]
		if idx >= len(rec) { // short rows are padded with absent values.
			return ""
		}
		return Normalise(rec[idx])
	}, nil
}

// pid converts a parcel identifier to an integer.
func (c *csvFile) pid(v string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("file %q line %v: %v %q is not an integer", filepath.Base(c.path), c.line, ColPid, v)
	}
	return n, nil
}

func (c *csvFile) close() {
	_ = c.closer.Close()
}
