package file

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/bcgov/bc-emli-pin-mgmt-etl/logger"
	"github.com/bcgov/bc-emli-pin-mgmt-etl/record"
	"github.com/pkg/errors"
)

var reGzipExtension = regexp.MustCompile(`^(.*?)(\.*)(?i)(gzip|gz){0,}$`)

// CSVFileOutput writes a header and records to a single CSV file, optionally gzipped.
type CSVFileOutput struct {
	log      logger.Logger
	name     string
	file     *os.File
	gzWriter *gzip.Writer
	fWriter  *bufio.Writer
	w        *csv.Writer
	rows     int
}

// NewCSVFileOutput creates fileName in directory, creating the directory if needed.
// Setting useGzip makes the file name end with ".gz".
func NewCSVFileOutput(log logger.Logger, directory string, fileName string, useGzip bool) (*CSVFileOutput, error) {
	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, errors.Wrapf(err, "error creating directory %q", directory)
	}
	if useGzip {
		fileName = reGzipExtension.ReplaceAllString(fileName, "$1.gz")
	}
	f := &CSVFileOutput{log: log, name: filepath.Join(directory, fileName)}
	var err error
	f.file, err = os.Create(f.name)
	if err != nil {
		return nil, errors.Wrapf(err, "error creating %q", f.name)
	}
	var out io.Writer = f.file
	if useGzip {
		f.gzWriter = gzip.NewWriter(f.file)
		out = f.gzWriter
	}
	f.fWriter = bufio.NewWriter(out)
	f.w = csv.NewWriter(f.fWriter)
	log.Debug("CSVFileOutput file = ", f.name, "; useGzip = ", useGzip)
	return f, nil
}

// Name returns the path of the file.
func (f *CSVFileOutput) Name() string {
	return f.name
}

// Write writes one record.
func (f *CSVFileOutput) Write(record []string) error {
	f.rows++
	return f.w.Write(record)
}

// Close flushes every writer and closes the file.
func (f *CSVFileOutput) Close() error {
	f.w.Flush()
	err := f.w.Error()
	if ferr := f.fWriter.Flush(); err == nil {
		err = ferr
	}
	if f.gzWriter != nil {
		if gerr := f.gzWriter.Close(); err == nil {
			err = gerr
		}
	}
	if cerr := f.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "error writing %q", f.name)
	}
	f.log.Debug("closed ", f.name, " after ", f.rows, " records")
	return nil
}

// WriteTable writes t with a header row to directory/fileName and returns the file path.
// Absent values are written as empty strings.
func WriteTable(log logger.Logger, directory string, fileName string, t *record.Table, useGzip bool) (string, error) {
	f, err := NewCSVFileOutput(log, directory, fileName, useGzip)
	if err != nil {
		return "", err
	}
	if err = f.Write(t.Columns); err != nil {
		_ = f.Close()
		return "", err
	}
	for _, r := range t.StringRows() {
		if err = f.Write(r); err != nil {
			_ = f.Close()
			return "", err
		}
	}
	if err = f.Close(); err != nil {
		return "", err
	}
	log.Info("wrote ", t.Len(), " rows of ", t.Name, " to ", f.Name())
	return f.Name(), nil
}
