package shocklet

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReaderOptions holds options for delimited row loading.
type ReaderOptions struct {
	// Delimiter is the field separator. Default ','.
	Delimiter rune

	// HasHeader skips the first record.
	HasHeader bool

	// SkipRows is the number of leading records to discard before the
	// header check.
	SkipRows int
}

// DefaultReaderOptions returns comma-separated, headerless defaults.
func DefaultReaderOptions() *ReaderOptions {
	return &ReaderOptions{Delimiter: ','}
}

// ReadRows loads numeric rows from a delimited file: one series per record.
// Empty trailing fields are tolerated, so ragged rows of differing lengths
// parse cleanly.
func ReadRows(path string, opts *ReaderOptions) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRowsFrom(f, opts)
}

// ReadRowsFrom loads numeric rows from an io.Reader.
func ReadRowsFrom(r io.Reader, opts *ReaderOptions) ([][]float64, error) {
	if opts == nil {
		opts = DefaultReaderOptions()
	}
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}

	reader := csv.NewReader(r)
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // rows are independent series; lengths may differ

	for i := 0; i < opts.SkipRows; i++ {
		if _, err := reader.Read(); err != nil {
			return nil, err
		}
	}
	if opts.HasHeader {
		if _, err := reader.Read(); err != nil && err != io.EOF {
			return nil, err
		}
	}

	var rows [][]float64
	line := opts.SkipRows
	if opts.HasHeader {
		line++
	}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		row := make([]float64, 0, len(record))
		for col, field := range record {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", line, col+1, err)
			}
			row = append(row, v)
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}
