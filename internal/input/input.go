package input

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

const bom = "\ufeff"

// ParseList splits a literal list on commas and newlines.
// Entries are trimmed and blanks dropped; order and duplicates are kept.
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ReadLines reads one name per line. Lines are trimmed; blank lines and
// lines starting with # are skipped.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, bom)
			first = false
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read lines: %w", err)
	}
	return out, nil
}

// Columns returns the header row of a CSV stream.
func Columns(r io.Reader) ([]string, error) {
	return readHeader(newCSVReader(r))
}

func readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv has no header row", domain.ErrConfiguration)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", domain.ErrConfiguration, err)
	}
	return cleanHeader(header), nil
}

// ReadColumn returns the non-empty values of column in row order.
// The column is matched case-insensitively against the header row; a
// missing column is a configuration error listing the available ones.
func ReadColumn(r io.Reader, column string) ([]string, error) {
	reader := newCSVReader(r)

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, h := range header {
		if strings.EqualFold(h, strings.TrimSpace(column)) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: column %q not found (available: %s)",
			domain.ErrConfiguration, column, strings.Join(header, ", "))
	}

	var out []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", domain.ErrConfiguration, err)
		}
		if idx >= len(record) {
			continue
		}
		if v := strings.TrimSpace(record[idx]); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// ReadFile reads names from path. Files ending in .csv are read by column;
// anything else is read line by line. An empty result is a configuration error.
func ReadFile(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrConfiguration, path, err)
	}
	defer f.Close()

	var names []string
	if IsCSV(path) {
		if column == "" {
			column = domain.DefaultWatchColumn
		}
		names, err = ReadColumn(f, column)
	} else {
		names, err = ReadLines(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s contains no device names", domain.ErrConfiguration, filepath.Base(path))
	}
	return names, nil
}

// IsCSV reports whether path names a CSV file.
func IsCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

// IsText reports whether path names a line-delimited text file.
func IsText(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".txt")
}

func newCSVReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, bom)
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}
