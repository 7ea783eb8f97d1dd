package tables

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag used to map header-named columns to fields.
const TagName = "csv"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header-named CSV file held in memory, rows in file order.
type Table struct {
	Path    string
	Headers []string
	Rows    []map[string]string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Require returns an error when one of the columns is missing.
func (t *Table) Require(columns ...string) error {
	present := make(map[string]struct{}, len(t.Headers))
	for _, h := range t.Headers {
		present[h] = struct{}{}
	}

	var missing []string
	for _, c := range columns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s: missing columns: %s", t.Path, strings.Join(missing, ", "))
	}

	return nil
}

// Decode converts rows into a slice of structs tagged with `csv:"column"`.
// Values are weakly typed, so "12" decodes into an int field.
func (t *Table) Decode(target any) error {
	cfg := &mapstructure.DecoderConfig{
		Result:           target,
		TagName:          TagName,
		WeaklyTypedInput: true,
	}

	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	if err := decoder.Decode(t.Rows); err != nil {
		return fmt.Errorf("%s: decoding rows: %w", t.Path, err)
	}

	return nil
}

// ReadFile loads a CSV file with a header line.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	table, err := Read(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table.Path = path

	return table, nil
}

// Read parses CSV with a header line from r.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty table: header line is required")
	}
	if err != nil {
		return nil, err
	}

	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	table := &Table{Headers: headers}
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		row := make(map[string]string, len(headers))
		for i, h := range headers {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// WriteFile writes headers and records to path, replacing the file.
func WriteFile(path string, headers []string, records [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := Write(file, headers, records); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	return file.Close()
}

// Write writes a header line followed by records.
func Write(w io.Writer, headers []string, records [][]string) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(headers); err != nil {
		return err
	}

	if err := writer.WriteAll(records); err != nil {
		return err
	}

	return writer.Error()
}
