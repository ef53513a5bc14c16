package hierarchy

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/jenkinsci/dynamic-extended-choice-parameter-plugin/internal/source"
)

// ParseTabular reads tab-delimited rows; the first row is the header.
// Double quotes may enclose a cell containing tabs.
func ParseTabular(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = '\t'
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse tab delimited data: %w", err)
	}
	return rows, nil
}

// LoadTabular reads location through reader and parses it
func LoadTabular(ctx context.Context, reader source.Reader, location string) ([][]string, error) {
	data, err := reader.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return ParseTabular(data)
}
