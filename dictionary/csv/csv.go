// Package csv loads the dictionary lookup tables from delimited files.
// Columns are located by header name so the loaders tolerate the extra
// descriptive columns the showcase exports carry.
package csv

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spiros/tofu/dictionary"
)

// header maps lowercased column names to their record positions.
type header map[string]int

func readHeader(r *Reader) (header, error) {
	record, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read header: %w", err)
	}

	h := make(header, len(record))
	for i, name := range record {
		h[strings.ToLower(strings.TrimSpace(name))] = i
	}

	return h, nil
}

func (h header) require(names ...string) error {
	for _, n := range names {
		if _, ok := h[n]; !ok {
			return fmt.Errorf("missing required column %q", n)
		}
	}

	return nil
}

// cell returns the named column of a record, or "" when absent.
func (h header) cell(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}

	return record[i]
}

// intCell parses an integer cell. Blank cells are zero. Some counts are
// exported as floats ("561869.0"), so parse through float64.
func intCell(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return int(f), nil
}

func floatCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	return strconv.ParseFloat(s, 64)
}

// LoadFields reads the fields dictionary into a catalog.
func LoadFields(in io.Reader, sep byte) (*dictionary.Catalog, error) {
	r := NewReader(in, sep)

	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("fields dictionary: %w", err)
	}

	if err := h.require("field_id", "title", "value_type", "encoding_id", "instance_max", "array_max"); err != nil {
		return nil, fmt.Errorf("fields dictionary: %w", err)
	}

	catalog := dictionary.NewCatalog()

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("fields dictionary: %w", err)
		}

		var cellErr error

		num := func(name string) int {
			v, err := intCell(h.cell(record, name))
			if err != nil && cellErr == nil {
				cellErr = fmt.Errorf("fields dictionary: line %d: column %s: %w", r.LineNumber(), name, err)
			}
			return v
		}

		f := &dictionary.Field{
			FieldID:      num("field_id"),
			Title:        h.cell(record, "title"),
			ValueType:    dictionary.ParseValueType(num("value_type")),
			EncodingID:   num("encoding_id"),
			InstanceMax:  num("instance_max"),
			ArrayMax:     num("array_max"),
			Units:        h.cell(record, "units"),
			Notes:        h.cell(record, "notes"),
			Participants: num("num_participants"),
		}

		if cellErr != nil {
			return nil, cellErr
		}

		if err := catalog.Add(f); err != nil {
			return nil, fmt.Errorf("fields dictionary: line %d: %w", r.LineNumber(), err)
		}
	}

	return catalog, nil
}

// LoadEncodings reads the value encodings table.
func LoadEncodings(in io.Reader, sep byte) (*dictionary.Encodings, error) {
	r := NewReader(in, sep)

	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("encodings table: %w", err)
	}

	if err := h.require("encoding_id", "value", "selectable", "meaning"); err != nil {
		return nil, fmt.Errorf("encodings table: %w", err)
	}

	encodings := dictionary.NewEncodings()

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("encodings table: %w", err)
		}

		id, err := intCell(h.cell(record, "encoding_id"))
		if err != nil {
			return nil, fmt.Errorf("encodings table: line %d: column encoding_id: %w", r.LineNumber(), err)
		}

		selectable, err := intCell(h.cell(record, "selectable"))
		if err != nil {
			return nil, fmt.Errorf("encodings table: line %d: column selectable: %w", r.LineNumber(), err)
		}

		encodings.Add(dictionary.EncodingEntry{
			EncodingID: id,
			Value:      strings.TrimSpace(h.cell(record, "value")),
			Selectable: selectable != 0,
			Meaning:    h.cell(record, "meaning"),
		})
	}

	return encodings, nil
}

// LoadStats reads the per-field summary statistics. Rows with blank mean
// and sd are skipped.
func LoadStats(in io.Reader, sep byte) (*dictionary.Stats, error) {
	r := NewReader(in, sep)

	h, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("statistics table: %w", err)
	}

	if err := h.require("field_id", "mean", "sd"); err != nil {
		return nil, fmt.Errorf("statistics table: %w", err)
	}

	stats := dictionary.NewStats()

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("statistics table: %w", err)
		}

		if strings.TrimSpace(h.cell(record, "mean")) == "" && strings.TrimSpace(h.cell(record, "sd")) == "" {
			continue
		}

		id, err := intCell(h.cell(record, "field_id"))
		if err != nil {
			return nil, fmt.Errorf("statistics table: line %d: column field_id: %w", r.LineNumber(), err)
		}

		mean, err := floatCell(h.cell(record, "mean"))
		if err != nil {
			return nil, fmt.Errorf("statistics table: line %d: column mean: %w", r.LineNumber(), err)
		}

		sd, err := floatCell(h.cell(record, "sd"))
		if err != nil {
			return nil, fmt.Errorf("statistics table: line %d: column sd: %w", r.LineNumber(), err)
		}

		stats.Add(id, dictionary.Stat{Mean: mean, SD: sd})
	}

	return stats, nil
}
