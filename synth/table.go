package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/spiros/tofu/dictionary"
)

// IDColumn is the name of the synthetic record identifier column.
const IDColumn = "eid"

// Column is one synthesized slice of a field: the values for a single
// (instance, array) position across all records.
type Column struct {
	Name   string
	Type   dictionary.ValueType
	Values []string
}

// Table is the assembled wide table: the identifier column plus one column
// per (field, instance, array) slice, in field-processing order.
type Table struct {
	IDs     []string
	Columns []Column
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.IDs)
}

// Header returns all column names, identifier first.
func (t *Table) Header() []string {
	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, IDColumn)

	for _, c := range t.Columns {
		header = append(header, c.Name)
	}

	return header
}

// WriteCSV serializes the table.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Header()); err != nil {
		return err
	}

	row := make([]string, len(t.Columns)+1)

	for i, id := range t.IDs {
		row[0] = id

		for j, c := range t.Columns {
			row[j+1] = c.Values[i]
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

// FakeIDs generates the sequential record identifiers fake1..fakeN.
func FakeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "fake" + strconv.Itoa(i+1)
	}

	return ids
}

// ColumnName derives the column name of a field slice: the canonical
// "{field_id}-{instance}.{array}" form, or the title-based form when human
// readable naming is requested.
func ColumnName(f *dictionary.Field, instance, array int, human bool) string {
	if human {
		return fmt.Sprintf("%s-%d.%d", f.Title, instance, array)
	}

	return fmt.Sprintf("%d-%d.%d", f.FieldID, instance, array)
}

// Assembler expands fields into synthesized columns and merges them into
// one table. The lookup tables are read-only; fields are processed as
// independent tasks, each slice with a random stream derived from the base
// seed, so results do not depend on scheduling order.
type Assembler struct {
	Catalog   *dictionary.Catalog
	Encodings *dictionary.Encodings
	Stats     *dictionary.Stats

	// Human switches on value decoding and title-based column names.
	Human bool

	// Jitter is the percentage of values to replace with the missing
	// marker, in [0, 100).
	Jitter int

	// Seed is the base of every per-slice random stream.
	Seed int64

	// Logf, when set, logs each field as it is processed.
	Logf func(format string, args ...interface{})
}

// Assemble builds the table for the requested field ids, or for the whole
// catalog when fieldIDs is nil. Any failure aborts the run; a partial table
// is never returned.
func (a *Assembler) Assemble(fieldIDs []int, n int) (*Table, error) {
	if n <= 0 {
		return nil, fmt.Errorf("record count must be positive, got %d", n)
	}

	if a.Jitter < 0 || a.Jitter >= 100 {
		return nil, fmt.Errorf("%w, got %d", ErrJitterRange, a.Jitter)
	}

	if fieldIDs == nil {
		fieldIDs = a.Catalog.FieldIDs()
	}

	// Resolve all metadata up front so unknown ids fail before any
	// synthesis work begins.
	fields := make([]*dictionary.Field, len(fieldIDs))
	for i, id := range fieldIDs {
		f, ok := a.Catalog.Field(id)
		if !ok {
			return nil, fmt.Errorf("field %d: %w", id, ErrUnknownField)
		}

		fields[i] = f
	}

	groups := make([][]Column, len(fields))

	var g errgroup.Group

	for i, f := range fields {
		i, f := i, f

		g.Go(func() error {
			if a.Logf != nil {
				a.Logf("field %d (%s): type %s, %d instance(s), %d array position(s)",
					f.FieldID, f.Title, f.ValueType, max(f.InstanceMax, 1), max(f.ArrayMax, 1))
			}

			cols, err := a.expand(f, n)
			if err != nil {
				return err
			}

			groups[i] = cols

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	t := &Table{IDs: FakeIDs(n)}
	for _, cols := range groups {
		t.Columns = append(t.Columns, cols...)
	}

	return t, nil
}

// expand synthesizes every (instance, array) slice of one field.
func (a *Assembler) expand(f *dictionary.Field, n int) ([]Column, error) {
	instances := max(f.InstanceMax, 1)
	arrays := max(f.ArrayMax, 1)

	cols := make([]Column, 0, instances*arrays)

	for i := 0; i < instances; i++ {
		for x := 0; x < arrays; x++ {
			s := NewSynthesizer(a.Encodings, a.Stats, sliceSeed(a.Seed, f.FieldID, i, x))

			values, err := s.Synthesize(f, n)
			if err != nil {
				return nil, err
			}

			if a.Human {
				values = Decode(values, f, a.Encodings)
			}

			if a.Jitter > 0 {
				values = InsertMissingness(s.rng, values, a.Jitter)
			}

			cols = append(cols, Column{
				Name:   ColumnName(f, i, x, a.Human),
				Type:   f.ValueType,
				Values: values,
			})
		}
	}

	return cols, nil
}

// sliceSeed mixes the run seed with a slice's coordinates so every slice
// gets its own reproducible random stream.
func sliceSeed(seed int64, fieldID, instance, array int) int64 {
	const prime = 1099511628211

	s := seed
	s = s*prime + int64(fieldID)
	s = s*prime + int64(instance)
	s = s*prime + int64(array)

	return s
}
