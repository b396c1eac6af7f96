// Package dictionary holds the read-only lookup tables that drive synthetic
// data generation: the fields dictionary, the value encodings, and the
// per-field summary statistics. All three are loaded once at startup and
// passed into the generator explicitly.
package dictionary

import "fmt"

// Field is a single entry of the fields dictionary.
type Field struct {
	// Stable identifier, unique across the catalog.
	FieldID int `json:"field_id"`

	// Human readable title of the field.
	Title string `json:"title"`

	// Declared type of the field's values.
	ValueType ValueType `json:"value_type"`

	// Identifier of the value encoding, 0 if the field is not encoded.
	EncodingID int `json:"encoding_id"`

	// Number of collection instances. 0 means the field was collected once.
	InstanceMax int `json:"instance_max"`

	// Number of array positions per instance. 0 means a single value.
	ArrayMax int `json:"array_max"`

	// Descriptive attributes carried through for reporting.
	Units        string `json:"units,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Participants int    `json:"num_participants,omitempty"`
}

// Catalog is the fields dictionary keyed by field id, preserving the
// order fields appear in the source table.
type Catalog struct {
	fields map[int]*Field
	order  []int
}

func NewCatalog() *Catalog {
	return &Catalog{
		fields: make(map[int]*Field),
	}
}

// Add registers a field. Field ids must be unique.
func (c *Catalog) Add(f *Field) error {
	if _, ok := c.fields[f.FieldID]; ok {
		return fmt.Errorf("duplicate field id %d in catalog", f.FieldID)
	}

	c.fields[f.FieldID] = f
	c.order = append(c.order, f.FieldID)

	return nil
}

// Field returns the metadata for a field id.
func (c *Catalog) Field(id int) (*Field, bool) {
	f, ok := c.fields[id]
	return f, ok
}

// FieldIDs returns all field ids in catalog order.
func (c *Catalog) FieldIDs() []int {
	ids := make([]int, len(c.order))
	copy(ids, c.order)
	return ids
}

func (c *Catalog) Len() int {
	return len(c.order)
}

// EncodingEntry maps one raw code of an encoding to its meaning.
// (encoding_id, value) pairs are not guaranteed unique; decoding takes
// the first selectable match.
type EncodingEntry struct {
	EncodingID int    `json:"encoding_id"`
	Value      string `json:"value"`
	Selectable bool   `json:"selectable"`
	Meaning    string `json:"meaning"`
}

// Encodings is the value-encoding table grouped by encoding id.
type Encodings struct {
	entries map[int][]EncodingEntry
}

func NewEncodings() *Encodings {
	return &Encodings{
		entries: make(map[int][]EncodingEntry),
	}
}

func (e *Encodings) Add(entry EncodingEntry) {
	e.entries[entry.EncodingID] = append(e.entries[entry.EncodingID], entry)
}

// SelectableValues returns the raw codes eligible for sampling under an
// encoding, in table order. Non-selectable entries (administrative codes)
// are excluded.
func (e *Encodings) SelectableValues(id int) []string {
	var values []string

	for _, entry := range e.entries[id] {
		if entry.Selectable {
			values = append(values, entry.Value)
		}
	}

	return values
}

// Decode returns the meaning of the first selectable entry matching the
// value under an encoding. The value itself is returned when no entry
// matches.
func (e *Encodings) Decode(id int, value string) (string, bool) {
	for _, entry := range e.entries[id] {
		if entry.Selectable && entry.Value == value {
			return entry.Meaning, true
		}
	}

	return value, false
}

// Len returns the total number of entries across all encodings.
func (e *Encodings) Len() int {
	var n int
	for _, entries := range e.entries {
		n += len(entries)
	}
	return n
}

// Stat is the population summary of a numeric field.
type Stat struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// Stats is the per-field summary statistics table.
type Stats struct {
	byField map[int]Stat
}

func NewStats() *Stats {
	return &Stats{
		byField: make(map[int]Stat),
	}
}

func (s *Stats) Add(fieldID int, st Stat) {
	s.byField[fieldID] = st
}

// Lookup returns the summary statistics for a field id, if known.
func (s *Stats) Lookup(fieldID int) (Stat, bool) {
	st, ok := s.byField[fieldID]
	return st, ok
}

func (s *Stats) Len() int {
	return len(s.byField)
}
