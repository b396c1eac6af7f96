// Package tofu generates synthetic UK Biobank baseline data from the
// showcase lookup tables: the fields dictionary drives which columns exist,
// the encodings table drives categorical values, and the summary statistics
// drive numeric distributions.
package tofu

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spiros/tofu/dictionary"
	dictcsv "github.com/spiros/tofu/dictionary/csv"
	"github.com/spiros/tofu/reader"
	"github.com/spiros/tofu/synth"
)

// Default lookup table locations, as shipped with the showcase exports.
const (
	DefaultFieldsPath    = "lookups/df_lkp_fields.tsv.gz"
	DefaultEncodingsPath = "lookups/df_lkp_encodings.csv.gz"
	DefaultStatsPath     = "lookups/df_showcase_desc_stats.csv.gz"
)

// The fields and encodings exports are latin-1; the statistics export is
// plain ASCII.
const lookupCharset = "latin-1"

type Request struct {
	// Lookup table paths.
	FieldsPath    string
	EncodingsPath string
	StatsPath     string

	// Field selection. Nil means every field in the catalog.
	Fields []int

	// Optional file with one field id per line, merged into Fields.
	FieldsFile string

	// Generation parameters.
	N      int
	Jitter int
	Human  bool
	Seed   int64

	// Output file. Empty means a timestamped name in the working
	// directory.
	Out string

	// Target database. When set, the table is loaded into Postgres
	// instead of written to a file.
	Database    string
	Schema      string
	Table       string
	AppendTable bool

	Verbose bool
}

// Generate synthesizes a table per the request and writes it to its
// destination. Validation and assembly failures abort before any output
// is written.
func Generate(r *Request) error {
	if r.N <= 0 {
		return fmt.Errorf("record count must be positive, got %d", r.N)
	}

	if r.Jitter < 0 || r.Jitter >= 100 {
		return fmt.Errorf("%w, got %d", synth.ErrJitterRange, r.Jitter)
	}

	catalog, encodings, stats, err := LoadLookups(r.FieldsPath, r.EncodingsPath, r.StatsPath)
	if err != nil {
		return err
	}

	log.Printf("Loaded %d fields, %d encoding values, %d field statistics",
		catalog.Len(), encodings.Len(), stats.Len())

	var fieldIDs []int
	fieldIDs = append(fieldIDs, r.Fields...)

	if r.FieldsFile != "" {
		ids, err := FieldsFromFile(r.FieldsFile)
		if err != nil {
			return err
		}

		fieldIDs = append(fieldIDs, ids...)
	}

	// An explicit filter that resolves to no ids is a mistake, not a
	// request for the whole catalog.
	if len(fieldIDs) == 0 && (r.Fields != nil || r.FieldsFile != "") {
		if r.FieldsFile != "" {
			return fmt.Errorf("no field ids found in %s", r.FieldsFile)
		}

		return fmt.Errorf("field filter is empty")
	}

	asm := &synth.Assembler{
		Catalog:   catalog,
		Encodings: encodings,
		Stats:     stats,
		Human:     r.Human,
		Jitter:    r.Jitter,
		Seed:      r.Seed,
	}

	if r.Verbose {
		asm.Logf = log.Printf
	}

	t, err := asm.Assemble(fieldIDs, r.N)
	if err != nil {
		return fmt.Errorf("cannot assemble table: %w", err)
	}

	if r.Database != "" {
		return loadTable(r, t)
	}

	out := r.Out
	if out == "" {
		out = OutputFilename()
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("cannot create output: %w", err)
	}

	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("cannot write output: %w", err)
	}

	if err := f.Close(); err != nil {
		return err
	}

	log.Printf("Wrote %d records, %d columns to %s", t.Len(), len(t.Columns), out)

	return nil
}

// LoadLookups reads the three lookup tables into their in-memory forms.
func LoadLookups(fieldsPath, encodingsPath, statsPath string) (*dictionary.Catalog, *dictionary.Encodings, *dictionary.Stats, error) {
	in, sep, err := openLookup(fieldsPath, lookupCharset)
	if err != nil {
		return nil, nil, nil, err
	}

	catalog, err := dictcsv.LoadFields(in, sep)
	in.Close()
	if err != nil {
		return nil, nil, nil, err
	}

	in, sep, err = openLookup(encodingsPath, lookupCharset)
	if err != nil {
		return nil, nil, nil, err
	}

	encodings, err := dictcsv.LoadEncodings(in, sep)
	in.Close()
	if err != nil {
		return nil, nil, nil, err
	}

	in, sep, err = openLookup(statsPath, "")
	if err != nil {
		return nil, nil, nil, err
	}

	stats, err := dictcsv.LoadStats(in, sep)
	in.Close()
	if err != nil {
		return nil, nil, nil, err
	}

	return catalog, encodings, stats, nil
}

func openLookup(path, charset string) (*reader.Reader, byte, error) {
	format, compression := reader.DetectType(path)

	in, err := reader.Open(path, compression, charset)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot open %s: %w", path, err)
	}

	return in, reader.Separator(format), nil
}

// FieldsFromFile reads field ids from a text file, one per line. Blank
// lines and lines starting with # are skipped.
func FieldsFromFile(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open field list: %w", err)
	}
	defer f.Close()

	var ids []int

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("invalid field id %q in %s", line, path)
		}

		ids = append(ids, id)
	}

	return ids, sc.Err()
}

// OutputFilename returns the timestamped default output name.
func OutputFilename() string {
	return fmt.Sprintf("synthetic-%s.csv", time.Now().Format("20060102150405"))
}
