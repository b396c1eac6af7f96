package tofu

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spiros/tofu/dictionary"
)

func TestFieldsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.txt")

	content := "31\n34\n\n# commented out\n21000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ids, err := FieldsFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{31, 34, 21000}, ids)
}

func TestFieldsFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.txt")
	require.NoError(t, os.WriteFile(path, []byte("31\nnotanid\n"), 0644))

	_, err := FieldsFromFile(path)
	assert.Error(t, err)
}

func TestFieldsFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fields.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing selected\n\n"), 0644))

	ids, err := FieldsFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestOutputFilename(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^synthetic-\d{14}\.csv$`), OutputFilename())
}

// gzWrite writes a gzipped lookup fixture.
func gzWrite(t *testing.T, path, content string) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestLoadLookups(t *testing.T) {
	dir := t.TempDir()

	fieldsPath := filepath.Join(dir, "fields.tsv.gz")
	encodingsPath := filepath.Join(dir, "encodings.csv.gz")
	statsPath := filepath.Join(dir, "stats.csv.gz")

	gzWrite(t, fieldsPath,
		"field_id\ttitle\tvalue_type\tencoding_id\tinstance_max\tarray_max\n"+
			"21022\tAge at recruitment\t11\t0\t0\t0\n"+
			"20002\tNon-cancer illness code, self-reported\t22\t6\t3\t33\n")

	// Meaning with a latin-1 byte exercises the charset decoding path.
	gzWrite(t, encodingsPath,
		"encoding_id,value,selectable,meaning\n"+
			"6,1545,1,neck problem/injury\n"+
			"6,1546,1,caf\xe9 coronary\n")

	gzWrite(t, statsPath, "field_id,mean,sd\n21022,55.05,8.1\n")

	catalog, encodings, stats, err := LoadLookups(fieldsPath, encodingsPath, statsPath)
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.Len())

	f, ok := catalog.Field(20002)
	require.True(t, ok)
	assert.Equal(t, dictionary.CategoricalMultipleType, f.ValueType)

	m, ok := encodings.Decode(6, "1546")
	assert.True(t, ok)
	assert.Equal(t, "café coronary", m)

	st, ok := stats.Lookup(21022)
	require.True(t, ok)
	assert.InDelta(t, 8.1, st.SD, 1e-9)
}

func TestGenerateWritesFile(t *testing.T) {
	dir := t.TempDir()

	gzWrite(t, filepath.Join(dir, "fields.tsv.gz"),
		"field_id\ttitle\tvalue_type\tencoding_id\tinstance_max\tarray_max\n"+
			"31\tSex\t21\t9\t0\t0\n")
	gzWrite(t, filepath.Join(dir, "encodings.csv.gz"),
		"encoding_id,value,selectable,meaning\n9,0,1,Female\n9,1,1,Male\n")
	gzWrite(t, filepath.Join(dir, "stats.csv.gz"), "field_id,mean,sd\n")

	out := filepath.Join(dir, "out.csv")

	r := &Request{
		FieldsPath:    filepath.Join(dir, "fields.tsv.gz"),
		EncodingsPath: filepath.Join(dir, "encodings.csv.gz"),
		StatsPath:     filepath.Join(dir, "stats.csv.gz"),
		N:             25,
		Seed:          1,
		Out:           out,
	}

	require.NoError(t, Generate(r))

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "eid,31-0.0\n")
	assert.Contains(t, string(b), "fake25")
}

func TestGenerateUnknownFieldWritesNothing(t *testing.T) {
	dir := t.TempDir()

	gzWrite(t, filepath.Join(dir, "fields.tsv.gz"),
		"field_id\ttitle\tvalue_type\tencoding_id\tinstance_max\tarray_max\n"+
			"31\tSex\t21\t9\t0\t0\n")
	gzWrite(t, filepath.Join(dir, "encodings.csv.gz"),
		"encoding_id,value,selectable,meaning\n9,0,1,Female\n")
	gzWrite(t, filepath.Join(dir, "stats.csv.gz"), "field_id,mean,sd\n")

	out := filepath.Join(dir, "out.csv")

	r := &Request{
		FieldsPath:    filepath.Join(dir, "fields.tsv.gz"),
		EncodingsPath: filepath.Join(dir, "encodings.csv.gz"),
		StatsPath:     filepath.Join(dir, "stats.csv.gz"),
		Fields:        []int{999999},
		N:             10,
		Seed:          1,
		Out:           out,
	}

	require.Error(t, Generate(r))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "output written despite failed run")
}

// testLookupPaths writes a small set of lookup fixtures and returns their
// paths.
func testLookupPaths(t *testing.T) (string, string, string) {
	t.Helper()

	dir := t.TempDir()

	fieldsPath := filepath.Join(dir, "fields.tsv.gz")
	encodingsPath := filepath.Join(dir, "encodings.csv.gz")
	statsPath := filepath.Join(dir, "stats.csv.gz")

	gzWrite(t, fieldsPath,
		"field_id\ttitle\tvalue_type\tencoding_id\tinstance_max\tarray_max\n"+
			"31\tSex\t21\t9\t0\t0\n"+
			"21022\tAge at recruitment\t11\t0\t0\t0\n")
	gzWrite(t, encodingsPath,
		"encoding_id,value,selectable,meaning\n9,0,1,Female\n9,1,1,Male\n")
	gzWrite(t, statsPath, "field_id,mean,sd\n21022,55.05,8.1\n")

	return fieldsPath, encodingsPath, statsPath
}

func TestGenerateEmptyFieldsFileRejected(t *testing.T) {
	fieldsPath, encodingsPath, statsPath := testLookupPaths(t)

	dir := t.TempDir()

	listPath := filepath.Join(dir, "fields.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("# nothing selected\n"), 0644))

	out := filepath.Join(dir, "out.csv")

	r := &Request{
		FieldsPath:    fieldsPath,
		EncodingsPath: encodingsPath,
		StatsPath:     statsPath,
		FieldsFile:    listPath,
		N:             10,
		Seed:          1,
		Out:           out,
	}

	// An empty explicit selection must not expand to the whole catalog.
	err := Generate(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), listPath)

	_, err = os.Stat(out)
	assert.True(t, os.IsNotExist(err), "output written despite failed run")
}

func TestGenerateEmptyFieldFilterRejected(t *testing.T) {
	fieldsPath, encodingsPath, statsPath := testLookupPaths(t)

	r := &Request{
		FieldsPath:    fieldsPath,
		EncodingsPath: encodingsPath,
		StatsPath:     statsPath,
		Fields:        []int{},
		N:             10,
		Seed:          1,
		Out:           filepath.Join(t.TempDir(), "out.csv"),
	}

	assert.Error(t, Generate(r))
}

func TestGenerateDoesNotMutateRequest(t *testing.T) {
	fieldsPath, encodingsPath, statsPath := testLookupPaths(t)

	dir := t.TempDir()

	listPath := filepath.Join(dir, "fields.txt")
	require.NoError(t, os.WriteFile(listPath, []byte("21022\n"), 0644))

	// A fields slice with spare capacity must not have the file's ids
	// appended into its backing array.
	backing := []int{31, 7}

	r := &Request{
		FieldsPath:    fieldsPath,
		EncodingsPath: encodingsPath,
		StatsPath:     statsPath,
		Fields:        backing[:1],
		FieldsFile:    listPath,
		N:             5,
		Seed:          1,
		Out:           filepath.Join(dir, "out.csv"),
	}

	require.NoError(t, Generate(r))

	assert.Equal(t, []int{31}, r.Fields)
	assert.Equal(t, 7, backing[1])
}

func TestGenerateRejectsBadConfig(t *testing.T) {
	assert.Error(t, Generate(&Request{N: 0}))
	assert.Error(t, Generate(&Request{N: 10, Jitter: 100}))
	assert.Error(t, Generate(&Request{N: 10, Jitter: -1}))
}
