package reader

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var bom = []byte{0xef, 0xbb, 0xbf}

// UniversalReader wraps an io.Reader to replace carriage returns with newlines.
// This is used with line-based scanners so they can properly delimit lines.
type UniversalReader struct {
	r io.Reader
}

func (r *UniversalReader) Read(buf []byte) (int, error) {
	n, err := r.r.Read(buf)

	// Detect and remove BOM.
	if bytes.HasPrefix(buf, bom) {
		copy(buf, buf[len(bom):])
		n -= len(bom)
	}

	// Replace carriage returns with newlines
	for i, b := range buf {
		if b == '\r' {
			buf[i] = '\n'
		}
	}

	return n, err
}

func (r *UniversalReader) Close() error {
	if rc, ok := r.r.(io.Closer); ok {
		return rc.Close()
	}
	return nil
}

func NewUniversalReader(r io.Reader) *UniversalReader {
	return &UniversalReader{r}
}

// Decompress takes a compression type and a reader and returns
// reader that will be decompressed if the type is supported.
func Decompress(t string, r io.Reader) (io.Reader, error) {
	if t == "" {
		return r, nil
	}

	switch t {
	case "gzip", "gz":
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, err
		}
		return gr, nil

	case "bz2", "bzip2":
		return bzip2.NewReader(r), nil
	}

	return nil, fmt.Errorf("compression type not supported: %s", t)
}

// DecodeCharset takes a character set name and a reader and returns a
// reader producing UTF-8. The showcase dictionaries are exported in
// latin-1.
func DecodeCharset(cs string, r io.Reader) (io.Reader, error) {
	switch cs {
	case "", "utf-8", "utf8":
		return r, nil

	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(r), nil
	}

	return nil, fmt.Errorf("character set not supported: %s", cs)
}

// DetectType attempts to detect the file format and compression types by looking at the
// file path extensions.
func DetectType(url string) (string, string) {
	_, name := path.Split(url)

	// Split up extensions.
	exts := strings.Split(name, ".")[1:]

	var (
		compression string
		format      string
	)

	for _, ext := range exts {
		switch ext {
		case "gz", "gzip":
			compression = "gzip"

		case "bz2", "bzip2":
			compression = "bzip2"

		case "csv":
			format = "csv"

		case "tsv", "tab":
			format = "tsv"
		}
	}

	return format, compression
}

func detectCompression(name string) string {
	switch filepath.Ext(name) {
	case ".gzip", ".gz":
		return "gzip"
	case ".bzip2", ".bz2":
		return "bzip2"
	}

	return ""
}

// Separator returns the field separator byte for a detected format.
func Separator(format string) byte {
	if format == "tsv" {
		return '\t'
	}

	return ','
}

// Reader encapsulates a lookup file stream.
type Reader struct {
	Name        string
	Compression string
	Charset     string

	reader io.Reader
	file   *os.File
}

// Read implements the io.Reader interface.
func (r *Reader) Read(buf []byte) (int, error) {
	return r.reader.Read(buf)
}

// Close implements the io.Closer interface.
func (r *Reader) Close() {
	if r.file != nil {
		r.file.Close()
	}
}

// Open a reader by name with optional compression and character set. If no
// name is specified, STDIN is used. Decompression applies first, then
// charset decoding, then line-ending normalization.
func Open(name, compr, cs string) (*Reader, error) {
	r := new(Reader)

	if compr == "" {
		compr = detectCompression(name)
	}

	if name == "" {
		r.reader = os.Stdin
	} else {
		file, err := os.Open(name)

		if err != nil {
			return nil, err
		}

		r.file = file
		r.reader = file
	}

	decompressed, err := Decompress(compr, r.reader)
	if err != nil {
		r.Close()
		return nil, err
	}

	decoded, err := DecodeCharset(cs, decompressed)
	if err != nil {
		r.Close()
		return nil, err
	}

	r.Name = name
	r.Compression = compr
	r.Charset = cs

	r.reader = NewUniversalReader(decoded)

	return r, nil
}
