package csv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

var (
	errUnquotedQuote     = errors.New("quote in unquoted field")
	errUnescapedQuote    = errors.New("bare quote in quoted field")
	errUnterminatedField = errors.New("unterminated quoted field")
)

// Reader parses delimited records compatible with rfc4180, extended with a
// configurable separator byte so the tab-separated fields dictionary parses
// through the same code path as the comma-separated tables. Records do not
// span lines.
type Reader struct {
	sc     *bufio.Scanner
	sep    byte
	lineno int
}

// DefaultReader creates a comma-separated Reader.
func DefaultReader(r io.Reader) *Reader {
	return NewReader(r, ',')
}

// NewReader returns a Reader splitting on sep.
func NewReader(r io.Reader, sep byte) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	return &Reader{
		sc:  sc,
		sep: sep,
	}
}

// LineNumber returns the line number of the most recently read record.
func (r *Reader) LineNumber() int {
	return r.lineno
}

// Read parses the next non-empty line into its fields. io.EOF signals the
// end of the input.
func (r *Reader) Read() ([]string, error) {
	var line []byte

	for {
		if !r.sc.Scan() {
			if err := r.sc.Err(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}

		r.lineno++

		line = r.sc.Bytes()
		if len(line) > 0 {
			break
		}
	}

	fields, err := splitRecord(line, r.sep)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineno, err)
	}

	return fields, nil
}

// splitRecord scans a full line into its fields.
func splitRecord(data []byte, sep byte) ([]string, error) {
	var fields []string

	for {
		tok, rest, err := scanField(data, sep)
		if err != nil {
			return nil, err
		}

		fields = append(fields, tok)

		// A nil rest means the field ended the record rather than being
		// terminated by a separator.
		if rest == nil {
			return fields, nil
		}

		data = rest
	}
}

func scanField(data []byte, sep byte) (string, []byte, error) {
	if len(data) == 0 {
		return "", nil, nil
	}

	// Quoted field. Doubled quotes are escaped quotes.
	if data[0] == '"' {
		var b []byte

		i := 1
		for i < len(data) {
			c := data[i]

			if c != '"' {
				b = append(b, c)
				i++
				continue
			}

			if i+1 < len(data) && data[i+1] == '"' {
				b = append(b, '"')
				i += 2
				continue
			}

			// Closing quote. It must end the record or be followed by
			// a separator.
			if i+1 == len(data) {
				return string(b), nil, nil
			}

			if data[i+1] == sep {
				return string(b), data[i+2:], nil
			}

			return "", nil, errUnescapedQuote
		}

		return "", nil, errUnterminatedField
	}

	// Unquoted field. Only fail if a quote is found.
	for i, c := range data {
		if c == sep {
			return string(data[:i]), data[i+1:], nil
		}

		if c == '"' {
			return "", nil, errUnquotedQuote
		}
	}

	return string(data), nil, nil
}
