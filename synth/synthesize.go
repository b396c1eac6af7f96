// Package synth generates synthetic values for dictionary fields. Each
// field is sampled independently with a strategy picked by its declared
// value type; no correlation across fields is modeled.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/spiros/tofu/dictionary"
)

var (
	// ErrUnknownField is returned when a requested field id is not in
	// the catalog.
	ErrUnknownField = errors.New("unknown field id")

	// ErrNoSelectableValues is returned when a categorical field's
	// encoding has nothing to sample from.
	ErrNoSelectableValues = errors.New("no selectable values for encoding")

	// ErrJitterRange is returned for jitter percentages outside [0, 100).
	ErrJitterRange = errors.New("jitter percentage must be in [0, 100)")
)

// Sampled temporal values fall between these bounds, inclusive.
var (
	minDate = time.Date(1910, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxDate = time.Date(1990, time.December, 31, 0, 0, 0, 0, time.UTC)
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "2006-01-02 15:04:05"
)

// Synthesizer draws synthetic raw values for fields. Each Synthesizer owns
// its own random stream, so concurrent synthesizers never contend on shared
// generator state.
type Synthesizer struct {
	encodings *dictionary.Encodings
	stats     *dictionary.Stats
	rng       *rand.Rand
}

func NewSynthesizer(encodings *dictionary.Encodings, stats *dictionary.Stats, seed int64) *Synthesizer {
	return &Synthesizer{
		encodings: encodings,
		stats:     stats,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Synthesize returns n raw values for a field, dispatched on its value
// type. Unsupported types produce empty placeholders, which are distinct
// from the missing marker.
func (s *Synthesizer) Synthesize(f *dictionary.Field, n int) ([]string, error) {
	switch {
	case f.ValueType.Temporal():
		return s.temporal(f, n), nil

	case f.ValueType.Categorical():
		return s.categorical(f, n)

	case f.ValueType.Numeric():
		return s.numeric(f, n), nil
	}

	return make([]string, n), nil
}

// temporal samples uniform day offsets over the [minDate, maxDate] span.
func (s *Synthesizer) temporal(f *dictionary.Field, n int) []string {
	span := int(maxDate.Sub(minDate).Hours()/24) + 1

	layout := dateLayout
	if f.ValueType == dictionary.TimeType {
		layout = timeLayout
	}

	values := make([]string, n)
	for i := range values {
		values[i] = minDate.AddDate(0, 0, s.rng.Intn(span)).Format(layout)
	}

	return values
}

// categorical samples with replacement from the selectable values of the
// field's encoding.
func (s *Synthesizer) categorical(f *dictionary.Field, n int) ([]string, error) {
	choices := s.encodings.SelectableValues(f.EncodingID)
	if len(choices) == 0 {
		return nil, fmt.Errorf("field %d: %w %d", f.FieldID, ErrNoSelectableValues, f.EncodingID)
	}

	values := make([]string, n)
	for i := range values {
		values[i] = choices[s.rng.Intn(len(choices))]
	}

	return values, nil
}

// numeric samples a normal distribution with the field's summary
// statistics, defaulting to mean 0 and sd 1 when none are known.
func (s *Synthesizer) numeric(f *dictionary.Field, n int) []string {
	st, ok := s.stats.Lookup(f.FieldID)
	if !ok {
		st = dictionary.Stat{Mean: 0, SD: 1}
	}

	integer := f.ValueType == dictionary.IntegerType

	values := make([]string, n)
	for i := range values {
		x := s.rng.NormFloat64()*st.SD + st.Mean

		if integer {
			values[i] = strconv.FormatInt(int64(math.Round(x)), 10)
		} else {
			values[i] = formatRounded(x)
		}
	}

	return values
}

// formatRounded renders a float rounded to 4 decimal digits without
// trailing zeros.
func formatRounded(x float64) string {
	return strconv.FormatFloat(math.Round(x*1e4)/1e4, 'f', -1, 64)
}
