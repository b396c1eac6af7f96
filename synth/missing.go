package synth

import "math/rand"

// Missing marks a value removed by jitter. It is distinct from the empty
// placeholder used for unsupported value types.
const Missing = "NA"

// InsertMissingness replaces roughly percent% of values in place with the
// missing marker. Indices are drawn with replacement, so collisions can
// leave the realized missing count below the requested count. The caller
// validates percent against [0, 100).
func InsertMissingness(rng *rand.Rand, values []string, percent int) []string {
	howmany := len(values) * percent / 100

	for k := 0; k < howmany; k++ {
		values[rng.Intn(len(values))] = Missing
	}

	return values
}
