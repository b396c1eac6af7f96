package synth

import "github.com/spiros/tofu/dictionary"

// Decode maps raw encoded values to their human readable meanings. Fields
// without an encoding pass through untouched, as do values with no matching
// entry, so decoding is idempotent on already-decoded labels.
func Decode(values []string, f *dictionary.Field, encodings *dictionary.Encodings) []string {
	if f.EncodingID == 0 {
		return values
	}

	decoded := make([]string, len(values))
	for i, v := range values {
		decoded[i], _ = encodings.Decode(f.EncodingID, v)
	}

	return decoded
}
