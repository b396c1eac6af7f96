package dictionary

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	// Value type codes as declared in the UK Biobank fields dictionary.
	// Any other code is treated as unsupported.
	UnsupportedType         ValueType = 0
	IntegerType             ValueType = 11
	CategoricalSingleType   ValueType = 21
	CategoricalMultipleType ValueType = 22
	ContinuousType          ValueType = 31
	DateType                ValueType = 51
	TimeType                ValueType = 61
)

// ValueType is the declared type of a field's values.
type ValueType uint8

// ParseValueType maps a raw dictionary type code to a ValueType. Codes
// outside the supported set collapse to UnsupportedType.
func ParseValueType(code int) ValueType {
	// ValueType is a uint8; reject out-of-range codes before converting
	// so they cannot wrap onto a supported code.
	if code < 0 || code > 255 {
		return UnsupportedType
	}

	switch ValueType(code) {
	case IntegerType, CategoricalSingleType, CategoricalMultipleType,
		ContinuousType, DateType, TimeType:
		return ValueType(code)
	}

	return UnsupportedType
}

func (v ValueType) String() string {
	switch v {
	case IntegerType:
		return "integer"
	case CategoricalSingleType:
		return "categorical-single"
	case CategoricalMultipleType:
		return "categorical-multiple"
	case ContinuousType:
		return "continuous"
	case DateType:
		return "date"
	case TimeType:
		return "time"
	}

	return "unsupported"
}

// Categorical reports whether values are drawn from an encoding.
func (v ValueType) Categorical() bool {
	return v == CategoricalSingleType || v == CategoricalMultipleType
}

// Numeric reports whether values follow a (mean, sd) distribution.
func (v ValueType) Numeric() bool {
	return v == IntegerType || v == ContinuousType
}

// Temporal reports whether values are dates or timestamps.
func (v ValueType) Temporal() bool {
	return v == DateType || v == TimeType
}

// Supported reports whether synthetic values can be generated for the type.
func (v ValueType) Supported() bool {
	return v.Categorical() || v.Numeric() || v.Temporal()
}

func (v ValueType) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

func (v *ValueType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	// Raw dictionary codes are accepted as well as names.
	if code, err := strconv.Atoi(s); err == nil {
		*v = ParseValueType(code)
		return nil
	}

	var t ValueType

	switch strings.ToLower(s) {
	case "integer":
		t = IntegerType
	case "categorical-single":
		t = CategoricalSingleType
	case "categorical-multiple":
		t = CategoricalMultipleType
	case "continuous":
		t = ContinuousType
	case "date":
		t = DateType
	case "time":
		t = TimeType
	}

	*v = t

	return nil
}
