package tofu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spiros/tofu/dictionary"
	"github.com/spiros/tofu/synth"
)

func TestCleanColumnName(t *testing.T) {
	tests := map[string]string{
		"3-0.0":                         "3_0_0",
		"Verbal interview duration-0.0": "verbal_interview_duration_0_0",
		"neck problem/injury":           "neck_problem_injury",
		"Non-cancer illness code, self-reported-1.2": "non_cancer_illness_code_self_reported_1_2",
	}

	for in, exp := range tests {
		if out := cleanColumnName(in); out != exp {
			t.Errorf("%q: expected %q, got %q", in, exp, out)
		}
	}
}

func TestNewSchema(t *testing.T) {
	table := &synth.Table{
		IDs: []string{"fake1"},
		Columns: []synth.Column{
			{Name: "21022-0.0", Type: dictionary.IntegerType, Values: []string{"55"}},
			{Name: "50-0.0", Type: dictionary.ContinuousType, Values: []string{"168.5"}},
			{Name: "53-0.0", Type: dictionary.DateType, Values: []string{"1955-03-01"}},
			{Name: "20002-0.0", Type: dictionary.CategoricalMultipleType, Values: []string{"1545"}},
		},
	}

	s := NewSchema(table, false)

	assert.Equal(t, "eid", s.Columns[0].Name)
	assert.Equal(t, "text", s.Columns[0].Type)
	assert.Equal(t, "integer", s.Columns[1].Type)
	assert.Equal(t, "real", s.Columns[2].Type)
	assert.Equal(t, "date", s.Columns[3].Type)
	assert.Equal(t, "text", s.Columns[4].Type)
	assert.Equal(t, "21022_0_0", s.Columns[1].Name)
}

func TestNewSchemaHumanReadable(t *testing.T) {
	table := &synth.Table{
		IDs: []string{"fake1"},
		Columns: []synth.Column{
			{Name: "Age at recruitment-0.0", Type: dictionary.IntegerType, Values: []string{"55"}},
		},
	}

	// Decoded values are labels, so every column loads as text.
	s := NewSchema(table, true)

	assert.Equal(t, "text", s.Columns[1].Type)
	assert.Equal(t, "age_at_recruitment_0_0", s.Columns[1].Name)
}
