package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeatLabels(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"simple", "A1, A2", []string{"A1", "A2"}},
		{"trims and drops blanks", " A1 ,, ,B7,", []string{"A1", "B7"}},
		{"first occurrence wins", "C3,A1,C3, A1", []string{"C3", "A1"}},
		{"case as entered", "a1,A1", []string{"a1", "A1"}},
		{"empty", " , ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeatLabels(tt.raw))
		})
	}
}

func TestJoinSeatLabels(t *testing.T) {
	assert.Equal(t, "A1, A2", JoinSeatLabels(ParseSeatLabels("A1,A2")))
	assert.Equal(t, "", JoinSeatLabels(nil))
}
