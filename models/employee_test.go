package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmployeeRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    EmployeeRef
		wantErr bool
	}{
		{
			name:  "plain name",
			input: "Ivanov Ivan (1001)",
			want:  EmployeeRef{Name: "Ivanov Ivan", PersonnelNumber: "1001"},
		},
		{
			name:  "cyrillic name",
			input: "Иванов Иван (1001)",
			want:  EmployeeRef{Name: "Иванов Иван", PersonnelNumber: "1001"},
		},
		{
			name:  "single word name",
			input: "Ivanov (42)",
			want:  EmployeeRef{Name: "Ivanov", PersonnelNumber: "42"},
		},
		{
			name:    "missing parentheses",
			input:   "Ivanov Ivan 1001",
			wantErr: true,
		},
		{
			name:    "non-numeric personnel number",
			input:   "Ivanov Ivan (abc)",
			wantErr: true,
		},
		{
			name:    "trailing garbage",
			input:   "Ivanov Ivan (1001) x",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEmployeeRef(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEmployeeFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmployeeRefString(t *testing.T) {
	ref := EmployeeRef{Name: "Ivanov Ivan", PersonnelNumber: "1001"}
	assert.Equal(t, "Ivanov Ivan (1001)", ref.String())

	parsed, err := ParseEmployeeRef(ref.String())
	require.NoError(t, err)
	assert.Equal(t, ref, parsed)
}
