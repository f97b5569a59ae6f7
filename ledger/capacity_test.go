package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		used       string
		proposed   []string
		admissible bool
		free       string
	}{
		{
			name:       "empty day accepts small amount",
			used:       "0",
			proposed:   []string{"1.5"},
			admissible: true,
			free:       "8.25",
		},
		{
			name:       "exactly the remaining allowance is accepted",
			used:       "5.00",
			proposed:   []string{"3.25"},
			admissible: true,
			free:       "3.25",
		},
		{
			name:       "one cent over the boundary is rejected",
			used:       "5.00",
			proposed:   []string{"3.26"},
			admissible: false,
			free:       "3.25",
		},
		{
			name:       "full day leaves nothing free",
			used:       "8.25",
			proposed:   []string{"0.01"},
			admissible: false,
			free:       "0",
		},
		{
			name:       "multi-row submission is summed",
			used:       "0",
			proposed:   []string{"4.00", "4.25"},
			admissible: true,
			free:       "8.25",
		},
		{
			name:       "multi-row submission over the cap",
			used:       "0",
			proposed:   []string{"4.00", "4.26"},
			admissible: false,
			free:       "8.25",
		},
		{
			name:       "overrun day reports negative free",
			used:       "9.00",
			proposed:   []string{"0.25"},
			admissible: false,
			free:       "-0.75",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposed := make([]decimal.Decimal, 0, len(tt.proposed))
			for _, p := range tt.proposed {
				proposed = append(proposed, dec(p))
			}

			decision := Evaluate(dec(tt.used), proposed...)
			assert.Equal(t, tt.admissible, decision.Admissible)
			assert.True(t, decision.Free.Equal(dec(tt.free)),
				"free = %s, want %s", decision.Free, tt.free)
		})
	}
}
