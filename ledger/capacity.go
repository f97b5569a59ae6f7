package ledger

import (
	"github.com/shopspring/decimal"
)

// DailyCapacity is the maximum hours an employee may log against one
// calendar date across all tasks.
var DailyCapacity = decimal.RequireFromString("8.25")

// Decision is the outcome of the capacity rule. Free is reported even on
// acceptance so callers can surface the remaining allowance.
type Decision struct {
	Admissible bool
	Free       decimal.Decimal
}

// Evaluate decides whether the proposed hours fit the allowance left after
// the hours already used on that date. Comparisons run at full decimal
// precision; rounding happens only at presentation.
func Evaluate(used decimal.Decimal, proposed ...decimal.Decimal) Decision {
	total := decimal.Zero
	for _, hours := range proposed {
		total = total.Add(hours)
	}

	free := DailyCapacity.Sub(used)
	return Decision{
		Admissible: total.Cmp(free) <= 0,
		Free:       free,
	}
}
