package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"

	"github.com/somanshu-agarwal/BareMinimum/internal/entity/expense"
)

type CategoryTotal struct {
	Category string
	Amount   decimal.Decimal
}

// Report aggregates the record set for display: overall, today and current
// month totals, plus per-mode and per-category breakdowns.
type Report struct {
	Total      decimal.Decimal
	Today      decimal.Decimal
	TodayUPI   decimal.Decimal
	ThisMonth  decimal.Decimal
	ByMode     map[expense.Mode]decimal.Decimal
	ByCategory []CategoryTotal
}

func Build(records []expense.Record) Report {
	r := Report{
		Total:     decimal.Zero,
		Today:     decimal.Zero,
		TodayUPI:  decimal.Zero,
		ThisMonth: decimal.Zero,
		ByMode:    make(map[expense.Mode]decimal.Decimal),
	}

	dayStart := now.BeginningOfDay()
	monthStart := now.BeginningOfMonth()
	byCategory := make(map[string]decimal.Decimal)

	for _, rec := range records {
		r.Total = r.Total.Add(rec.Amount)
		r.ByMode[rec.Mode] = r.ByMode[rec.Mode].Add(rec.Amount)
		byCategory[rec.Category] = byCategory[rec.Category].Add(rec.Amount)

		if !rec.Timestamp.Before(monthStart) {
			r.ThisMonth = r.ThisMonth.Add(rec.Amount)
		}
		if !rec.Timestamp.Before(dayStart) {
			r.Today = r.Today.Add(rec.Amount)
			if rec.Mode == expense.UPI {
				r.TodayUPI = r.TodayUPI.Add(rec.Amount)
			}
		}
	}

	r.ByCategory = make([]CategoryTotal, 0, len(byCategory))
	for cat, amount := range byCategory {
		r.ByCategory = append(r.ByCategory, CategoryTotal{Category: cat, Amount: amount})
	}
	sort.Slice(r.ByCategory, func(i, j int) bool {
		if !r.ByCategory[i].Amount.Equal(r.ByCategory[j].Amount) {
			return r.ByCategory[i].Amount.GreaterThan(r.ByCategory[j].Amount)
		}
		return r.ByCategory[i].Category < r.ByCategory[j].Category
	})
	return r
}

// Format renders the report for a chat message.
func (r Report) Format() string {
	lines := make([]string, 0, len(r.ByCategory)+6)
	for _, ct := range r.ByCategory {
		lines = append(lines, fmt.Sprintf("%s: %s", ct.Category, ct.Amount.StringFixed(2)))
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Today: %s (UPI %s)", r.Today.StringFixed(2), r.TodayUPI.StringFixed(2)),
		fmt.Sprintf("This month: %s", r.ThisMonth.StringFixed(2)),
		fmt.Sprintf("Total: %s", r.Total.StringFixed(2)),
	)
	return strings.Join(lines, "\n")
}
