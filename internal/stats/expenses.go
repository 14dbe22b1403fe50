package stats

import (
	"time"

	"ridemate/internal/models"
)

// CategoryTotal is the spend of one expense category
type CategoryTotal struct {
	Type  models.ExpenseType `json:"type"`
	Total float64            `json:"total"`
}

// DayPoint is one calendar day of a trailing series
type DayPoint struct {
	Label string  `json:"day"`
	Date  string  `json:"date"`
	Value float64 `json:"amount"`
}

// TotalExpenses sums every expense amount
func TotalExpenses(expenses []models.Expense) float64 {
	var total float64
	for _, e := range expenses {
		total += e.Amount
	}
	return total
}

// ExpenseTotalsByCategory sums amounts per category for one month. Categories
// with nothing spent are left out; the rest follow models.ExpenseTypes order.
func ExpenseTotalsByCategory(expenses []models.Expense, month time.Month, year int, loc *time.Location) []CategoryTotal {
	sums := make(map[models.ExpenseType]float64)
	for _, e := range expenses {
		d, ok := ParseDate(e.Date, loc)
		if !ok || d.Month() != month || d.Year() != year {
			continue
		}
		sums[e.Type] += e.Amount
	}

	out := make([]CategoryTotal, 0, len(sums))
	for _, t := range models.ExpenseTypes {
		if sums[t] > 0 {
			out = append(out, CategoryTotal{Type: t, Total: sums[t]})
		}
	}
	return out
}

// MonthlyExpenseSeries sums amounts per calendar month over the trailing
// monthsBack months. An empty typeFilter includes every category.
func MonthlyExpenseSeries(expenses []models.Expense, now time.Time, monthsBack int, typeFilter models.ExpenseType) []MonthPoint {
	months := trailingMonths(now, monthsBack)
	out := make([]MonthPoint, len(months))
	for i, m := range months {
		out[i] = MonthPoint{Label: m.Format("Jan"), Year: m.Year(), Month: m.Month()}
	}

	for _, e := range expenses {
		if typeFilter != "" && e.Type != typeFilter {
			continue
		}
		d, ok := ParseDate(e.Date, now.Location())
		if !ok {
			continue
		}
		for i := range out {
			if d.Year() == out[i].Year && d.Month() == out[i].Month {
				out[i].Value += e.Amount
				break
			}
		}
	}
	return out
}

// DailyExpenseSeries sums amounts per calendar day over the trailing daysBack
// days, today included, oldest first.
func DailyExpenseSeries(expenses []models.Expense, now time.Time, daysBack int, typeFilter models.ExpenseType) []DayPoint {
	if daysBack <= 0 {
		return []DayPoint{}
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	out := make([]DayPoint, daysBack)
	index := make(map[string]int, daysBack)
	for i := 0; i < daysBack; i++ {
		day := today.AddDate(0, 0, -(daysBack - 1 - i))
		key := day.Format("2006-01-02")
		out[i] = DayPoint{Label: day.Format("Jan 2"), Date: key}
		index[key] = i
	}

	for _, e := range expenses {
		if typeFilter != "" && e.Type != typeFilter {
			continue
		}
		d, ok := ParseDate(e.Date, now.Location())
		if !ok {
			continue
		}
		if i, ok := index[d.Format("2006-01-02")]; ok {
			out[i].Value += e.Amount
		}
	}
	return out
}
