package stats

import (
	"time"

	"ridemate/internal/models"
	"ridemate/internal/units"
)

const (
	seriesMonths = 6
	seriesDays   = 30
)

// Dashboard is the figures shown on the home screen
type Dashboard struct {
	Unit           string        `json:"unit"`
	TotalDistance  float64       `json:"total_distance"`
	WeeklyDistance float64       `json:"weekly_distance"`
	TotalRides     int           `json:"total_rides"`
	Achievements   []Achievement `json:"achievements"`
	Unlocked       int           `json:"unlocked"`
}

// BuildDashboard computes the dashboard in kilometers
func BuildDashboard(rides []models.Ride, now time.Time) Dashboard {
	total := TotalDistance(rides)
	weekly := WeeklyDistance(rides, now)
	achievements := Achievements(rides, total, weekly)
	return Dashboard{
		Unit:           units.Label(true),
		TotalDistance:  total,
		WeeklyDistance: weekly,
		TotalRides:     TotalRides(rides),
		Achievements:   achievements,
		Unlocked:       UnlockedCount(achievements),
	}
}

// InUnit converts the distances for display. Achievements keep the values
// they were evaluated with.
func (d Dashboard) InUnit(useMetric bool) Dashboard {
	d.Unit = units.Label(useMetric)
	d.TotalDistance = units.ToDisplayUnit(d.TotalDistance, useMetric)
	d.WeeklyDistance = units.ToDisplayUnit(d.WeeklyDistance, useMetric)
	return d
}

// Overview is the figures shown on the statistics screen
type Overview struct {
	Unit              string          `json:"unit"`
	TotalRides        int             `json:"total_rides"`
	TotalDistance     float64         `json:"total_distance"`
	AverageDuration   float64         `json:"average_duration"`
	MonthlyDistance   []MonthPoint    `json:"monthly_distance"`
	RidesByDay        []DayCount      `json:"rides_by_day"`
	TotalExpenses     float64         `json:"total_expenses"`
	CategoryTotals    []CategoryTotal `json:"category_totals"`
	MonthlyExpenses   []MonthPoint    `json:"monthly_expenses"`
	DailyExpenses     []DayPoint      `json:"daily_expenses"`
	CategoryMonth     string          `json:"category_month"`
	ExpenseTypeFilter string          `json:"expense_type_filter,omitempty"`
}

// OverviewQuery selects the month of the category breakdown and the expense
// category of the series. Zero values mean the current month and all categories.
type OverviewQuery struct {
	Month      time.Month
	Year       int
	TypeFilter models.ExpenseType
}

// BuildOverview computes the statistics screen in kilometers
func BuildOverview(rides []models.Ride, expenses []models.Expense, now time.Time, q OverviewQuery) Overview {
	month, year := q.Month, q.Year
	if month == 0 {
		month = now.Month()
	}
	if year == 0 {
		year = now.Year()
	}

	return Overview{
		Unit:              units.Label(true),
		TotalRides:        TotalRides(rides),
		TotalDistance:     TotalDistance(rides),
		AverageDuration:   AverageDuration(rides),
		MonthlyDistance:   MonthlyDistanceSeries(rides, now, seriesMonths),
		RidesByDay:        RidesByDayOfWeek(rides, now.Location()),
		TotalExpenses:     TotalExpenses(expenses),
		CategoryTotals:    ExpenseTotalsByCategory(expenses, month, year, now.Location()),
		MonthlyExpenses:   MonthlyExpenseSeries(expenses, now, seriesMonths, q.TypeFilter),
		DailyExpenses:     DailyExpenseSeries(expenses, now, seriesDays, q.TypeFilter),
		CategoryMonth:     time.Date(year, month, 1, 0, 0, 0, 0, now.Location()).Format("2006-01"),
		ExpenseTypeFilter: string(q.TypeFilter),
	}
}

// InUnit converts the distances for display
func (o Overview) InUnit(useMetric bool) Overview {
	o.Unit = units.Label(useMetric)
	o.TotalDistance = units.ToDisplayUnit(o.TotalDistance, useMetric)
	monthly := make([]MonthPoint, len(o.MonthlyDistance))
	for i, p := range o.MonthlyDistance {
		p.Value = units.ToDisplayUnit(p.Value, useMetric)
		monthly[i] = p
	}
	o.MonthlyDistance = monthly
	return o
}
