// Package stats derives ride and expense figures from the in-memory
// collections. Everything here is pure and recomputed on each call.
package stats

import (
	"time"

	"ridemate/internal/models"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate reads an ISO-8601 timestamp or calendar date. Values without a
// zone are taken to be in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range dateLayouts[1:] {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TotalDistance sums the distance of every ride
func TotalDistance(rides []models.Ride) float64 {
	var total float64
	for _, r := range rides {
		total += r.Distance
	}
	return total
}

// WeeklyDistance sums rides dated on or after seven days before now
func WeeklyDistance(rides []models.Ride, now time.Time) float64 {
	weekAgo := now.AddDate(0, 0, -7)

	var total float64
	for _, r := range rides {
		d, ok := ParseDate(r.Date, now.Location())
		if !ok || d.Before(weekAgo) {
			continue
		}
		total += r.Distance
	}
	return total
}

// TotalRides counts the rides
func TotalRides(rides []models.Ride) int {
	return len(rides)
}

// AverageDuration is the mean ride duration in hours, 0 without rides
func AverageDuration(rides []models.Ride) float64 {
	if len(rides) == 0 {
		return 0
	}
	var total float64
	for _, r := range rides {
		total += r.Duration
	}
	return total / float64(len(rides))
}

// MonthPoint is one month of a trailing series
type MonthPoint struct {
	Label string     `json:"month"`
	Year  int        `json:"year"`
	Month time.Month `json:"-"`
	Value float64    `json:"value"`
}

// trailingMonths returns the first day of each of the n months ending with
// the month of now, oldest first.
func trailingMonths(now time.Time, n int) []time.Time {
	if n <= 0 {
		return []time.Time{}
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]time.Time, n)
	for i := 0; i < n; i++ {
		out[i] = first.AddDate(0, -(n - 1 - i), 0)
	}
	return out
}

// MonthlyDistanceSeries sums ride distance per calendar month over the
// trailing monthsBack months, current month included.
func MonthlyDistanceSeries(rides []models.Ride, now time.Time, monthsBack int) []MonthPoint {
	months := trailingMonths(now, monthsBack)
	out := make([]MonthPoint, len(months))
	for i, m := range months {
		out[i] = MonthPoint{Label: m.Format("Jan"), Year: m.Year(), Month: m.Month()}
	}

	for _, r := range rides {
		d, ok := ParseDate(r.Date, now.Location())
		if !ok {
			continue
		}
		for i := range out {
			if d.Year() == out[i].Year && d.Month() == out[i].Month {
				out[i].Value += r.Distance
				break
			}
		}
	}
	return out
}

// DayCount is the number of rides on one weekday
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"rides"`
}

// RidesByDayOfWeek counts rides per weekday, Sunday first. The result always
// has seven entries.
func RidesByDayOfWeek(rides []models.Ride, loc *time.Location) []DayCount {
	out := make([]DayCount, 7)
	for i := range out {
		out[i].Day = time.Weekday(i).String()[:3]
	}
	for _, r := range rides {
		d, ok := ParseDate(r.Date, loc)
		if !ok {
			continue
		}
		out[d.Weekday()].Count++
	}
	return out
}

// Achievement is one milestone and whether it has been reached
type Achievement struct {
	Name     string `json:"name"`
	Unlocked bool   `json:"unlocked"`
}

// Achievements evaluates the milestones. Distances are kilometers whatever
// the display unit.
func Achievements(rides []models.Ride, totalDistance, weeklyDistance float64) []Achievement {
	return []Achievement{
		{Name: "First Ride", Unlocked: len(rides) >= 1},
		{Name: "100km Club", Unlocked: totalDistance >= 100},
		{Name: "500km Hero", Unlocked: totalDistance >= 500},
		{Name: "Weekend Warrior", Unlocked: weeklyDistance >= 50},
	}
}

// UnlockedCount counts the unlocked achievements
func UnlockedCount(achievements []Achievement) int {
	n := 0
	for _, a := range achievements {
		if a.Unlocked {
			n++
		}
	}
	return n
}

// TotalLikes sums the likes over posts
func TotalLikes(posts []models.Post) int {
	n := 0
	for _, p := range posts {
		n += len(p.Likes)
	}
	return n
}
