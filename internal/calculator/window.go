package calculator

import (
	"sort"
	"time"

	"CredBuddy/internal/model"
)

// Day is the length of one lookback day.
const Day = 24 * time.Hour

// Window returns the entries whose age at now lies in [0, days].
func Window(entries []model.DailyEntry, now time.Time, days int) []model.DailyEntry {
	limit := time.Duration(days) * Day
	out := make([]model.DailyEntry, 0, len(entries))
	for _, e := range entries {
		age := now.Sub(e.Date)
		if age >= 0 && age <= limit {
			out = append(out, e)
		}
	}
	return out
}

// PriorWindow returns the entries whose age at now lies in (fromDays, toDays].
func PriorWindow(entries []model.DailyEntry, now time.Time, fromDays, toDays int) []model.DailyEntry {
	lo := time.Duration(fromDays) * Day
	hi := time.Duration(toDays) * Day
	out := make([]model.DailyEntry, 0, len(entries))
	for _, e := range entries {
		age := now.Sub(e.Date)
		if age > lo && age <= hi {
			out = append(out, e)
		}
	}
	return out
}

// AgeDays returns the fractional number of days between t and now.
func AgeDays(t, now time.Time) float64 {
	return float64(now.Sub(t)) / float64(Day)
}

// DistinctDays counts the calendar days present in entries.
func DistinctDays(entries []model.DailyEntry) int {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.Day()] = struct{}{}
	}
	return len(seen)
}

// Revenues extracts daily revenue in cents, preserving order.
func Revenues(entries []model.DailyEntry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = float64(e.RevenueCents)
	}
	return out
}

// Nets extracts daily revenue minus expense in cents, preserving order.
func Nets(entries []model.DailyEntry) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = float64(e.NetCents())
	}
	return out
}

// TotalExpense sums expense cents across entries.
func TotalExpense(entries []model.DailyEntry) float64 {
	sum := 0.0
	for _, e := range entries {
		sum += float64(e.ExpenseCents)
	}
	return sum
}

// Chronological returns a copy of entries sorted oldest first. Equal dates keep input order.
func Chronological(entries []model.DailyEntry) []model.DailyEntry {
	out := make([]model.DailyEntry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
