package model

import "time"

// DateLayout is the calendar-day format used on the wire and in storage.
const DateLayout = "2006-01-02"

// DailyEntry is one self-reported day of trading. At most one exists per user per calendar day.
type DailyEntry struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Date         time.Time `json:"date"`
	RevenueCents int64     `json:"revenue_cents"`
	ExpenseCents int64     `json:"expense_cents"`
	ExpenseNote  string    `json:"expense_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Day returns the entry's calendar day key.
func (e DailyEntry) Day() string {
	return e.Date.Format(DateLayout)
}

// NetCents is revenue minus expense for the day.
func (e DailyEntry) NetCents() int64 {
	return e.RevenueCents - e.ExpenseCents
}

// CashEstimate is a point-in-time self-report of cash on hand.
type CashEstimate struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	AsOfDate           time.Time `json:"as_of_date"`
	CashAvailableCents int64     `json:"cash_available_cents"`
	CreatedAt          time.Time `json:"created_at"`
}

// ParseDay parses a YYYY-MM-DD string into a UTC midnight timestamp.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Today truncates t to its UTC calendar day.
func Today(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
