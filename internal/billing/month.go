package billing

import (
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// ParseMonth validates a YYYY-MM month key.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.Parse(monthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month key %q: expected YYYY-MM", month)
	}
	return t, nil
}

// PrevMonth returns the month key immediately before month, rolling over the
// year boundary (2025-01 yields 2024-12).
func PrevMonth(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, -1, 0).Format(monthLayout), nil
}

// NextMonth returns the month key immediately after month.
func NextMonth(month string) (string, error) {
	t, err := ParseMonth(month)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 1, 0).Format(monthLayout), nil
}

// MonthOfDate returns the YYYY-MM key a YYYY-MM-DD sale date belongs to.
func MonthOfDate(date string) (string, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}
	return t.Format(monthLayout), nil
}
