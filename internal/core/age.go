package core

import (
	"fmt"
	"time"
)

type Age struct {
	Years  int
	Months int
	Days   int
}

func (a Age) String() string {
	return fmt.Sprintf("%d Thn/ %d bln/ %d hr", a.Years, a.Months, a.Days)
}

// CalculateAge works on calendar components, not elapsed duration. A negative
// day difference borrows the length of the month before now's month.
func CalculateAge(birth, now time.Time) Age {
	if birth.IsZero() || !birth.Before(now) {
		return Age{}
	}

	birth = birth.In(now.Location())

	years := now.Year() - birth.Year()
	months := int(now.Month()) - int(birth.Month())
	days := now.Day() - birth.Day()

	if days < 0 {
		months--
		days += daysInPrecedingMonth(now)
	}
	if months < 0 {
		years--
		months += 12
	}

	return Age{
		Years:  max(0, years),
		Months: max(0, months),
		Days:   max(0, days),
	}
}

func FormatAge(birth, now time.Time) string {
	return CalculateAge(birth, now).String()
}

func daysInPrecedingMonth(t time.Time) int {
	// day 0 of the current month normalizes to the last day of the previous one
	return time.Date(t.Year(), t.Month(), 0, 0, 0, 0, 0, t.Location()).Day()
}
