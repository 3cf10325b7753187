package mailvault

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is a retention time unit.
type Unit string

const (
	Seconds Unit = "seconds"
	Minutes Unit = "minutes"
	Hours   Unit = "hours"
	Days    Unit = "days"
	Weeks   Unit = "weeks"
	Months  Unit = "months"
	Years   Unit = "years"
)

// Units lists the accepted units.
var Units = []Unit{Seconds, Minutes, Hours, Days, Weeks, Months, Years}

// MaxRetentionYears bounds calendar retention windows.
const MaxRetentionYears = 10000

// maxCount is the largest count whose window can be subtracted from a time
// without overflowing. Fixed units are bounded by time.Duration (about 292 years).
func (u Unit) maxCount() int64 {
	switch u {
	case Seconds:
		return math.MaxInt64 / int64(time.Second)
	case Minutes:
		return math.MaxInt64 / int64(time.Minute)
	case Hours:
		return math.MaxInt64 / int64(time.Hour)
	case Days:
		return MaxRetentionYears * 366
	case Weeks:
		return MaxRetentionYears * 53
	case Months:
		return MaxRetentionYears * 12
	case Years:
		return MaxRetentionYears
	default:
		return 0
	}
}

func (u Unit) valid() bool {
	for _, v := range Units {
		if u == v {
			return true
		}
	}
	return false
}

// Retention is how long sent messages are kept.
type Retention struct {
	Unit  Unit
	Count int
}

// ParseRetention parses a count and unit as given on the command line or in a request.
// Both are required.
func ParseRetention(count, unit string) (Retention, error) {
	unit = strings.ToLower(strings.TrimSpace(unit))
	if unit == "" {
		return Retention{}, fmt.Errorf("%w: retention unit is required (one of %s)", ErrValidation, unitList())
	}
	count = strings.TrimSpace(count)
	if count == "" {
		return Retention{}, fmt.Errorf("%w: retention count is required", ErrValidation)
	}
	n, err := strconv.Atoi(count)
	if err != nil {
		return Retention{}, fmt.Errorf("%w: retention count %q is not a number", ErrValidation, count)
	}

	r := Retention{Count: n, Unit: Unit(unit)}
	if err := r.Validate(); err != nil {
		return Retention{}, err
	}
	return r, nil
}

// Validate checks the unit and that count is positive and within the unit's range.
func (r Retention) Validate() error {
	if !r.Unit.valid() {
		return fmt.Errorf("%w: unknown retention unit %q (one of %s)", ErrValidation, r.Unit, unitList())
	}
	if r.Count <= 0 {
		return fmt.Errorf("%w: retention count must be positive, got %d", ErrValidation, r.Count)
	}
	if limit := r.Unit.maxCount(); int64(r.Count) > limit {
		return fmt.Errorf("%w: retention count %d exceeds %d %s", ErrValidation, r.Count, limit, r.Unit)
	}
	return nil
}

// Cutoff returns the instant before which messages are expired.
// Days and longer units follow the calendar of now's location.
func (r Retention) Cutoff(now time.Time) time.Time {
	n := r.Count
	switch r.Unit {
	case Seconds:
		return now.Add(-time.Duration(n) * time.Second)
	case Minutes:
		return now.Add(-time.Duration(n) * time.Minute)
	case Hours:
		return now.Add(-time.Duration(n) * time.Hour)
	case Days:
		return now.AddDate(0, 0, -n)
	case Weeks:
		return now.AddDate(0, 0, -7*n)
	case Months:
		return now.AddDate(0, -n, 0)
	case Years:
		return now.AddDate(-n, 0, 0)
	default:
		return now
	}
}

func (r Retention) String() string {
	return strconv.Itoa(r.Count) + " " + string(r.Unit)
}

func unitList() string {
	names := make([]string, len(Units))
	for i, u := range Units {
		names[i] = string(u)
	}
	return strings.Join(names, ", ")
}
