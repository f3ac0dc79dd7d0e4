package slot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	labelLayout = "03:04 PM"
	parseLayout = "3:04 PM"
	dateLayout  = "2006-01-02"
)

var (
	ErrInvalidTime = errors.New("time must look like 09:15 AM")
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
)

// TimeOfDay is a wall-clock time without a date, in 24-hour terms.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseLabel converts a 12-hour label ("09:15 AM", "9:15 am", "12:00 PM") to a TimeOfDay.
// 12 AM is midnight (hour 0) and 12 PM is noon (hour 12).
func ParseLabel(label string) (TimeOfDay, error) {
	s := strings.ToUpper(strings.Join(strings.Fields(label), " "))
	if s == "" {
		return TimeOfDay{}, ErrInvalidTime
	}

	t, err := time.Parse(parseLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTime, label)
	}

	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// NormalizeLabel returns the canonical zero-padded form of label.
func NormalizeLabel(label string) (string, error) {
	tod, err := ParseLabel(label)
	if err != nil {
		return "", err
	}
	return tod.Label(), nil
}

func (t TimeOfDay) Label() string {
	return time.Date(2000, 1, 1, t.Hour, t.Minute, 0, 0, time.UTC).Format(labelLayout)
}

// Clock24 formats as "15:04".
func (t TimeOfDay) Clock24() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) add(d time.Duration) TimeOfDay {
	m := t.minutes() + int(d/time.Minute)
	return TimeOfDay{Hour: m / 60, Minute: m % 60}
}

func (t TimeOfDay) Before(o TimeOfDay) bool {
	return t.minutes() < o.minutes()
}

// On places t on the civil date of day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, loc)
}

// Instant combines an ISO civil date and a 12-hour label into an absolute time in loc.
func Instant(day time.Time, label string, loc *time.Location) (time.Time, error) {
	tod, err := ParseLabel(label)
	if err != nil {
		return time.Time{}, err
	}
	return tod.On(day, loc), nil
}

// ParseDate parses "2006-01-02" into a civil date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return d, nil
}

func FormatDate(day time.Time) string {
	return day.Format(dateLayout)
}

// Today returns the civil date of now as seen in loc, at UTC midnight.
func Today(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
