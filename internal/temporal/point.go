// Package temporal models hierarchical points on the BCE/CE time axis and the
// arithmetic used to move between them. The year axis is plain signed-integer
// (astronomical numbering): year 0 exists as a coordinate, negative years are
// rendered as BCE. Derived descriptors (season, time of day, era) are computed
// by lookup and never stored as ground truth.
package temporal

import (
	"fmt"
	"strings"
	"time"
)

// Unit is a step granularity for temporal navigation.
type Unit string

const (
	UnitSecond Unit = "second"
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitWeek   Unit = "week"
	UnitMonth  Unit = "month"
	UnitYear   Unit = "year"
)

// ParseUnit validates a unit string.
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	switch u {
	case UnitSecond, UnitMinute, UnitHour, UnitDay, UnitWeek, UnitMonth, UnitYear:
		return u, nil
	}
	return "", fmt.Errorf("unknown unit %q", s)
}

// Direction is the orientation of a navigation step.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// ParseDirection validates a direction string.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Forward, Backward:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Point is a hierarchical date/time coordinate. A field at granularity G is
// present only if every coarser granularity is present: month requires year
// (always present), day requires month, and so on down to seconds.
type Point struct {
	Year   int  `json:"year"`
	Month  *int `json:"month,omitempty"`
	Day    *int `json:"day,omitempty"`
	Hour   *int `json:"hour,omitempty"`
	Minute *int `json:"minute,omitempty"`
	Second *int `json:"second,omitempty"`
}

// NewPoint builds a point from a prefix of granularity values: year, then
// optionally month, day, hour, minute, second.
func NewPoint(year int, finer ...int) Point {
	p := Point{Year: year}
	fields := []**int{&p.Month, &p.Day, &p.Hour, &p.Minute, &p.Second}
	for i := range finer {
		if i >= len(fields) {
			break
		}
		v := finer[i]
		*fields[i] = &v
	}
	return p
}

// IsLeapYear reports whether the astronomical year is a proleptic Gregorian
// leap year. Go's % keeps the dividend's sign, so the rule holds for BCE
// years as well.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

var monthDays = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// DaysIn returns the number of days in the given month of the given year.
func DaysIn(year, month int) int {
	if month == 2 && IsLeapYear(year) {
		return 29
	}
	return monthDays[month]
}

// Validate checks the granularity chain and numeric ranges.
func (p Point) Validate() error {
	type field struct {
		name   string
		val    *int
		lo, hi int
	}
	chain := []field{
		{"month", p.Month, 1, 12},
		{"day", p.Day, 1, 31},
		{"hour", p.Hour, 0, 23},
		{"minute", p.Minute, 0, 59},
		{"second", p.Second, 0, 59},
	}
	seenGap := false
	for _, f := range chain {
		if f.val == nil {
			seenGap = true
			continue
		}
		if seenGap {
			return fmt.Errorf("%s set without its coarser fields", f.name)
		}
		if *f.val < f.lo || *f.val > f.hi {
			return fmt.Errorf("%s %d out of range [%d, %d]", f.name, *f.val, f.lo, f.hi)
		}
	}
	if p.Day != nil {
		if max := DaysIn(p.Year, *p.Month); *p.Day > max {
			return fmt.Errorf("day %d exceeds %d days in month %d of year %d", *p.Day, max, *p.Month, p.Year)
		}
	}
	return nil
}

// Granularity returns the finest unit the point carries.
func (p Point) Granularity() Unit {
	switch {
	case p.Second != nil:
		return UnitSecond
	case p.Minute != nil:
		return UnitMinute
	case p.Hour != nil:
		return UnitHour
	case p.Day != nil:
		return UnitDay
	case p.Month != nil:
		return UnitMonth
	default:
		return UnitYear
	}
}

// EraLabel renders the year with its BCE/CE era suffix.
func (p Point) EraLabel() string {
	if p.Year < 0 {
		return fmt.Sprintf("%d BCE", -p.Year)
	}
	return fmt.Sprintf("%d CE", p.Year)
}

// Season returns the northern-hemisphere season name, or "" without a month.
func (p Point) Season() string {
	if p.Month == nil {
		return ""
	}
	switch *p.Month {
	case 3, 4, 5:
		return "spring"
	case 6, 7, 8:
		return "summer"
	case 9, 10, 11:
		return "autumn"
	default:
		return "winter"
	}
}

// TimeOfDay returns a coarse label for the hour, or "" without an hour.
func (p Point) TimeOfDay() string {
	if p.Hour == nil {
		return ""
	}
	switch h := *p.Hour; {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 21:
		return "evening"
	default:
		return "night"
	}
}

var monthNames = [13]string{"", "January", "February", "March", "April", "May",
	"June", "July", "August", "September", "October", "November", "December"}

// Describe renders the point as prose at its own granularity, e.g.
// "the afternoon of July 4, 1776 CE" or "49 BCE".
func (p Point) Describe() string {
	var b strings.Builder
	if tod := p.TimeOfDay(); tod != "" {
		b.WriteString("the ")
		b.WriteString(tod)
		b.WriteString(" of ")
	}
	if p.Month != nil {
		b.WriteString(monthNames[*p.Month])
		if p.Day != nil {
			fmt.Fprintf(&b, " %d", *p.Day)
		}
		b.WriteString(", ")
	}
	b.WriteString(p.EraLabel())
	return b.String()
}

// toTime materializes the point as a UTC time, defaulting absent fields to
// their floor (January, day 1, midnight). Go's time package uses astronomical
// year numbering, which matches the point's axis.
func (p Point) toTime() time.Time {
	month, day, hour, minute, second := 1, 1, 0, 0, 0
	if p.Month != nil {
		month = *p.Month
	}
	if p.Day != nil {
		day = *p.Day
	}
	if p.Hour != nil {
		hour = *p.Hour
	}
	if p.Minute != nil {
		minute = *p.Minute
	}
	if p.Second != nil {
		second = *p.Second
	}
	return time.Date(p.Year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

// fineness orders units from coarse (year) to fine (second); week counts as
// day precision.
func fineness(u Unit) int {
	switch u {
	case UnitYear:
		return 0
	case UnitMonth:
		return 1
	case UnitDay, UnitWeek:
		return 2
	case UnitHour:
		return 3
	case UnitMinute:
		return 4
	default:
		return 5
	}
}

// fromTime reads a time back into a point carrying exactly the given
// granularity.
func fromTime(t time.Time, g Unit) Point {
	p := Point{Year: t.Year()}
	set := func(dst **int, v int) { *dst = &v }
	order := fineness(g)
	if order >= 1 {
		set(&p.Month, int(t.Month()))
	}
	if order >= 2 {
		set(&p.Day, t.Day())
	}
	if order >= 3 {
		set(&p.Hour, t.Hour())
	}
	if order >= 4 {
		set(&p.Minute, t.Minute())
	}
	if order >= 5 {
		set(&p.Second, t.Second())
	}
	return p
}
