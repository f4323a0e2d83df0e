package temporal

import (
	"fmt"
	"time"
)

// Step produces a new point offset by count units of unit in the given
// direction.
//
// Sub-month units (second through week) follow proleptic Gregorian calendar
// rules via time.Time, so forward/backward steps round-trip exactly. Month
// steps advance the month index with year carry and clamp the day to the
// target month's length when it would overflow; the clamp is lossy and
// deliberately non-invertible. Year steps change only the year field (with
// the same day clamp for Feb 29).
//
// Fields finer than the point's own granularity are treated as their floor
// (January, day 1, midnight) for sub-month arithmetic; the result then
// carries granularity at least as fine as the stepped unit.
func Step(p Point, unit Unit, count int, dir Direction) (Point, error) {
	if err := p.Validate(); err != nil {
		return Point{}, fmt.Errorf("invalid point: %w", err)
	}
	if count < 1 {
		return Point{}, fmt.Errorf("count %d must be positive", count)
	}
	n := count
	if dir == Backward {
		n = -n
	}

	switch unit {
	case UnitYear:
		out := p
		out.Year += n
		clampDay(&out)
		return out, nil

	case UnitMonth:
		out := p
		month := 1
		if p.Month != nil {
			month = *p.Month
		}
		total := p.Year*12 + (month - 1) + n
		year := floorDiv(total, 12)
		m := total - year*12 + 1
		out.Year = year
		out.Month = &m
		clampDay(&out)
		return out, nil

	case UnitWeek, UnitDay, UnitHour, UnitMinute, UnitSecond:
		t := p.toTime()
		switch unit {
		case UnitWeek:
			t = t.AddDate(0, 0, 7*n)
		case UnitDay:
			t = t.AddDate(0, 0, n)
		case UnitHour:
			t = t.Add(time.Duration(n) * time.Hour)
		case UnitMinute:
			t = t.Add(time.Duration(n) * time.Minute)
		case UnitSecond:
			t = t.Add(time.Duration(n) * time.Second)
		}
		g := unit
		if fineness(p.Granularity()) > fineness(unit) {
			g = p.Granularity()
		}
		return fromTime(t, g), nil

	default:
		return Point{}, fmt.Errorf("unknown unit %q", unit)
	}
}

// clampDay bounds the day field to the (possibly new) month's length.
func clampDay(p *Point) {
	if p.Day == nil || p.Month == nil {
		return
	}
	if max := DaysIn(p.Year, *p.Month); *p.Day > max {
		d := max
		p.Day = &d
	}
}

// floorDiv divides rounding toward negative infinity, which keeps month
// carry correct across the BCE/CE boundary.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
