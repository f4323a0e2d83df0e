package temporal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointValidate(t *testing.T) {
	t.Run("year alone is valid", func(t *testing.T) {
		assert.NoError(t, NewPoint(-49).Validate())
		assert.NoError(t, NewPoint(0).Validate())
	})

	t.Run("full chain is valid", func(t *testing.T) {
		assert.NoError(t, NewPoint(1776, 7, 4, 14, 30, 0).Validate())
	})

	t.Run("day without month is rejected", func(t *testing.T) {
		p := Point{Year: 1776}
		d := 4
		p.Day = &d
		assert.Error(t, p.Validate())
	})

	t.Run("hour without day is rejected", func(t *testing.T) {
		p := NewPoint(1776, 7)
		h := 14
		p.Hour = &h
		assert.Error(t, p.Validate())
	})

	t.Run("out of range fields are rejected", func(t *testing.T) {
		assert.Error(t, NewPoint(1776, 13).Validate())
		assert.Error(t, NewPoint(1776, 7, 32).Validate())
		assert.Error(t, NewPoint(1776, 7, 4, 24).Validate())
	})

	t.Run("day respects month length", func(t *testing.T) {
		assert.Error(t, NewPoint(2023, 2, 29).Validate())
		assert.NoError(t, NewPoint(2024, 2, 29).Validate())
	})
}

func TestIsLeapYear(t *testing.T) {
	assert.True(t, IsLeapYear(2024))
	assert.False(t, IsLeapYear(2023))
	assert.False(t, IsLeapYear(1900))
	assert.True(t, IsLeapYear(2000))
	// astronomical years: -4 is 5 BCE, divisible by 4
	assert.True(t, IsLeapYear(-4))
	assert.True(t, IsLeapYear(0))
}

func TestEraLabel(t *testing.T) {
	assert.Equal(t, "49 BCE", NewPoint(-49).EraLabel())
	assert.Equal(t, "0 CE", NewPoint(0).EraLabel())
	assert.Equal(t, "1776 CE", NewPoint(1776).EraLabel())
}

func TestGranularity(t *testing.T) {
	assert.Equal(t, UnitYear, NewPoint(1776).Granularity())
	assert.Equal(t, UnitMonth, NewPoint(1776, 7).Granularity())
	assert.Equal(t, UnitDay, NewPoint(1776, 7, 4).Granularity())
	assert.Equal(t, UnitSecond, NewPoint(1776, 7, 4, 14, 30, 5).Granularity())
}

func TestDerivedDescriptors(t *testing.T) {
	t.Run("season needs a month", func(t *testing.T) {
		assert.Equal(t, "", NewPoint(1776).Season())
		assert.Equal(t, "summer", NewPoint(1776, 7).Season())
		assert.Equal(t, "winter", NewPoint(1776, 12).Season())
		assert.Equal(t, "spring", NewPoint(1776, 3).Season())
	})

	t.Run("time of day needs an hour", func(t *testing.T) {
		assert.Equal(t, "", NewPoint(1776, 7, 4).TimeOfDay())
		assert.Equal(t, "morning", NewPoint(1776, 7, 4, 6).TimeOfDay())
		assert.Equal(t, "afternoon", NewPoint(1776, 7, 4, 14).TimeOfDay())
		assert.Equal(t, "evening", NewPoint(1776, 7, 4, 19).TimeOfDay())
		assert.Equal(t, "night", NewPoint(1776, 7, 4, 2).TimeOfDay())
	})
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "49 BCE", NewPoint(-49).Describe())
	assert.Equal(t, "July, 1776 CE", NewPoint(1776, 7).Describe())
	assert.Equal(t, "July 4, 1776 CE", NewPoint(1776, 7, 4).Describe())
	assert.Equal(t, "the afternoon of July 4, 1776 CE", NewPoint(1776, 7, 4, 14).Describe())
}

func TestPointJSON(t *testing.T) {
	p := NewPoint(-49, 1, 10)
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"year": -49, "month": 1, "day": 10}`, string(raw))

	var back Point
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, p, back)
	assert.Nil(t, back.Hour)
}

func TestParseUnit(t *testing.T) {
	u, err := ParseUnit(" Day ")
	require.NoError(t, err)
	assert.Equal(t, UnitDay, u)

	_, err = ParseUnit("fortnight")
	assert.Error(t, err)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("BACKWARD")
	require.NoError(t, err)
	assert.Equal(t, Backward, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}
