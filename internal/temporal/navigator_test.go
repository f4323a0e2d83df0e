package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFollowUpQuery(t *testing.T) {
	cont := Continuation{
		OriginalQuery: "the signing of the Declaration of Independence",
		Location:      "Pennsylvania State House, Philadelphia",
		Characters:    []string{"John Hancock", "Benjamin Franklin", "Charles Thomson"},
	}
	from := NewPoint(1776, 7, 4, 14)

	t.Run("forward carries anchors and the new coordinates", func(t *testing.T) {
		to := NewPoint(1776, 7, 5, 14)
		q := cont.FollowUpQuery(from, to, Forward)

		assert.Contains(t, q, "Continue this scene")
		assert.Contains(t, q, cont.OriginalQuery)
		assert.Contains(t, q, cont.Location)
		assert.Contains(t, q, "John Hancock, Benjamin Franklin, and Charles Thomson")
		assert.Contains(t, q, "July 5, 1776 CE")
		assert.Contains(t, q, "after the afternoon of July 4, 1776 CE")
	})

	t.Run("backward asks for the lead-up", func(t *testing.T) {
		to := NewPoint(1776, 7, 4, 11)
		q := cont.FollowUpQuery(from, to, Backward)

		assert.Contains(t, q, "leading up to this scene")
		assert.Contains(t, q, "shortly before")
	})

	t.Run("empty anchors are omitted", func(t *testing.T) {
		bare := Continuation{OriginalQuery: "Caesar crosses the Rubicon"}
		q := bare.FollowUpQuery(NewPoint(-49, 1, 10), NewPoint(-49, 1, 11), Forward)

		assert.NotContains(t, q, "remains at")
		assert.NotContains(t, q, "same characters")
		assert.Contains(t, q, "January 11, 49 BCE")
	})
}
