package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEra(t *testing.T) {
	t.Run("region hint picks the specific era", func(t *testing.T) {
		assert.Equal(t, "the American Revolution", Era(1780, "Philadelphia, America"))
		assert.Equal(t, "the Roman Republic", Era(-49, "the Rubicon, northern Rome"))
	})

	t.Run("overlapping ranges fall back to first match", func(t *testing.T) {
		// 1776 sits inside both colonial America and the Revolution; with no
		// location hint the earlier-listed range wins.
		assert.Equal(t, "colonial America", Era(1776, ""))
	})

	t.Run("unmatched year returns empty", func(t *testing.T) {
		assert.Equal(t, "", Era(-5000, "anywhere"))
	})

	t.Run("global eras need no region", func(t *testing.T) {
		assert.Equal(t, "the Second World War", Era(1942, "Stalingrad"))
	})
}

func TestNegativePrompts(t *testing.T) {
	generic := NegativePrompts(-5000, "")
	assert.Contains(t, generic, "modern clothing")

	rev := NegativePrompts(1780, "Philadelphia, America")
	assert.Contains(t, rev, "modern clothing")
	assert.Contains(t, rev, "victorian dress")
	assert.Greater(t, len(rev), len(generic))
}
