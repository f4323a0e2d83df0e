package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "caesar-crosses-the-rubicon-49-bce", Slugify("Caesar crosses the Rubicon!", -49))
	assert.Equal(t, "the-signing-1776-ce", Slugify("The   Signing", 1776))

	long := Slugify(strings.Repeat("very long query ", 10), 2024)
	assert.LessOrEqual(t, len(long), 48+len("-2024-ce"))
	assert.False(t, strings.HasPrefix(long, "-"))
}

func TestCharacterSetValidate(t *testing.T) {
	cs := &CharacterSet{}
	assert.Error(t, cs.Validate())

	for i := 0; i < 9; i++ {
		cs.Characters = append(cs.Characters, Character{Name: "x", Role: "background"})
	}
	assert.Error(t, cs.Validate())

	cs.Characters = cs.Characters[:8]
	assert.NoError(t, cs.Validate())

	cs.Characters[0].Name = " "
	assert.Error(t, cs.Validate())
}

func TestSceneHelpers(t *testing.T) {
	s := &Scene{
		Characters: []Character{{Name: "a"}, {Name: "b"}},
	}
	assert.Equal(t, []string{"a", "b"}, s.CharacterNames())
	assert.Equal(t, "", s.Location())

	s.Timeline = &Timeline{Location: "Rome"}
	assert.Equal(t, "Rome", s.Location())
}
