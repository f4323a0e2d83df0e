package temporal

import (
	"fmt"
	"strings"
)

// Continuation carries the narrative anchors of a completed scene so that a
// follow-up run stays continuous with it: same place, same people, new
// moment in time.
type Continuation struct {
	OriginalQuery string
	Location      string
	Characters    []string
}

// FollowUpQuery synthesizes the natural-language request for the next
// pipeline run. It always names the carried-forward location and characters
// and states the new temporal coordinates explicitly, so the generator is
// primed to continue the scene rather than invent an unrelated one.
func (c Continuation) FollowUpQuery(from, to Point, dir Direction) string {
	var b strings.Builder

	if dir == Backward {
		b.WriteString("Show the moments leading up to this scene: ")
	} else {
		b.WriteString("Continue this scene: ")
	}
	b.WriteString(strings.TrimSpace(c.OriginalQuery))
	b.WriteString(".")

	if c.Location != "" {
		fmt.Fprintf(&b, " The scene remains at %s.", c.Location)
	}
	if len(c.Characters) > 0 {
		fmt.Fprintf(&b, " Keep the same characters present: %s.", joinNames(c.Characters))
	}

	fmt.Fprintf(&b, " It is now %s", to.Describe())
	if season := to.Season(); season != "" {
		fmt.Fprintf(&b, ", in %s", season)
	}
	if dir == Backward {
		fmt.Fprintf(&b, ", shortly before %s.", from.Describe())
	} else {
		fmt.Fprintf(&b, ", after %s.", from.Describe())
	}
	b.WriteString(" Preserve continuity of setting, relationships, and ongoing action.")

	return b.String()
}

func joinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}
