package temporal

import "strings"

// eraRange is a named historical era, optionally restricted to a region.
// Years use the signed axis (negative = BCE).
type eraRange struct {
	name   string
	start  int
	end    int
	region string
}

// Ordered coarse-to-fine; the first match wins when no region hint is given.
var eras = []eraRange{
	{"ancient Egypt", -3100, -30, "egypt"},
	{"ancient Greece", -800, -146, "greece"},
	{"the Roman Republic", -509, -27, "rome"},
	{"the Roman Empire", -27, 476, "rome"},
	{"the early medieval period", 476, 1000, "europe"},
	{"the high medieval period", 1000, 1300, "europe"},
	{"the late medieval period", 1300, 1500, "europe"},
	{"the Renaissance", 1400, 1600, "europe"},
	{"Tudor England", 1485, 1603, "england"},
	{"colonial America", 1607, 1776, "america"},
	{"the American Revolution", 1765, 1791, "america"},
	{"the French Revolution", 1789, 1799, "france"},
	{"the Napoleonic era", 1799, 1815, "france"},
	{"the Victorian era", 1837, 1901, "britain"},
	{"the American Civil War", 1861, 1865, "america"},
	{"the Edwardian era", 1901, 1910, "britain"},
	{"the First World War", 1914, 1918, ""},
	{"the interwar period", 1918, 1939, ""},
	{"the Second World War", 1939, 1945, ""},
	{"the Cold War", 1947, 1991, ""},
}

// Era names the historical era covering the year, preferring eras whose
// region appears in the location hint. Returns "" when nothing matches; the
// result is a descriptor, not ground truth.
func Era(year int, location string) string {
	loc := strings.ToLower(location)
	fallback := ""
	for _, e := range eras {
		if year < e.start || year > e.end {
			continue
		}
		if e.region == "" || loc == "" {
			if fallback == "" {
				fallback = e.name
			}
			continue
		}
		if strings.Contains(loc, e.region) {
			return e.name
		}
	}
	return fallback
}

// Era-specific exclusions for image synthesis, keyed by the era name returned
// by Era. Prevents concept bleed from visually adjacent periods.
var eraNegatives = map[string][]string{
	"ancient Greece":          {"roman toga", "gladiator armor", "hieroglyphics", "medieval knights", "castles"},
	"the Roman Republic":      {"medieval armor", "chainmail", "renaissance doublet", "greek parthenon idealization"},
	"the Roman Empire":        {"medieval armor", "chainmail", "renaissance clothing"},
	"the Renaissance":         {"roman toga", "medieval plate armor", "victorian dress", "electric lighting"},
	"the American Revolution": {"victorian dress", "civil war uniforms", "electric lighting", "photography equipment"},
	"the French Revolution":   {"roman toga", "laurel wreath", "victorian dress", "napoleonic bicorne before 1799"},
	"the Victorian era":       {"modern cars", "electric streetlights before 1880", "twentieth century fashion"},
}

// NegativePrompts returns era-appropriate exclusions for image generation,
// always including the generic anachronism set.
func NegativePrompts(year int, location string) []string {
	out := []string{"modern clothing", "wristwatches", "plastic", "contemporary signage"}
	if era := Era(year, location); era != "" {
		out = append(out, eraNegatives[era]...)
	}
	return out
}
