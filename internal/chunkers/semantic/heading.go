package semantic

import (
	"regexp"
	"strings"
)

// sectionLabel matches enumerated labels ("1. Definitions", "2)") and
// short ALL-CAPS titles ("TERM AND TERMINATION").
var sectionLabel = regexp.MustCompile(`^(\d+[.)]?\s+\S.*|\d+[.)]?\s*$|[A-Z][A-Z\s.,&'\-]{1,60}$)`)

// IsStructuralHeading reports whether text looks like a section header
// even though the source did not mark it as one.
func IsStructuralHeading(text string, maxWords int) bool {
	words := strings.Fields(text)
	if len(words) == 0 || len(words) > maxWords {
		return false
	}
	return sectionLabel.MatchString(strings.TrimSpace(text))
}
