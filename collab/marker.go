package collab

import (
	"regexp"
	"strings"

	"github.com/hupe1980/agenthive/core"
)

// helpMarkerRe matches an in-band escalation marker of the form
// [REQUEST_HELP: role] payload, where the payload runs until the next
// bracketed tag or end of text.
var helpMarkerRe = regexp.MustCompile(`(?s)\[REQUEST_HELP:\s*(\w+)\s*\](.*?)(?:\[|$)`)

// ContainsHelpMarker reports whether text carries an escalation marker,
// cheap enough to gate the full parse.
func ContainsHelpMarker(text string) bool {
	return strings.Contains(text, "[REQUEST_HELP")
}

// ParseHelpMarker extracts the target role and help payload from an
// escalation marker embedded in agent output. It returns false when no
// marker is present or the named role is not recognized.
func ParseHelpMarker(text string) (core.Role, string, bool) {
	m := helpMarkerRe.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	role, ok := core.RoleByName(m[1])
	if !ok {
		return "", "", false
	}
	return role, strings.TrimSpace(m[2]), true
}
