package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// GeneralTherapist labels services whose name carries no therapist segment.
const GeneralTherapist = "General"

var (
	// Case-insensitive, so any lowercase word pair between dashes reads as
	// a name: "Massage - deep tissue - Jane" yields "deep tissue".
	therapistPattern     = regexp.MustCompile(`(?i)\s-\s([A-Z][a-z]+(?:\s+[A-Z]\.?)?(?:\s+[A-Z][a-z]+)?)\s*(?:-|$|\d|')`)
	durationShapePattern = regexp.MustCompile(`(?i)^\d+\s*(?:min|mins|minutes)?$`)
	durationTokenPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:minutes|mins|min|')`)
	trailingDashNumber   = regexp.MustCompile(`-\s*(\d+)\s*$`)

	baseTherapistSegment = regexp.MustCompile(`(?i)\s*-\s*[A-Z][a-z]+(?:\s+[A-Z]\.?)?(?:\s+[A-Z][a-z]+)?\s*(?:-|$)`)
	baseDurationToken    = regexp.MustCompile(`(?i)\s*-?\s*\d+\s*(?:minutes|mins|min|')\s*`)
	baseTrailingNumber   = regexp.MustCompile(`\s*-\s*\d+\s*$`)
	whitespaceRun        = regexp.MustCompile(`\s+`)
)

// ExtractTherapist finds a " - Name" segment in a service name. It returns
// GeneralTherapist when there is none or the segment is duration shaped.
func ExtractTherapist(name string) string {
	m := therapistPattern.FindStringSubmatch(name)
	if m == nil {
		return GeneralTherapist
	}
	therapist := strings.TrimSpace(m[1])
	if therapist == "" || durationShapePattern.MatchString(therapist) {
		return GeneralTherapist
	}
	return therapist
}

// DurationFromName reads "60min", "60 mins", "60'" or a trailing "- 60".
func DurationFromName(name string) int {
	if m := durationTokenPattern.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	if m := trailingDashNumber.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return 0
}

// ResolveDuration prefers the first positive structured field and falls
// back to the name.
func ResolveDuration(name string, fields ...int) int {
	for _, f := range fields {
		if f > 0 {
			return f
		}
	}
	return DurationFromName(name)
}

// BaseName strips therapist and duration segments from a service name so
// the durations of one treatment collapse into a single row.
func BaseName(name string) string {
	base := baseTherapistSegment.ReplaceAllString(name, " ")
	base = baseDurationToken.ReplaceAllString(base, "")
	base = baseTrailingNumber.ReplaceAllString(base, "")
	base = strings.TrimSpace(whitespaceRun.ReplaceAllString(base, " "))
	if base == "" {
		return strings.TrimSpace(name)
	}
	return base
}
