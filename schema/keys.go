package schema

import (
	"strings"
	"unicode"
)

// ColumnKey normalizes a CSV header into the key used everywhere else:
// lower case, camelCase split, and every run of punctuation or spaces
// collapsed into a single underscore.
//
//	"Story Points"       → "story_points"
//	"issueType"          → "issue_type"
//	"S.S.C (GPA)"        → "s_s_c_gpa"
//	"1st Year Semester 1" → "1st_year_semester_1"
func ColumnKey(s string) string {
	runes := []rune(strings.TrimSpace(s))
	var b strings.Builder
	pendingSep := false
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingSep = b.Len() > 0
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			if unicode.IsLower(prev) || unicode.IsDigit(prev) {
				pendingSep = b.Len() > 0
			}
		}
		if pendingSep {
			b.WriteRune('_')
			pendingSep = false
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// toDisplayName cleans a header for human display.
// "story_points" → "Story Points", "Year of Study" stays as is.
func toDisplayName(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, " ") {
		return strings.Join(strings.Fields(s), " ")
	}

	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")

	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[:1])) + strings.ToLower(string(r[1:]))
	}
	return strings.Join(words, " ")
}
