package syllabus

import "strings"

var punctuationReplacer = strings.NewReplacer(
	"(", "",
	")", "",
	".", "",
	"&", "and",
	"-", " ",
)

// Normalize maps a free-text subject area name to the canonical key used for
// quota lookups. It is applied to syllabus keys and bank area names alike.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = punctuationReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
