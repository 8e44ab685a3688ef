// Package sqlescape escapes user-supplied keywords before they are embedded in
// LIKE patterns and quoted SQL literals.
//
// Security note: this is a pattern-escaping contract. It keeps LIKE wildcards
// and quote delimiters in a keyword from changing the meaning of the pattern
// it is embedded in. It is not an injection defense; predicates that do not
// need wildcard embedding bind their values as statement parameters instead.
package sqlescape

import "strings"

// EscapeChar is the LIKE escape character inserted by Escape.
const EscapeChar = "/"

// replacements is applied in order. The escape character itself goes first so
// escapes inserted by later entries are not escaped again.
var replacements = []struct{ old, new string }{
	{"/", "//"},
	{"'", "''"},
	{"[", "/["},
	{"]", "/]"},
	{"%", "/%"},
	{"&", "/&"},
	{"_", "/_"},
	{"(", "/("},
	{")", "/)"},
}

// Escape returns keyword with LIKE metacharacters prefixed by EscapeChar and
// single quotes doubled.
func Escape(keyword string) string {
	for _, r := range replacements {
		keyword = strings.ReplaceAll(keyword, r.old, r.new)
	}
	return keyword
}

// Like builds a quoted LIKE operand: prefix and suffix are raw pattern text
// (wildcards allowed) and keyword is escaped. The ESCAPE clause is included so
// the engine honours the inserted escapes.
func Like(prefix, keyword, suffix string) string {
	return "'" + prefix + Escape(keyword) + suffix + "' ESCAPE '" + EscapeChar + "'"
}

// Quote returns s as a single-quoted SQL string literal.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
