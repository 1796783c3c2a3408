package lockfile

import "strings"

// indentWidth is the number of spaces per nesting level in yarn lock files.
const indentWidth = 2

// Depth returns the nesting level of a line.
func Depth(line string) int {
	n := len(line) - len(strings.TrimLeft(line, " "))
	return n / indentWidth
}

// Unquote strips one pair of surrounding double quotes.
func Unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// SplitKeyValue splits a body line into its key and normalized value.
//
// The key may be quoted. It is followed by an optional ':' and whitespace.
// The value loses trailing whitespace and one pair of quotes. A line holding
// only a key (such as "dependencies:") yields an empty value.
func SplitKeyValue(line string) (key, value string) {
	s := strings.TrimSpace(line)
	if s == "" {
		return "", ""
	}

	var rest string
	if s[0] == '"' {
		end := strings.IndexByte(s[1:], '"')
		if end < 0 {
			return Unquote(s), ""
		}
		key, rest = s[1:end+1], s[end+2:]
	} else {
		end := strings.IndexAny(s, ": \t")
		if end < 0 {
			return s, ""
		}
		key, rest = s[:end], s[end:]
	}

	rest = strings.TrimPrefix(rest, ":")
	return key, Unquote(strings.TrimSpace(rest))
}

func isComment(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}
