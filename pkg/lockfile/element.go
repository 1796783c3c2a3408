package lockfile

import (
	"strings"
)

// ElementParser claims and consumes body lines of one shape.
type ElementParser interface {
	// Applies reports whether the parser handles line. It has no side effects.
	Applies(line string) bool
	// Parse consumes lines starting at index i, updates b and returns the
	// index of the first line it did not consume.
	Parse(b *EntryBuilder, lines []string, i int) int
}

// ParseHeader splits an entry header into its identities. Both the classic
// form (`"a@^1", "a@^2":`) and the single-quoted list form
// (`"a@npm:^1, a@npm:^2":`) are accepted.
func ParseHeader(line string) []EntryID {
	s := strings.TrimSpace(line)
	s = strings.TrimSuffix(s, ":")

	var ids []EntryID
	for _, part := range strings.Split(s, ",") {
		token := Unquote(strings.TrimSpace(part))
		token = strings.Trim(token, `"`)
		if token == "" {
			continue
		}
		ids = append(ids, parseID(token))
	}
	return ids
}

// parseID splits at the first '@' that is not the leading scope marker, so
// "@scope/pkg@npm:other@^1" keeps the alias target in the range.
func parseID(token string) EntryID {
	at := strings.IndexByte(token[1:], '@')
	if at < 0 {
		return EntryID{Name: token}
	}
	at++
	return EntryID{Name: token[:at], VersionRange: token[at+1:]}
}

// KeyValueParser handles a scalar field at entry depth.
type KeyValueParser struct {
	Key string
	Set func(b *EntryBuilder, value string)
}

func (p KeyValueParser) Applies(line string) bool {
	if Depth(line) != 1 {
		return false
	}
	key, value := SplitKeyValue(line)
	return key == p.Key && value != ""
}

func (p KeyValueParser) Parse(b *EntryBuilder, lines []string, i int) int {
	_, value := SplitKeyValue(lines[i])
	p.Set(b, value)
	return i + 1
}

// DependencyListParser handles a nested list such as "dependencies:".
type DependencyListParser struct {
	Key      string
	Optional bool
}

func (p DependencyListParser) Applies(line string) bool {
	if Depth(line) != 1 {
		return false
	}
	key, value := SplitKeyValue(line)
	return key == p.Key && value == ""
}

// Parse consumes the header line and every deeper line below it. Only
// lines one level below the header are dependency rows; deeper lines belong
// to nested metadata and are skipped.
func (p DependencyListParser) Parse(b *EntryBuilder, lines []string, i int) int {
	i++
	for ; i < len(lines); i++ {
		line := lines[i]
		if isBlank(line) || isComment(line) {
			continue
		}
		depth := Depth(line)
		if depth < 2 {
			break
		}
		if depth > 2 {
			continue
		}
		name, rng := SplitKeyValue(line)
		if name == "" {
			continue
		}
		b.AddDependency(Dependency{Name: name, VersionRange: rng, Optional: p.Optional})
	}
	return i
}

// DefaultElementParsers returns the parsers for yarn lock files.
func DefaultElementParsers() []ElementParser {
	return []ElementParser{
		KeyValueParser{Key: "version", Set: func(b *EntryBuilder, v string) { _ = b.SetVersion(v) }},
		KeyValueParser{Key: "resolved", Set: func(b *EntryBuilder, v string) { b.SetResolved(v) }},
		KeyValueParser{Key: "resolution", Set: func(b *EntryBuilder, v string) { b.SetResolved(v) }},
		DependencyListParser{Key: "dependencies"},
		DependencyListParser{Key: "optionalDependencies", Optional: true},
	}
}
