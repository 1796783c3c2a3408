package steps

import "regexp"

// Executor performs the steps of one kind.
type Executor interface {
	// Applies reports whether the executor handles steps of kind k.
	Applies(k Kind) bool
	// Process transforms lines according to step. It must not modify lines.
	Process(step Step, lines []string) []string
}

// FilterExecutor keeps lines matching at least one pattern.
type FilterExecutor struct{}

func (FilterExecutor) Applies(k Kind) bool { return k == Filter }

func (FilterExecutor) Process(step Step, lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if step.matches(line) {
			out = append(out, line)
		}
	}
	return out
}

// ExtractExecutor replaces each matching line with the first capturing
// group of the first matching pattern.
type ExtractExecutor struct{}

func (ExtractExecutor) Applies(k Kind) bool { return k == Extract }

func (ExtractExecutor) Process(step Step, lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if v, ok := extract(step.patterns, line); ok {
			out = append(out, v)
		}
	}
	return out
}

func extract(patterns []*regexp.Regexp, line string) (string, bool) {
	for _, re := range patterns {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if len(m) > 1 {
			return m[1], true
		}
		return m[0], true
	}
	return "", false
}

// EditExecutor rewrites matches in place.
type EditExecutor struct{}

func (EditExecutor) Applies(k Kind) bool { return k == Edit }

func (EditExecutor) Process(step Step, lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		for _, re := range step.patterns {
			line = re.ReplaceAllString(line, step.replacement)
		}
		out[i] = line
	}
	return out
}

// SplitExecutor splits lines on every pattern and drops empty fields.
type SplitExecutor struct{}

func (SplitExecutor) Applies(k Kind) bool { return k == Split }

func (SplitExecutor) Process(step Step, lines []string) []string {
	fields := append([]string(nil), lines...)
	for _, re := range step.patterns {
		var next []string
		for _, f := range fields {
			for _, part := range re.Split(f, -1) {
				if part != "" {
					next = append(next, part)
				}
			}
		}
		fields = next
	}
	if fields == nil {
		return []string{}
	}
	return fields
}

// DefaultExecutors returns one executor for every built-in kind.
func DefaultExecutors() []Executor {
	return []Executor{FilterExecutor{}, ExtractExecutor{}, EditExecutor{}, SplitExecutor{}}
}
