package detect

import (
	"path/filepath"
	"strings"
)

// Requirements accumulates the checks of one lifecycle phase. The first
// failure recorded wins; later checks still run and may add explanations
// but never replace it.
type Requirements struct {
	env          *Environment
	failure      Result
	explanations []Explanation
	resolved     bool
}

// NewRequirements starts a phase against env.
func NewRequirements(env *Environment) *Requirements {
	return &Requirements{env: env}
}

func (r *Requirements) check() {
	if r.resolved {
		panic("detect: Requirements used after Result")
	}
}

// Fail records res unless an earlier failure exists. Passed values are
// ignored.
func (r *Requirements) Fail(res Result) {
	r.check()
	if res == nil || res.Passed() || r.failure != nil {
		return
	}
	r.failure = res
}

// Explain attaches an explanation to the eventual Passed result.
func (r *Requirements) Explain(e Explanation) {
	r.check()
	r.explanations = append(r.explanations, e)
}

// Failed reports whether any check has failed so far.
func (r *Requirements) Failed() bool { return r.failure != nil }

// File requires pattern to exist in the environment's directory.
func (r *Requirements) File(pattern string) (string, bool) {
	return r.FileIn(r.env.Dir, pattern)
}

// FileIn requires pattern to exist in dir, typically a directory returned
// by an earlier check.
func (r *Requirements) FileIn(dir, pattern string) (string, bool) {
	r.check()
	path, ok := r.env.Files.Find(dir, pattern)
	if !ok {
		r.Fail(FileNotFound{Dir: dir, Pattern: pattern})
		return "", false
	}
	r.Explain(FoundFile(path))
	return path, true
}

// EitherFile requires at least one of patterns and returns the first found.
func (r *Requirements) EitherFile(patterns ...string) (string, bool) {
	r.check()
	for _, p := range patterns {
		if path, ok := r.env.Files.Find(r.env.Dir, p); ok {
			r.Explain(FoundFile(path))
			return path, true
		}
	}
	r.Fail(FileNotFound{Dir: r.env.Dir, Pattern: strings.Join(patterns, " or ")})
	return "", false
}

// OptionalFile looks for pattern without failing when it is absent.
func (r *Requirements) OptionalFile(pattern string) (string, bool) {
	r.check()
	path, ok := r.env.Files.Find(r.env.Dir, pattern)
	if ok {
		r.Explain(FoundFile(path))
	}
	return path, ok
}

// Executable requires name to resolve.
func (r *Requirements) Executable(name string) (string, bool) {
	r.check()
	path, ok := r.env.Executables.Resolve(name)
	if !ok {
		r.Fail(ExecutableNotFound{Name: name})
		return "", false
	}
	r.Explain(FoundExecutable(name, path))
	return path, true
}

// ExecutableFunc requires an executable located by resolve, for handlers
// that look in places other than the resolver (a wrapper script in the
// project, for instance). The returned path is made absolute against the
// environment's directory.
func (r *Requirements) ExecutableFunc(name string, resolve func() (string, bool)) (string, bool) {
	r.check()
	path, ok := resolve()
	if !ok {
		r.Fail(ExecutableNotFound{Name: name})
		return "", false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.env.Dir, path)
	}
	r.Explain(FoundExecutable(name, path))
	return path, true
}

// Property requires a user-supplied configuration value.
func (r *Requirements) Property(name, value string) bool {
	r.check()
	if strings.TrimSpace(value) == "" {
		r.Fail(PropertyInsufficient{Property: name, Reason: "a value must be provided"})
		return false
	}
	r.Explain(PropertyProvided(name))
	return true
}

// Result ends the phase. It returns the first recorded failure, or Passed
// carrying every explanation gathered.
func (r *Requirements) Result() Result {
	r.check()
	r.resolved = true
	if r.failure != nil {
		return r.failure
	}
	return Passed{Explanations: append([]Explanation(nil), r.explanations...)}
}
