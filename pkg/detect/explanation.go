package detect

import "fmt"

// ExplanationKind says what a passed check found.
type ExplanationKind string

const (
	ExplainFoundFile        ExplanationKind = "found-file"
	ExplainFoundExecutable  ExplanationKind = "found-executable"
	ExplainPropertyProvided ExplanationKind = "property-provided"
	ExplainNote             ExplanationKind = "note"
)

// Explanation records why a handler matched.
type Explanation struct {
	Kind    ExplanationKind
	Subject string
	Detail  string
}

// FoundFile explains that path exists.
func FoundFile(path string) Explanation {
	return Explanation{Kind: ExplainFoundFile, Subject: path}
}

// FoundExecutable explains that name resolved to path.
func FoundExecutable(name, path string) Explanation {
	return Explanation{Kind: ExplainFoundExecutable, Subject: name, Detail: path}
}

// PropertyProvided explains that a configuration property was set.
func PropertyProvided(property string) Explanation {
	return Explanation{Kind: ExplainPropertyProvided, Subject: property}
}

// Note is a free-form explanation.
func Note(format string, args ...any) Explanation {
	return Explanation{Kind: ExplainNote, Subject: fmt.Sprintf(format, args...)}
}

func (e Explanation) String() string {
	switch e.Kind {
	case ExplainFoundFile:
		return "Found file: " + e.Subject
	case ExplainFoundExecutable:
		return fmt.Sprintf("Found executable: %s (%s)", e.Subject, e.Detail)
	case ExplainPropertyProvided:
		return "Property provided: " + e.Subject
	default:
		return e.Subject
	}
}
