package detect

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind string

const (
	DiagFileNotFound         DiagnosticKind = "file-not-found"
	DiagExecutableNotFound   DiagnosticKind = "executable-not-found"
	DiagPropertyInsufficient DiagnosticKind = "property-insufficient"
	DiagPhaseException       DiagnosticKind = "phase-exception"
	DiagExtractionFailed     DiagnosticKind = "extraction-failed"
	DiagExtractionException  DiagnosticKind = "extraction-exception"
	DiagCodeLocationFailed   DiagnosticKind = "code-location-failed"
	DiagWarning              DiagnosticKind = "warning"
	DiagNote                 DiagnosticKind = "note"
)

// Diagnostic is a structured record for the reporting layer.
type Diagnostic struct {
	Kind    DiagnosticKind    `json:"kind"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

// Warning builds a warning diagnostic.
func Warning(format string, args ...any) Diagnostic {
	return Diagnostic{Kind: DiagWarning, Message: fmt.Sprintf(format, args...)}
}

// With returns a copy of d with key=value added to its context.
func (d Diagnostic) With(key, value string) Diagnostic {
	ctx := maps.Clone(d.Context)
	if ctx == nil {
		ctx = make(map[string]string, 1)
	}
	ctx[key] = value
	d.Context = ctx
	return d
}

func (d Diagnostic) String() string {
	if len(d.Context) == 0 {
		return fmt.Sprintf("[%s] %s", d.Kind, d.Message)
	}
	keys := slices.Sorted(maps.Keys(d.Context))
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + d.Context[k]
	}
	return fmt.Sprintf("[%s] %s (%s)", d.Kind, d.Message, strings.Join(pairs, " "))
}

// DiagnosticFor converts a failed phase result into a diagnostic.
func DiagnosticFor(r Result) Diagnostic {
	var kind DiagnosticKind
	switch r.(type) {
	case FileNotFound:
		kind = DiagFileNotFound
	case ExecutableNotFound:
		kind = DiagExecutableNotFound
	case PropertyInsufficient:
		kind = DiagPropertyInsufficient
	default:
		kind = DiagPhaseException
	}
	return Diagnostic{Kind: kind, Message: r.Description()}
}
