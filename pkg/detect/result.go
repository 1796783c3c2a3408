package detect

import (
	"fmt"
	"strings"

	"github.com/matzehuels/stackscan/pkg/errors"
)

// Result is the verdict of the Applicable or Extractable phase. The
// concrete types are Passed, FileNotFound, ExecutableNotFound,
// PropertyInsufficient and Exception.
type Result interface {
	// Passed reports whether the phase allows the lifecycle to continue.
	Passed() bool
	// Code classifies a failed result. Passed results return "".
	Code() errors.Code
	// Description renders the verdict for users.
	Description() string
}

// Passed means every requirement of the phase was met.
type Passed struct {
	Explanations []Explanation
}

func (Passed) Passed() bool      { return true }
func (Passed) Code() errors.Code { return "" }

func (p Passed) Description() string {
	if len(p.Explanations) == 0 {
		return "Passed."
	}
	parts := make([]string, len(p.Explanations))
	for i, e := range p.Explanations {
		parts[i] = e.String()
	}
	return "Passed: " + strings.Join(parts, "; ")
}

// FileNotFound means a required file is absent. It is the ordinary "not
// applicable here" outcome.
type FileNotFound struct {
	Dir     string
	Pattern string
}

func (FileNotFound) Passed() bool      { return false }
func (FileNotFound) Code() errors.Code { return errors.ErrCodeFileNotFound }

func (r FileNotFound) Description() string {
	return fmt.Sprintf("No file was found with pattern %s in %s.", r.Pattern, r.Dir)
}

// ExecutableNotFound means a required tool could not be resolved.
type ExecutableNotFound struct {
	Name string
}

func (ExecutableNotFound) Passed() bool      { return false }
func (ExecutableNotFound) Code() errors.Code { return errors.ErrCodeExecutableNotFound }

func (r ExecutableNotFound) Description() string {
	return fmt.Sprintf("No %s executable was found. Install it or configure its path.", r.Name)
}

// PropertyInsufficient means the directory matches but configuration the
// user must supply is missing.
type PropertyInsufficient struct {
	Property string
	Reason   string
}

func (PropertyInsufficient) Passed() bool      { return false }
func (PropertyInsufficient) Code() errors.Code { return errors.ErrCodePropertyInsufficient }

func (r PropertyInsufficient) Description() string {
	if r.Reason != "" {
		return fmt.Sprintf("Property %s is insufficient: %s", r.Property, r.Reason)
	}
	return fmt.Sprintf("Property %s is required.", r.Property)
}

// Exception means the phase itself failed unexpectedly, for example a file
// that exists could not be read.
type Exception struct {
	Err error
}

func (Exception) Passed() bool      { return false }
func (Exception) Code() errors.Code { return errors.ErrCodeInternal }

func (r Exception) Description() string {
	return fmt.Sprintf("An unexpected error occurred: %v", r.Err)
}

// IsActionable reports whether a failed result should be shown to the user
// by default. Missing files are silent; everything else needs attention.
func IsActionable(r Result) bool {
	if r == nil || r.Passed() {
		return false
	}
	_, silent := r.(FileNotFound)
	return !silent
}
