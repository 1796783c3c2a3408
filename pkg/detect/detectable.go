package detect

import "context"

// Detectable is one handler evaluated against one directory. Instances
// carry state between phases (paths found by Applicable are used by
// Extract), so a fresh instance is created per directory.
type Detectable interface {
	Applicable(env *Environment) Result
	Extractable(env *Environment) Result
	Extract(ctx context.Context, env *Environment) *Extraction
}

// Fingerprinted is implemented by handlers whose extraction depends only on
// the content of a known set of files. Inputs is called after Extractable
// passed; the orchestrator may reuse a cached extraction when none of the
// inputs changed.
type Fingerprinted interface {
	Inputs() []string
}
