// Package detect defines the contract every dependency handler implements.
//
// # Lifecycle
//
// A [Detectable] is evaluated against one directory in three phases, in
// order. The first phase whose [Result] is not [Passed] stops the handler
// for that directory:
//
//  1. Applicable: cheap filesystem checks and configuration values. No
//     external processes.
//  2. Extractable: heavier preconditions, notably resolving executables.
//  3. Extract: the actual work. It always returns an [Extraction]; tool and
//     environment failures are captured as outcomes, never raised.
//
// # Requirements
//
// Each phase builds a fresh [Requirements] from the [Environment]. Check
// methods return the resolved value (a path) and record a failure when the
// value is missing, so a handler can keep running cheap checks:
//
//	func (d *Detectable) Applicable(env *detect.Environment) detect.Result {
//	    req := detect.NewRequirements(env)
//	    d.lockFile, _ = req.File("yarn.lock")
//	    d.packageJSON, _ = req.File("package.json")
//	    return req.Result()
//	}
//
// Result returns the first recorded failure, or Passed with the explanation
// trail of everything that was found. A Requirements belongs to exactly one
// phase; calling a check after Result panics.
//
// # Capabilities
//
// Handlers reach the outside world only through the [Environment]: a
// [FileFinder] for the filesystem, an [ExecutableResolver] for tools and a
// [ProcessRunner] for running them. Tests substitute fakes for all three.
package detect
