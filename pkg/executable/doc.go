// Package executable resolves external tools and runs them with bounded
// lifetimes.
//
// [Resolver] answers "where is bazel?" once per name and remembers the
// answer for the rest of the run. [Runner] executes a [Command] with a
// timeout; on timeout or cancellation the whole process group is killed and
// the call returns instead of hanging the worker that issued it.
package executable
