// Package codelocation aggregates the code locations a run produces and
// folds them into the final result set.
//
// A sink registers what it produced in an [Accumulator]. Results that are
// final when registered (a file written to disk) are non-waitable and are
// added by name. Results whose completion happens elsewhere (a collector
// processing an upload) are added as a [Waitable] handle. The
// [Calculator] waits on every handle, each under its own timeout, and
// returns the union of everything that completed plus a failure record per
// handle that did not. One failed or timed-out handle never cancels its
// siblings.
package codelocation
