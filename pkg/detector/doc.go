// Package detector drives handlers over a source tree.
//
// # Rules
//
// A [Rule] pairs a handler constructor with the metadata the orchestrator
// needs: a unique name, its ecosystem group, whether it works without a
// build tool, and which other rules take precedence over it. A [RuleSet]
// orders rules once at construction with a stable topological sort over
// the precedence edges (ties broken by priority, then name), so the order
// never depends on registration order. Precedence cycles are rejected.
//
// # Orchestration
//
// [Orchestrator.Run] walks the tree down to the configured depth, skipping
// excluded directories, then evaluates every directory on a bounded worker
// pool. Inside one directory rules run in precedence order: a rule whose
// YieldsTo names a rule that was applicable in the same directory is
// recorded as yielded and not run. Each evaluation owns its handler
// instance, so nothing but the final report is shared between workers.
//
// Failures never stop a run. A handler panic becomes an exception result,
// a failed extraction is recorded, and a cancelled context marks the
// remaining evaluations cancelled.
package detector
