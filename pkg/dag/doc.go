// Package dag provides the dependency graph every handler produces.
//
// # Overview
//
// A graph holds dependencies as nodes and "depends on" relations as edges.
// The scanned project itself is a virtual node, [RootID], whose children are
// the direct dependencies. Handlers build a fresh graph per extraction, so
// the type carries no locking.
//
//	g := dag.New(nil)
//	lodash := dag.Dependency("npmjs", "lodash", "4.17.21")
//	_, _ = g.EnsureNode(lodash)
//	_ = g.AddRoot(lodash.ID)
//
// # Identity
//
// Node IDs are external identifiers built by [ExternalID]. Two handlers that
// see the same package at the same version produce the same ID, which lets
// [DAG.Merge] fold graphs together without duplicates.
//
// # Cycles
//
// Real dependency data is not always acyclic (Go module graphs may contain
// cycles), so insertion never rejects a cycle. [DAG.Validate] reports
// [ErrGraphHasCycle] for callers that need the strict property.
package dag
