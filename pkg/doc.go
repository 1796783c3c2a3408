// Package pkg holds the stackscan libraries.
//
// # Overview
//
// Stackscan walks a source tree, works out which package managers and
// build tools are in use, extracts a dependency graph from each and hands
// the graphs on as code locations. The libraries are layered leaf-first:
//
//  1. [steps] and [lockfile] - small text pipelines used by handlers whose
//     input has no ready-made parser
//  2. [detect] - the handler contract: requirements, results, extractions
//  3. [detectables] - the built-in handlers (bazel, yarn, npm, cargo, Go
//     modules, govendor, pubspec)
//  4. [detector] - the orchestrator that runs every rule in every directory
//  5. [codelocation] - accumulates code locations and waits on the
//     asynchronous ones
//  6. [pipeline] and [upload] - one detect run end to end, and its sinks
//
// # Data Flow
//
//	source tree
//	     ↓
//	[detector] walk + rule lifecycle (applicable → extractable → extract)
//	     ↓
//	[detect.Extraction] graph + optional project identity
//	     ↓
//	[pipeline] project decision, code locations
//	     ↓
//	[upload] file sink / collector  →  [codelocation] accumulator + calculator
//
// # Quick Start
//
//	rules, _ := detectables.RuleSet(detectables.Options{})
//	orch, _ := detector.New(rules, detector.WithMaxDepth(2))
//
//	runner := pipeline.NewRunner(orch, nil, log.Default())
//	res, err := runner.Execute(ctx, pipeline.Options{Root: "."})
//	if err != nil {
//	    return err
//	}
//	for _, name := range res.Locations.Names {
//	    fmt.Println(name)
//	}
//
// # Supporting Packages
//
// [dag] is the dependency graph every handler produces, [io] its JSON wire
// form. [cache] stores extractions keyed by input fingerprints. [store]
// persists code locations for the collector. [executable] runs external
// tools with timeouts. [httputil] and [observability] carry the HTTP
// client and instrumentation hooks. [render] draws graphs as DOT and SVG.
// [errors] defines the coded errors used throughout.
package pkg
