// Package steps implements small declarative pipelines over line-oriented
// text.
//
// Handlers whose source format has no real grammar (build-graph query
// output, tool listings) describe the transformation as an ordered list of
// typed steps instead of writing a parser:
//
//	p, err := steps.New([]steps.Step{
//	    steps.MustStep(steps.Filter, `maven_coordinates=`),
//	    steps.MustStep(steps.Extract, `maven_coordinates=([^"]+)`),
//	})
//	coords := p.Run(lines)
//
// Every step kind is served by exactly one [Executor]. [New] checks the
// mapping before anything runs, so an unsupported kind is a configuration
// error rather than a per-line failure.
//
// # Semantics
//
// Patterns are searched, not anchored: a partial match anywhere on the line
// qualifies. A line survives [Filter] and [Extract] only when at least one
// pattern matches, so an empty pattern list drops every line for both kinds.
// [Extract] replaces a surviving line with the first capturing group of the
// first matching pattern, or with the whole match when the pattern has no
// group.
package steps
