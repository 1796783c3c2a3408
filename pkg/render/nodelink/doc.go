// Package nodelink renders dependency graphs as node-link diagrams.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Title: loc.Name()})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// The DOT output uses top-to-bottom layout (rankdir=TB) with rounded box
// nodes labelled name@version. The virtual project root is drawn as an
// ellipse. Set [Options].Detailed to include the forge and node metadata.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering, so no Graphviz installation is required.
package nodelink
