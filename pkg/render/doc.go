// Package render turns extracted dependency graphs into human-readable
// artifacts.
//
// The [nodelink] subpackage produces Graphviz DOT and SVG diagrams. The
// file uploader writes them next to the JSON code location documents when
// the "dot" or "svg" formats are requested.
package render
