// Package io provides JSON import and export for dependency graphs.
//
// # JSON Format
//
//	{
//	  "nodes": [
//	    {"id": "__project__", "meta": {"virtual": true}},
//	    {"id": "npmjs:lodash@4.17.21", "name": "lodash", "version": "4.17.21", "forge": "npmjs"}
//	  ],
//	  "edges": [
//	    {"from": "__project__", "to": "npmjs:lodash@4.17.21"}
//	  ]
//	}
//
// Nodes are written in insertion order and edges in insertion order, so the
// same graph always serializes to the same bytes. [Graph] is exported for
// documents that embed a graph, such as uploaded code locations and cached
// extractions.
//
// # Import
//
// [ReadJSON] and [ImportJSON] rebuild a graph and reject duplicate node IDs
// and edges to unknown nodes. Cycles are accepted; see the dag package.
package io
