package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/stackscan/pkg/dag"
)

// Graph is the JSON representation of a dag.DAG.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is the JSON representation of a dag.Node.
type Node struct {
	ID      string       `json:"id"`
	Name    string       `json:"name,omitempty"`
	Version string       `json:"version,omitempty"`
	Forge   string       `json:"forge,omitempty"`
	Meta    dag.Metadata `json:"meta,omitempty"`
}

// Edge is the JSON representation of a dag.Edge.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Encode converts g into its JSON representation.
func Encode(g *dag.DAG) Graph {
	nodes := g.Nodes()
	edges := g.Edges()
	out := Graph{
		Nodes: make([]Node, len(nodes)),
		Edges: make([]Edge, len(edges)),
	}
	for i, n := range nodes {
		out.Nodes[i] = Node{ID: n.ID, Name: n.Name, Version: n.Version, Forge: n.Forge, Meta: n.Meta}
		if len(n.Meta) == 0 {
			out.Nodes[i].Meta = nil
		}
	}
	for i, e := range edges {
		out.Edges[i] = Edge{From: e.From, To: e.To}
	}
	return out
}

// WriteJSON encodes g as indented JSON and writes it to w.
func WriteJSON(g *dag.DAG, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to a JSON file at path.
func ExportJSON(g *dag.DAG, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(g, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
