package dag

import (
	"errors"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists. Use [DAG.EnsureNode] for idempotent insertion.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidEdgeEndpoint is returned by [DAG.Validate] when an edge
	// references a node that doesn't exist.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a directed cycle
	// exists. Extraction tolerates cycles (Go module graphs can contain
	// them); callers that need a strict DAG validate explicitly.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// RootID is the ID of the virtual node representing the scanned project.
// Direct dependencies are its children.
const RootID = "__project__"

// Metadata stores arbitrary key-value pairs attached to nodes or the graph.
type Metadata map[string]any

// Node is one dependency in the graph.
//
// ID is the external identifier (for example "maven:com.google.guava:guava:31.1"
// or "npm:lodash@4.17.21"); two nodes with the same ID are the same
// dependency no matter which handler produced them.
type Node struct {
	ID      string   // Unique external identifier
	Name    string   // Package name as the ecosystem spells it
	Version string   // Resolved version, empty when unknown
	Forge   string   // Ecosystem namespace: maven, npmjs, crates, golang, pub
	Meta    Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// IsRoot reports whether the node is the virtual project root.
func (n Node) IsRoot() bool { return n.ID == RootID }

// Edge is a directed "depends on" relationship.
type Edge struct {
	From string   // Dependent node ID
	To   string   // Dependency node ID
	Meta Metadata // Arbitrary key-value metadata (never nil after AddEdge)
}

// DAG is a directed dependency graph with a virtual project root.
//
// The zero value is not usable; use New. A DAG is not safe for concurrent use
// without external synchronization, and every handler invocation builds its
// own.
type DAG struct {
	nodes    map[string]*Node
	order    []string
	edges    []Edge
	edgeSet  map[[2]string]struct{}
	outgoing map[string][]string
	incoming map[string][]string
	meta     Metadata
}

// New creates an empty graph with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		edgeSet:  make(map[[2]string]struct{}),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node. Returns ErrInvalidNodeID if the ID is empty, or
// ErrDuplicateNodeID if the ID is already present.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	node := &n
	d.nodes[node.ID] = node
	d.order = append(d.order, node.ID)
	return nil
}

// EnsureNode adds n unless a node with the same ID exists and returns the
// node stored in the graph. Fields of an existing node are left untouched.
func (d *DAG) EnsureNode(n Node) (*Node, error) {
	if existing, ok := d.nodes[n.ID]; ok {
		return existing, nil
	}
	if err := d.AddNode(n); err != nil {
		return nil, err
	}
	return d.nodes[n.ID], nil
}

// AddEdge adds a directed edge between two existing nodes. Adding an edge
// that already exists is a no-op, so parsers may report the same relation
// from several places in a manifest.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	key := [2]string{e.From, e.To}
	if _, dup := d.edgeSet[key]; dup {
		return nil
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edgeSet[key] = struct{}{}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// AddRoot marks an existing node as a direct dependency of the project.
// The virtual root node is created on first use.
func (d *DAG) AddRoot(id string) error {
	if _, err := d.EnsureNode(Node{ID: RootID, Meta: Metadata{"virtual": true}}); err != nil {
		return err
	}
	return d.AddEdge(Edge{From: RootID, To: id})
}

// Link adds the edge from -> to, creating neither endpoint.
func (d *DAG) Link(from, to string) error {
	return d.AddEdge(Edge{From: from, To: to})
}

// RemoveEdge removes the edge from->to if it exists.
func (d *DAG) RemoveEdge(from, to string) {
	key := [2]string{from, to}
	if _, ok := d.edgeSet[key]; !ok {
		return
	}
	delete(d.edgeSet, key)
	d.edges = slices.DeleteFunc(d.edges, func(e Edge) bool { return e.From == from && e.To == to })
	d.outgoing[from] = slices.DeleteFunc(d.outgoing[from], func(s string) bool { return s == to })
	d.incoming[to] = slices.DeleteFunc(d.incoming[to], func(s string) bool { return s == from })
}

// Nodes returns all nodes, including the virtual root, in insertion order.
// The returned pointers refer to the graph's nodes.
func (d *DAG) Nodes() []*Node {
	nodes := make([]*Node, 0, len(d.order))
	for _, id := range d.order {
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// Dependencies returns every non-root node sorted by ID.
func (d *DAG) Dependencies() []*Node {
	nodes := make([]*Node, 0, len(d.nodes))
	for _, id := range slices.Sorted(maps.Keys(d.nodes)) {
		if id == RootID {
			continue
		}
		nodes = append(nodes, d.nodes[id])
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes, including the virtual root.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// DependencyCount returns the number of nodes excluding the virtual root.
func (d *DAG) DependencyCount() int {
	if _, ok := d.nodes[RootID]; ok {
		return len(d.nodes) - 1
	}
	return len(d.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the IDs of the node's dependencies in insertion order.
// The returned slice is a read-only view.
func (d *DAG) Children(id string) []string { return d.outgoing[id] }

// Parents returns the IDs of the node's dependents in insertion order.
// The returned slice is a read-only view.
func (d *DAG) Parents(id string) []string { return d.incoming[id] }

// Roots returns the IDs of the project's direct dependencies.
func (d *DAG) Roots() []string { return d.outgoing[RootID] }

// Node returns the node with the given ID.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns nodes with no incoming edges, sorted by ID.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for _, id := range slices.Sorted(maps.Keys(d.nodes)) {
		if len(d.incoming[id]) == 0 {
			sources = append(sources, d.nodes[id])
		}
	}
	return sources
}

// Sinks returns nodes with no outgoing edges, sorted by ID.
func (d *DAG) Sinks() []*Node {
	var sinks []*Node
	for _, id := range slices.Sorted(maps.Keys(d.nodes)) {
		if len(d.outgoing[id]) == 0 {
			sinks = append(sinks, d.nodes[id])
		}
	}
	return sinks
}

// Merge copies every node and edge of other into d. Nodes already present
// in d keep their fields. Graph metadata is not merged.
func (d *DAG) Merge(other *DAG) {
	if other == nil {
		return
	}
	for _, n := range other.Nodes() {
		cp := *n
		cp.Meta = maps.Clone(n.Meta)
		_, _ = d.EnsureNode(cp)
	}
	for _, e := range other.edges {
		_ = d.AddEdge(Edge{From: e.From, To: e.To, Meta: maps.Clone(e.Meta)})
	}
}

// Validate checks that every edge references existing nodes and that the
// graph is acyclic.
//
// Cycle detection runs in O(N+E) time using depth-first search.
func (d *DAG) Validate() error {
	for _, e := range d.edges {
		if _, ok := d.nodes[e.From]; !ok {
			return ErrInvalidEdgeEndpoint
		}
		if _, ok := d.nodes[e.To]; !ok {
			return ErrInvalidEdgeEndpoint
		}
	}
	return d.detectCycles()
}

func (d *DAG) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var hasCycle bool

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[id] = black
	}

	for _, id := range d.order {
		if color[id] == white {
			dfs(id)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// ExternalID builds the canonical node ID for a dependency.
// An empty version is omitted.
func ExternalID(forge, name, version string) string {
	var b strings.Builder
	b.WriteString(forge)
	b.WriteByte(':')
	b.WriteString(name)
	if version != "" {
		b.WriteByte('@')
		b.WriteString(version)
	}
	return b.String()
}

// Dependency returns a node for the given coordinates with its ID set by
// ExternalID.
func Dependency(forge, name, version string) Node {
	return Node{
		ID:      ExternalID(forge, name, version),
		Name:    name,
		Version: version,
		Forge:   forge,
	}
}
