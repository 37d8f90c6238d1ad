// Package render exports dependency graphs for visualization.
package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/texpm/texpm/pkg/texparse"
)

// Graph is a dependency graph prepared for rendering: document nodes,
// package nodes, and the edges between them.
type Graph struct {
	nodes map[string]node
	edges []edge
}

type node struct {
	id   string
	kind texparse.DependencyKind
}

type edge struct {
	from, to string
}

// NewGraph builds a renderable graph from parsed dependencies. Each
// dependency becomes an edge from the document root to the declared
// name; file references and packages are shaded differently.
func NewGraph(root string, deps []texparse.Dependency) *Graph {
	g := &Graph{nodes: make(map[string]node)}
	g.nodes[root] = node{id: root}

	seen := make(map[string]bool)
	for _, d := range deps {
		if !seen[d.Name] {
			seen[d.Name] = true
			g.nodes[d.Name] = node{id: d.Name, kind: d.Kind}
		}
		key := root + "->" + d.Name
		if !seen[key] {
			seen[key] = true
			g.edges = append(g.edges, edge{from: root, to: d.Name})
		}
	}
	return g
}

// ToDOT converts the graph to Graphviz DOT format. The result can be
// rendered with [ToSVG] or fed to the dot tool directly.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(nodeAttrs(g.nodes[id]), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.from, e.to)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n node) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.id)}
	switch {
	case n.kind == "":
		attrs = append(attrs, "fillcolor=lightblue")
	case !n.kind.Installable():
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	}
	return attrs
}

// ToSVG renders a DOT graph to SVG using Graphviz.
func ToSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
