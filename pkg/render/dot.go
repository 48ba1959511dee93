package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/matzehuels/depgraph/pkg/deps"
)

// Options configures DOT output.
type Options struct {
	// Versions appends the resolved version to node labels.
	Versions bool
	// Name is the graph identifier (default: "deps").
	Name string
}

type dotNode struct {
	id    string
	label string
	kind  nodeKind
}

type nodeKind int

const (
	kindResolved nodeKind = iota
	kindError
	kindStub
)

type dotEdge struct {
	from, to string
	back     bool
}

// ToDOT converts a tree to Graphviz DOT. Nodes are keyed by package name and
// emitted in first-seen order. Error leaves are drawn red, stubs dashed, and
// edges that close a cycle are drawn dashed.
func ToDOT(tree *deps.Tree, opts Options) string {
	name := opts.Name
	if name == "" {
		name = "deps"
	}

	var nodes []dotNode
	index := make(map[string]int)
	var edges []dotEdge
	seenEdge := make(map[[2]string]bool)

	addNode := func(t *deps.Tree) string {
		id := t.PackageName()
		kind := kindResolved
		switch {
		case t.IsError():
			id = t.Name
			kind = kindError
		case t.Truncated:
			kind = kindStub
		}
		if i, ok := index[id]; ok {
			// a resolved occurrence wins over a stub of the same package
			if nodes[i].kind == kindStub && kind == kindResolved {
				nodes[i].kind = kindResolved
			}
			return id
		}
		label := id
		if opts.Versions && t.Version != "" && kind != kindError {
			label += "\n" + t.Version
		}
		index[id] = len(nodes)
		nodes = append(nodes, dotNode{id: id, label: label, kind: kind})
		return id
	}

	var walk func(t *deps.Tree, parent string)
	walk = func(t *deps.Tree, parent string) {
		id := addNode(t)
		if parent != "" {
			key := [2]string{parent, id}
			if !seenEdge[key] {
				seenEdge[key] = true
				edges = append(edges, dotEdge{from: parent, to: id, back: t.Ref})
			}
		}
		for _, c := range t.Children {
			walk(c, id)
		}
	}
	if tree != nil {
		walk(tree, "")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", name)
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [color=\"#555555\"];\n")
	buf.WriteString("\n")

	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.id, strings.Join(nodeAttrs(n), ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		if e.back {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, constraint=false];\n", e.from, e.to)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.from, e.to)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n dotNode) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.label)}
	switch n.kind {
	case kindError:
		attrs = append(attrs, "color=\"#c0392b\"", "fontcolor=\"#c0392b\"", "fillcolor=\"#fdecea\"")
	case kindStub:
		attrs = append(attrs, "style=\"rounded,dashed\"", "color=\"#999999\"", "fontcolor=\"#999999\"")
	}
	return attrs
}
