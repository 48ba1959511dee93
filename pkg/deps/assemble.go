package deps

import (
	"encoding/json"
	"strings"
)

// ErrorPrefix is prepended to the name of error leaves.
const ErrorPrefix = "Error: "

// Tree is the externally exposed dependency tree. It is built once by
// [Assemble] and never mutated afterwards.
//
// Exactly one of the following holds for every node:
//   - resolved: Children is non-nil (possibly empty)
//   - error leaf: Name starts with [ErrorPrefix] and Error holds the reason
//   - reference leaf: Ref is set, the package is an ancestor on this path
//   - stub: Truncated is set, the package was not expanded here
type Tree struct {
	Name      string
	Version   string
	Children  []*Tree
	Error     string
	Ref       bool
	Truncated bool
}

type treeJSON struct {
	Name      string   `json:"name"`
	Version   string   `json:"version,omitempty"`
	Children  *[]*Tree `json:"children,omitempty"`
	Error     string   `json:"error,omitempty"`
	Ref       bool     `json:"ref,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}

// MarshalJSON emits "children" for resolved nodes, including "[]" when a
// package has no dependencies, and omits it for leaves.
func (t Tree) MarshalJSON() ([]byte, error) {
	out := treeJSON{
		Name:      t.Name,
		Version:   t.Version,
		Error:     t.Error,
		Ref:       t.Ref,
		Truncated: t.Truncated,
	}
	if t.Children != nil {
		children := t.Children
		out.Children = &children
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a tree written by MarshalJSON.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var in treeJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*t = Tree{
		Name:      in.Name,
		Version:   in.Version,
		Error:     in.Error,
		Ref:       in.Ref,
		Truncated: in.Truncated,
	}
	if in.Children != nil {
		t.Children = *in.Children
		if t.Children == nil {
			t.Children = []*Tree{}
		}
	}
	return nil
}

// IsError reports whether t is an error leaf.
func (t *Tree) IsError() bool { return t.Error != "" || strings.HasPrefix(t.Name, ErrorPrefix) }

// IsLeaf reports whether t has nothing below it: error leaves, cycle
// references, stubs and packages without dependencies.
func (t *Tree) IsLeaf() bool { return len(t.Children) == 0 }

// PackageName returns the package name with any error prefix removed.
func (t *Tree) PackageName() string { return strings.TrimPrefix(t.Name, ErrorPrefix) }

// Walk calls fn for t and every descendant in depth-first, declaration
// order. Returning false from fn skips the node's children.
func (t *Tree) Walk(fn func(node *Tree, depth int) bool) {
	var visit func(*Tree, int)
	visit = func(n *Tree, depth int) {
		if !fn(n, depth) {
			return
		}
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t, 0)
}

// Find returns the first node (depth-first) whose package name is name.
func (t *Tree) Find(name string) *Tree {
	var found *Tree
	t.Walk(func(n *Tree, _ int) bool {
		if found != nil {
			return false
		}
		if n.PackageName() == name {
			found = n
			return false
		}
		return true
	})
	return found
}

// Count returns the number of nodes in the tree.
func (t *Tree) Count() int {
	n := 0
	t.Walk(func(*Tree, int) bool { n++; return true })
	return n
}

// AssembleOptions bounds the assembled tree.
type AssembleOptions struct {
	MaxDepth int // Deepest expanded level, root is 0 (0 = unbounded)
	MaxNodes int // Nodes to expand before falling back to stubs (0 = unbounded)
}

// Assemble builds the tree rooted at root from the cache. It only reads the
// cache and never fetches. A root that is missing or failed yields an error
// leaf.
func Assemble(c *Cache, root string, opts AssembleOptions) *Tree {
	a := &assembler{cache: c, opts: opts, path: make(map[string]bool)}
	entry, ok := c.Lookup(root)
	if !ok {
		return &Tree{Name: ErrorPrefix + root, Error: "not requested"}
	}
	return a.node(entry, DependencyRef{Name: root}, 0)
}

type assembler struct {
	cache   *Cache
	opts    AssembleOptions
	path    map[string]bool
	emitted int
}

func (a *assembler) node(entry *Entry, ref DependencyRef, depth int) *Tree {
	a.emitted++
	switch entry.State() {
	case Failed:
		return errorLeaf(entry.Marker())
	case Reserved:
		return &Tree{Name: ErrorPrefix + ref.Name, Error: ReasonTimedOut}
	}

	pkg := entry.Package()
	view := toEdgeView(pkg)
	t := &Tree{Name: view.Name, Version: view.Version, Children: make([]*Tree, 0, len(pkg.Children))}

	a.path[pkg.Name] = true
	defer delete(a.path, pkg.Name)

	for _, child := range pkg.Children {
		t.Children = append(t.Children, a.child(child, depth+1))
	}
	return t
}

func (a *assembler) child(ref DependencyRef, depth int) *Tree {
	entry, ok := a.cache.Lookup(ref.Name)
	if !ok {
		return stub(ref)
	}
	if entry.State() == Resolved {
		if a.path[ref.Name] {
			a.emitted++
			view := toEdgeView(entry.Package())
			return &Tree{Name: view.Name, Version: view.Version, Ref: true}
		}
		if a.opts.MaxDepth > 0 && depth > a.opts.MaxDepth {
			return stub(ref)
		}
		if a.opts.MaxNodes > 0 && a.emitted >= a.opts.MaxNodes {
			return stub(ref)
		}
	}
	return a.node(entry, ref, depth)
}

func stub(ref DependencyRef) *Tree {
	return &Tree{Name: ref.Name, Version: ref.Version, Truncated: true}
}

func errorLeaf(m *ErrorMarker) *Tree {
	return &Tree{Name: ErrorPrefix + m.Name, Error: m.Reason}
}
