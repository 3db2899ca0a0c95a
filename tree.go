package sqlorm

import (
	"slices"
	"strings"

	"github.com/syssam/sqlorm/dialect/sql"
)

// relTree is an ordered tree of relation names. Children keep the order in
// which they were first added, so that aliases are minted deterministically.
type relTree struct {
	names []string
	nodes map[string]*relNode
}

// relNode is a relation of a relTree with the conditions and query
// customizers attached to it.
type relNode struct {
	conds    []sql.Expr
	handlers []func(*Query)
	children *relTree
}

func newTree() *relTree {
	return &relTree{nodes: map[string]*relNode{}}
}

// treeify builds a tree from dotted relation paths.
func treeify(paths ...string) *relTree {
	t := newTree()
	for _, p := range paths {
		t.add(p)
	}
	return t
}

// add inserts the nodes of a dotted path and returns the last one.
func (t *relTree) add(path string) *relNode {
	var n *relNode
	cur := t
	for _, name := range strings.Split(path, ".") {
		if name == "" {
			continue
		}
		var ok bool
		if n, ok = cur.nodes[name]; !ok {
			n = &relNode{}
			cur.nodes[name] = n
			cur.names = append(cur.names, name)
		}
		if n.children == nil {
			n.children = newTree()
		}
		cur = n.children
	}
	return n
}

// empty reports whether the tree has no node.
func (t *relTree) empty() bool {
	return t == nil || len(t.names) == 0
}

// clone returns a deep copy of the tree.
func (t *relTree) clone() *relTree {
	c := newTree()
	if t == nil {
		return c
	}
	for _, name := range t.names {
		n := t.nodes[name]
		c.names = append(c.names, name)
		c.nodes[name] = n.clone()
	}
	return c
}

func (n *relNode) clone() *relNode {
	return &relNode{
		conds:    slices.Clone(n.conds),
		handlers: slices.Clone(n.handlers),
		children: n.children.clone(),
	}
}

// merge adds the nodes of o to t. Conditions and handlers of nodes present
// in both trees are appended.
func (t *relTree) merge(o *relTree) {
	if o == nil {
		return
	}
	for _, name := range o.names {
		src := o.nodes[name]
		dst, ok := t.nodes[name]
		if !ok {
			t.nodes[name] = src.clone()
			t.names = append(t.names, name)
			continue
		}
		dst.conds = append(dst.conds, src.conds...)
		dst.handlers = append(dst.handlers, src.handlers...)
		if dst.children == nil {
			dst.children = newTree()
		}
		dst.children.merge(src.children)
	}
}

// paths returns the dotted paths of the leaves of the tree.
func (t *relTree) paths() []string {
	var out []string
	if t == nil {
		return out
	}
	for _, name := range t.names {
		children := t.nodes[name].children
		if children.empty() {
			out = append(out, name)
			continue
		}
		for _, p := range children.paths() {
			out = append(out, name+"."+p)
		}
	}
	return out
}
