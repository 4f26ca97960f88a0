package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tree is an ordered classification tree.
//
// Every level maps a classification value to the next level, in the order
// the value was first seen. The innermost level maps to a leaf: one
// projection in unique mode, otherwise every projection in arrival order.
type Tree struct {
	depth  int
	unique bool
	root   *node
}

type node struct {
	keys    []string
	entries map[string]*entry
}

type entry struct {
	child *node
	items []Projection
}

func newNode() *node {
	return &node{entries: make(map[string]*entry)}
}

// NewTree returns an empty tree with depth classification levels.
func NewTree(depth int, unique bool) *Tree {
	if depth < 1 {
		depth = 1
	}
	return &Tree{depth: depth, unique: unique, root: newNode()}
}

// Depth returns the number of classification levels.
func (t *Tree) Depth() int { return t.depth }

// Unique reports whether leaves hold a single projection.
func (t *Tree) Unique() bool { return t.unique }

// Len returns the number of distinct outermost keys.
func (t *Tree) Len() int { return len(t.root.keys) }

// get returns the entry for key, interning it when create is set.
func (n *node) get(key string, create bool) *entry {
	e, ok := n.entries[key]
	if !ok && create {
		e = &entry{}
		n.entries[key] = e
		n.keys = append(n.keys, key)
	}
	return e
}

// Insert files p under path, which must hold exactly Depth keys. In unique
// mode a repeated path replaces the stored projection but keeps its key
// position.
func (t *Tree) Insert(path []string, p Projection) error {
	if len(path) != t.depth {
		return fmt.Errorf("insert: path has %d keys, tree has %d levels", len(path), t.depth)
	}

	n := t.root
	for _, key := range path[:len(path)-1] {
		e := n.get(key, true)
		if e.child == nil {
			e.child = newNode()
		}
		n = e.child
	}

	leaf := n.get(path[len(path)-1], true)
	if t.unique {
		leaf.items = []Projection{p}
	} else {
		leaf.items = append(leaf.items, p)
	}
	return nil
}

// find walks path from the root and returns the node it ends on, or the leaf
// entry when path is complete.
func (t *Tree) find(path []string) (*node, *entry, bool) {
	n := t.root
	for i, key := range path {
		e := n.get(key, false)
		if e == nil {
			return nil, nil, false
		}
		if i == t.depth-1 {
			return nil, e, i == len(path)-1
		}
		n = e.child
	}
	return n, nil, true
}

// Keys returns the keys one level below path, in first-seen order.
func (t *Tree) Keys(path ...string) []string {
	if len(path) >= t.depth {
		return nil
	}
	n, _, ok := t.find(path)
	if !ok {
		return nil
	}
	out := make([]string, len(n.keys))
	copy(out, n.keys)
	return out
}

// Get returns the leaf at the full key path. In unique mode the slice holds
// exactly one projection.
func (t *Tree) Get(path ...string) ([]Projection, bool) {
	if len(path) != t.depth {
		return nil, false
	}
	_, e, ok := t.find(path)
	if !ok || e == nil {
		return nil, false
	}
	return e.items, true
}

// Walk calls fn for every leaf in key-first-seen order, depth first. It stops
// at the first error fn returns.
func (t *Tree) Walk(fn func(path []string, items []Projection) error) error {
	type frame struct {
		n    *node
		next int
	}

	stack := []frame{{n: t.root}}
	path := make([]string, 0, t.depth)

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.n.keys) {
			stack = stack[:len(stack)-1]
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			continue
		}

		key := top.n.keys[top.next]
		top.next++
		e := top.n.entries[key]

		if e.child == nil {
			leafPath := append(append([]string(nil), path...), key)
			if err := fn(leafPath, e.items); err != nil {
				return err
			}
			continue
		}

		path = append(path, key)
		stack = append(stack, frame{n: e.child})
	}
	return nil
}

// Flatten concatenates every leaf in key-first-seen order.
func (t *Tree) Flatten() []Projection {
	var out []Projection
	_ = t.Walk(func(_ []string, items []Projection) error {
		out = append(out, items...)
		return nil
	})
	return out
}

// MarshalJSON writes the tree as nested objects whose key order matches
// first-seen order. Leaves are arrays of projections, or a single projection
// in unique mode.
func (t *Tree) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.writeNode(&buf, t.root, 1); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tree) writeNode(buf *bytes.Buffer, n *node, level int) error {
	buf.WriteByte('{')
	for i, key := range n.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')

		e := n.entries[key]
		if level < t.depth {
			if err := t.writeNode(buf, e.child, level+1); err != nil {
				return err
			}
			continue
		}

		var v any = e.items
		if t.unique {
			v = e.items[0]
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return nil
}
