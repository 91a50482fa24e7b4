// Package hierarchy provides a generic ownership tree stored in an arena.
// Nodes are addressed by generation-checked Handles rather than pointers, so parent,
// root and child references are plain values and a stale reference is detected instead
// of dereferenced.
package hierarchy

import (
	"errors"
	"fmt"
	"iter"

	"github.com/tiendc/go-deepcopy"
)

// Errors returned by structural mutations.
var (
	ErrAlreadyParented = errors.New("hierarchy: node already has a parent")
	ErrCycle           = errors.New("hierarchy: attach would create a cycle")
	ErrStaleHandle     = errors.New("hierarchy: stale or invalid handle")
	ErrNotRoot         = errors.New("hierarchy: node is not a root")
)

// Handle addresses a node slot in a Tree. The zero Handle refers to no node.
type Handle struct {
	// Index is the slot position in the arena.
	Index uint32
	// Generation is incremented every time the slot is freed; a Handle whose
	// generation no longer matches the slot is stale.
	Generation uint32
}

// Nil is the zero Handle, used for "no parent".
var Nil = Handle{}

// IsNil reports whether h is the zero Handle.
func (h Handle) IsNil() bool {
	return h == Nil
}

func (h Handle) String() string {
	if h.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("%d@%d", h.Index, h.Generation)
}

// Node is a single arena slot. Fields are exported so the arena can be deep-copied
// by reflection; callers interact with nodes only through Tree methods.
type Node[T any] struct {
	ID         uint64
	Name       string
	Generation uint32
	Live       bool
	Parent     Handle
	Root       Handle
	Children   []Handle
	Value      T
}

// tree is the implementation of the Tree interface.
type tree[T any] struct {
	nodes  []Node[T]
	free   []uint32
	nextID uint64
	live   int
}

// Tree is a generic ownership tree. Every node is created standalone (rooted at itself),
// becomes owned through Attach and returns to a standalone tree through Detach.
//
// The cached root of every node always equals the node reached by walking parent links
// to the top; Attach and Detach re-stamp it across the moved subtree.
//
// Tree is not safe for concurrent mutation.
type Tree[T any] interface {
	// New creates a standalone node that is its own root.
	//
	// Parameters:
	//   - name: the display name of the node
	//   - value: the payload carried by the node
	//
	// Returns:
	//   - Handle: the handle of the new node
	New(name string, value T) Handle

	// Attach makes child the last child of parent.
	// Fails with ErrAlreadyParented if child already has a parent and with ErrCycle if child is
	// parent itself or one of its ancestors. A failed attach leaves both trees unchanged.
	//
	// Parameters:
	//   - parent: the owning node
	//   - child: the node to attach
	//
	// Returns:
	//   - bool: true if the child was added, false if it was already a child of parent
	//   - error: ErrAlreadyParented, ErrCycle or ErrStaleHandle
	Attach(parent, child Handle) (bool, error)

	// Detach removes child from parent's children. The detached node becomes the root of its own tree.
	//
	// Parameters:
	//   - parent: the owning node
	//   - child: the node to detach
	//
	// Returns:
	//   - bool: true if a removal occurred
	Detach(parent, child Handle) bool

	// DetachAt removes the child at index from parent's children.
	// Panics if index is out of range.
	//
	// Parameters:
	//   - parent: the owning node
	//   - index: the position of the child in insertion order
	//
	// Returns:
	//   - bool: true if a removal occurred
	DetachAt(parent Handle, index int) bool

	// DetachAll detaches every child of parent; each becomes a standalone tree.
	//
	// Parameters:
	//   - parent: the owning node
	DetachAll(parent Handle)

	// AncestorOf walks parent links upward from other, starting with other itself, and reports
	// whether node is met. A node is therefore its own ancestor.
	//
	// Parameters:
	//   - node: the candidate ancestor
	//   - other: the node to start the walk from
	//
	// Returns:
	//   - bool: true if node is other or one of its ancestors
	AncestorOf(node, other Handle) bool

	// IsRoot reports whether h has no parent.
	IsRoot(h Handle) bool

	// IsLeaf reports whether h has no children.
	IsLeaf(h Handle) bool

	// Parent returns the parent of h, or Nil for roots.
	Parent(h Handle) Handle

	// Root returns the cached root of h.
	Root(h Handle) Handle

	// ID returns the identity assigned to h at creation.
	ID(h Handle) uint64

	// Name returns the display name of h.
	Name(h Handle) string

	// SetName changes the display name of h.
	SetName(h Handle, name string)

	// Value returns a pointer to the payload of h. The pointer is invalidated by New.
	Value(h Handle) *T

	// SetValue replaces the payload of h.
	SetValue(h Handle, value T)

	// Child returns the child of parent at index. Panics if index is out of range.
	Child(parent Handle, index int) Handle

	// ChildCount returns the number of immediate children of parent.
	ChildCount(parent Handle) int

	// Children yields the immediate children of parent in insertion order.
	// The sequence reads live membership; callers must not mutate the tree while iterating.
	Children(parent Handle) iter.Seq[Handle]

	// Walk yields root and all of its descendants in pre-order (children in insertion order).
	Walk(root Handle) iter.Seq[Handle]

	// Free releases a root node and its entire subtree. Handles into the freed subtree become stale.
	//
	// Parameters:
	//   - h: a root node
	//
	// Returns:
	//   - error: ErrNotRoot if h has a parent, ErrStaleHandle if h is not valid
	Free(h Handle) error

	// Valid reports whether h refers to a live node of this tree.
	Valid(h Handle) bool

	// Len returns the number of live nodes.
	Len() int

	// Clone returns a deep copy of the arena. Handles valid in the source are valid in the
	// copy and address the corresponding nodes.
	Clone() Tree[T]
}

var _ Tree[struct{}] = &tree[struct{}]{}

// NewTree creates an empty Tree.
//
// Parameters:
//   - options: variadic list of TreeBuilderOption functions to configure the Tree
//
// Returns:
//   - Tree[T]: the new tree
func NewTree[T any](options ...TreeBuilderOption) Tree[T] {
	cfg := treeConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	t := &tree[T]{
		nodes: make([]Node[T], 0, cfg.capacity),
	}
	return t
}

func (t *tree[T]) New(name string, value T) Handle {
	t.nextID++
	var h Handle
	if n := len(t.free); n > 0 {
		idx := t.free[n-1]
		t.free = t.free[:n-1]
		h = Handle{Index: idx, Generation: t.nodes[idx].Generation}
	} else {
		t.nodes = append(t.nodes, Node[T]{Generation: 1})
		h = Handle{Index: uint32(len(t.nodes) - 1), Generation: 1}
	}
	n := &t.nodes[h.Index]
	n.ID = t.nextID
	n.Name = name
	n.Live = true
	n.Parent = Nil
	n.Root = h
	n.Children = nil
	n.Value = value
	t.live++
	return h
}

func (t *tree[T]) Attach(parent, child Handle) (bool, error) {
	if !t.Valid(parent) || !t.Valid(child) {
		return false, ErrStaleHandle
	}
	c := &t.nodes[child.Index]
	if !c.Parent.IsNil() {
		if c.Parent == parent {
			return false, nil
		}
		return false, ErrAlreadyParented
	}
	if t.AncestorOf(child, parent) {
		return false, ErrCycle
	}

	p := &t.nodes[parent.Index]
	p.Children = append(p.Children, child)
	c.Parent = parent
	t.propagateRoot(child, p.Root)
	return true, nil
}

func (t *tree[T]) Detach(parent, child Handle) bool {
	p := t.node(parent)
	for i, h := range p.Children {
		if h == child {
			return t.detachIndex(parent, i)
		}
	}
	return false
}

func (t *tree[T]) DetachAt(parent Handle, index int) bool {
	p := t.node(parent)
	if index < 0 || index >= len(p.Children) {
		panic(fmt.Sprintf("hierarchy: child index %d out of range [0,%d)", index, len(p.Children)))
	}
	return t.detachIndex(parent, index)
}

func (t *tree[T]) DetachAll(parent Handle) {
	p := t.node(parent)
	for len(p.Children) > 0 {
		t.detachIndex(parent, len(p.Children)-1)
	}
}

// detachIndex removes the child at index, preserving the order of its siblings.
func (t *tree[T]) detachIndex(parent Handle, index int) bool {
	p := &t.nodes[parent.Index]
	child := p.Children[index]
	p.Children = append(p.Children[:index], p.Children[index+1:]...)

	c := &t.nodes[child.Index]
	c.Parent = Nil
	t.propagateRoot(child, child)
	return true
}

// propagateRoot stamps root on start and every descendant of start.
func (t *tree[T]) propagateRoot(start, root Handle) {
	stack := []Handle{start}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &t.nodes[h.Index]
		n.Root = root
		stack = append(stack, n.Children...)
	}
}

func (t *tree[T]) AncestorOf(node, other Handle) bool {
	for h := other; !h.IsNil(); h = t.node(h).Parent {
		if h == node {
			return true
		}
	}
	return false
}

func (t *tree[T]) IsRoot(h Handle) bool {
	return t.node(h).Parent.IsNil()
}

func (t *tree[T]) IsLeaf(h Handle) bool {
	return len(t.node(h).Children) == 0
}

func (t *tree[T]) Parent(h Handle) Handle {
	return t.node(h).Parent
}

func (t *tree[T]) Root(h Handle) Handle {
	return t.node(h).Root
}

func (t *tree[T]) ID(h Handle) uint64 {
	return t.node(h).ID
}

func (t *tree[T]) Name(h Handle) string {
	return t.node(h).Name
}

func (t *tree[T]) SetName(h Handle, name string) {
	t.node(h).Name = name
}

func (t *tree[T]) Value(h Handle) *T {
	return &t.node(h).Value
}

func (t *tree[T]) SetValue(h Handle, value T) {
	t.node(h).Value = value
}

func (t *tree[T]) Child(parent Handle, index int) Handle {
	p := t.node(parent)
	if index < 0 || index >= len(p.Children) {
		panic(fmt.Sprintf("hierarchy: child index %d out of range [0,%d)", index, len(p.Children)))
	}
	return p.Children[index]
}

func (t *tree[T]) ChildCount(parent Handle) int {
	return len(t.node(parent).Children)
}

func (t *tree[T]) Children(parent Handle) iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		for i := 0; i < len(t.node(parent).Children); i++ {
			if !yield(t.nodes[parent.Index].Children[i]) {
				return
			}
		}
	}
}

func (t *tree[T]) Walk(root Handle) iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		t.node(root)
		stack := []Handle{root}
		for len(stack) > 0 {
			h := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(h) {
				return
			}
			children := t.nodes[h.Index].Children
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		}
	}
}

func (t *tree[T]) Free(h Handle) error {
	if !t.Valid(h) {
		return ErrStaleHandle
	}
	if !t.nodes[h.Index].Parent.IsNil() {
		return ErrNotRoot
	}

	var doomed []Handle
	for n := range t.Walk(h) {
		doomed = append(doomed, n)
	}
	for _, d := range doomed {
		n := &t.nodes[d.Index]
		*n = Node[T]{Generation: nextGeneration(n.Generation)}
		t.free = append(t.free, d.Index)
		t.live--
	}
	return nil
}

// nextGeneration increments g, skipping 0 on wraparound so slot 0 never yields Nil.
func nextGeneration(g uint32) uint32 {
	g++
	if g == 0 {
		g = 1
	}
	return g
}

func (t *tree[T]) Valid(h Handle) bool {
	if h.IsNil() || int(h.Index) >= len(t.nodes) {
		return false
	}
	n := &t.nodes[h.Index]
	return n.Live && n.Generation == h.Generation
}

func (t *tree[T]) Len() int {
	return t.live
}

func (t *tree[T]) Clone() Tree[T] {
	c := &tree[T]{
		nextID: t.nextID,
		live:   t.live,
	}
	if err := deepcopy.Copy(&c.nodes, t.nodes); err != nil {
		panic(fmt.Sprintf("hierarchy: clone failed: %v", err))
	}
	c.free = append([]uint32(nil), t.free...)
	return c
}

// node resolves h to its slot, panicking on a stale handle.
func (t *tree[T]) node(h Handle) *Node[T] {
	if !t.Valid(h) {
		panic(fmt.Sprintf("hierarchy: %v: %s", ErrStaleHandle, h))
	}
	return &t.nodes[h.Index]
}
