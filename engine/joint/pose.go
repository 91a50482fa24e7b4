package joint

import (
	"fmt"
	"iter"

	"github.com/Carmen-Shannon/oxy-anim/engine/hierarchy"
)

// Pose is a skeleton: a tree of Joints with a single root. Poses sharing a topology can be
// interpolated joint by joint in pre-order.
//
// Structural edits go through AddJoint; the tree returned by Tree is for inspection and payload
// edits only.
type Pose struct {
	tree  hierarchy.Tree[Joint]
	root  hierarchy.Handle
	order []hierarchy.Handle
}

// NewPose creates a Pose holding only a root joint.
//
// Parameters:
//   - rootName: the name of the root joint
//   - local: the local transform of the root joint
//   - options: variadic list of PoseBuilderOption functions to configure the Pose
//
// Returns:
//   - *Pose: the new pose
func NewPose(rootName string, local Transform, options ...PoseBuilderOption) *Pose {
	cfg := poseConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	p := &Pose{
		tree: hierarchy.NewTree[Joint](hierarchy.WithCapacity(cfg.capacity)),
	}
	p.root = p.tree.New(rootName, NewJoint(local))
	p.order = []hierarchy.Handle{p.root}
	return p
}

// AddJoint creates a joint and attaches it as the last child of parent.
// Panics if parent does not belong to this pose.
//
// Parameters:
//   - parent: the parent joint
//   - name: the name of the new joint
//   - local: the local transform of the new joint
//
// Returns:
//   - hierarchy.Handle: the handle of the new joint
func (p *Pose) AddJoint(parent hierarchy.Handle, name string, local Transform) hierarchy.Handle {
	if p.tree.Root(parent) != p.root {
		panic(fmt.Sprintf("joint: parent %s is not part of the pose", parent))
	}
	h := p.tree.New(name, NewJoint(local))
	if _, err := p.tree.Attach(parent, h); err != nil {
		panic(fmt.Sprintf("joint: attach %q: %v", name, err))
	}
	p.rebuildOrder()
	return h
}

// Root returns the root joint handle.
func (p *Pose) Root() hierarchy.Handle {
	return p.root
}

// Tree returns the underlying joint tree.
func (p *Pose) Tree() hierarchy.Tree[Joint] {
	return p.tree
}

// Len returns the number of joints in the pose.
func (p *Pose) Len() int {
	return len(p.preOrder())
}

// Joint returns the payload of h. The pointer stays valid until the next AddJoint.
func (p *Pose) Joint(h hierarchy.Handle) *Joint {
	return p.tree.Value(h)
}

// Name returns the name of h.
func (p *Pose) Name(h hierarchy.Handle) string {
	return p.tree.Name(h)
}

// Joints yields every joint of the pose in pre-order.
func (p *Pose) Joints() iter.Seq[hierarchy.Handle] {
	return func(yield func(hierarchy.Handle) bool) {
		for _, h := range p.preOrder() {
			if !yield(h) {
				return
			}
		}
	}
}

// Find returns the first joint in pre-order with the given name.
//
// Parameters:
//   - name: the joint name to search for
//
// Returns:
//   - hierarchy.Handle: the joint handle, or hierarchy.Nil
//   - bool: true if a joint was found
func (p *Pose) Find(name string) (hierarchy.Handle, bool) {
	for _, h := range p.preOrder() {
		if p.tree.Name(h) == name {
			return h, true
		}
	}
	return hierarchy.Nil, false
}

// Clone returns a deep copy of the pose. The copy shares no state with p, and the handles of p
// address the corresponding joints of the copy.
func (p *Pose) Clone() *Pose {
	return &Pose{
		tree:  p.tree.Clone(),
		root:  p.root,
		order: append([]hierarchy.Handle(nil), p.order...),
	}
}

// ApproxEqual reports whether p and o have the same joint count and matching local transforms
// joint by joint in pre-order.
func (p *Pose) ApproxEqual(o *Pose, epsilon float32) bool {
	po, oo := p.preOrder(), o.preOrder()
	if len(po) != len(oo) {
		return false
	}
	for i := range po {
		if !p.tree.Value(po[i]).Local.ApproxEqual(o.tree.Value(oo[i]).Local, epsilon) {
			return false
		}
	}
	return true
}

// Interpolate blends the local transforms of a and b joint by joint, walking both in pre-order.
// a and b must share a topology. The result is written into into when it is non-nil, which must
// share that topology too; otherwise a clone of a is allocated. Matrices are not resolved.
//
// Parameters:
//   - a: the pose at factor 0
//   - b: the pose at factor 1
//   - into: an optional destination pose
//   - factor: the blend weight, not clamped
//
// Returns:
//   - *Pose: the destination pose
func Interpolate(a, b, into *Pose, factor float32) *Pose {
	if into == nil {
		into = a.Clone()
	}
	ao, bo, io := a.preOrder(), b.preOrder(), into.preOrder()
	if len(ao) != len(bo) || len(ao) != len(io) {
		panic(fmt.Sprintf("joint: interpolate topology mismatch (%d, %d, %d joints)", len(ao), len(bo), len(io)))
	}
	for i := range ao {
		ja := a.tree.Value(ao[i])
		jb := b.tree.Value(bo[i])
		into.tree.Value(io[i]).Local = LerpTransform(ja.Local, jb.Local, factor)
	}
	return into
}

// ComposeWithBind copies the inverse bind matrix of every joint of bind onto the corresponding
// joint of p, pairing joints in pre-order.
//
// Parameters:
//   - bind: the bind pose, sharing p's topology
//
// Returns:
//   - *Pose: p
func (p *Pose) ComposeWithBind(bind *Pose) *Pose {
	po, bo := p.preOrder(), bind.preOrder()
	if len(po) != len(bo) {
		panic(fmt.Sprintf("joint: bind topology mismatch (%d, %d joints)", len(po), len(bo)))
	}
	for i := range po {
		p.tree.Value(po[i]).InverseBind = bind.tree.Value(bo[i]).InverseBind
	}
	return p
}

// Resolve computes the global and skin matrix of every joint top-down from the root.
//
// Returns:
//   - hierarchy.Handle: the root joint
func (p *Pose) Resolve() hierarchy.Handle {
	for _, h := range p.preOrder() {
		j := p.tree.Value(h)
		local := j.Local.Mat4()
		if parent := p.tree.Parent(h); parent.IsNil() {
			j.Global = local
		} else {
			j.Global = p.tree.Value(parent).Global.Mul4(local)
		}
		j.Skin = j.Global.Mul4(j.InverseBind)
	}
	return p.root
}

// ComputeInverseBind treats p as the bind pose: it resolves the pose and sets each joint's
// inverse bind matrix to the inverse of its global matrix. Skin matrices become identity.
func (p *Pose) ComputeInverseBind() {
	p.Resolve()
	for _, h := range p.preOrder() {
		j := p.tree.Value(h)
		j.InverseBind = j.Global.Inv()
		j.Skin = j.Global.Mul4(j.InverseBind)
	}
}

// preOrder returns the cached pre-order joint list. It is safe for concurrent readers.
func (p *Pose) preOrder() []hierarchy.Handle {
	return p.order
}

func (p *Pose) rebuildOrder() {
	p.order = p.order[:0]
	for h := range p.tree.Walk(p.root) {
		p.order = append(p.order, h)
	}
}
