package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/hierarchy"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/go-gl/mathgl/mgl32"
)

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	parser gltfParser
}

// gltfSkeletonExtractor converts glTF skins into bind poses.
type gltfSkeletonExtractor interface {
	// ExtractRig builds the bind pose of a skin. Joints are attached under their nearest joint
	// ancestor in the node graph. Inverse bind matrices come from the skin when present and are
	// computed from the bind pose otherwise.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - *Rig: the rig with its bind pose and joint list; Clips is empty
	//   - map[int]hierarchy.Handle: glTF node index to bind pose joint
	//   - error: error if extraction fails
	ExtractRig(skinIndex int) (*Rig, map[int]hierarchy.Handle, error)
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(parser gltfParser) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{parser: parser}
}

func (e *gltfSkeletonExtractorImpl) ExtractRig(skinIndex int) (*Rig, map[int]hierarchy.Handle, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, nil, fmt.Errorf("no document loaded")
	}
	if skinIndex < 0 || skinIndex >= len(doc.Skins) {
		return nil, nil, fmt.Errorf("skin index %d out of range", skinIndex)
	}

	skin := &doc.Skins[skinIndex]
	if len(skin.Joints) == 0 {
		return nil, nil, fmt.Errorf("skin %d has no joints", skinIndex)
	}

	var inverseBindMatrices [][16]float32
	if skin.InverseBindMatrices != nil {
		var err error
		inverseBindMatrices, err = e.parser.ReadMat4Accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
		}
		if len(inverseBindMatrices) < len(skin.Joints) {
			return nil, nil, fmt.Errorf("skin %d: %d inverse bind matrices for %d joints", skinIndex, len(inverseBindMatrices), len(skin.Joints))
		}
	}

	jointSlot := make(map[int]int, len(skin.Joints))
	for i, nodeIdx := range skin.Joints {
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) {
			return nil, nil, fmt.Errorf("joint %d: invalid node index %d", i, nodeIdx)
		}
		jointSlot[nodeIdx] = i
	}

	nodeParent := make(map[int]int, len(doc.Nodes))
	for nodeIdx, node := range doc.Nodes {
		for _, child := range node.Children {
			nodeParent[child] = nodeIdx
		}
	}

	// Each joint hangs off its nearest ancestor that is also a joint of this skin.
	children := make([][]int, len(skin.Joints))
	var roots []int
	for i, nodeIdx := range skin.Joints {
		parent := -1
		cur := nodeIdx
		for steps := 0; steps < len(doc.Nodes); steps++ {
			p, ok := nodeParent[cur]
			if !ok {
				break
			}
			if slot, isJoint := jointSlot[p]; isJoint {
				parent = slot
				break
			}
			cur = p
		}
		if parent < 0 {
			roots = append(roots, i)
		} else {
			children[parent] = append(children[parent], i)
		}
	}

	name := skin.Name
	if name == "" {
		name = fmt.Sprintf("skin_%d", skinIndex)
	}

	var pose *joint.Pose
	handles := make([]hierarchy.Handle, len(skin.Joints))
	stack := make([]int, 0, len(skin.Joints))

	if len(roots) == 1 {
		r := roots[0]
		pose = joint.NewPose(gltfJointName(doc, skin, r), gltfNodeTransform(&doc.Nodes[skin.Joints[r]]), joint.WithJointCapacity(len(skin.Joints)))
		handles[r] = pose.Root()
		stack = append(stack, r)
	} else {
		pose = joint.NewPose(name+"_root", joint.IdentityTransform(), joint.WithJointCapacity(len(skin.Joints)+1))
		for _, r := range roots {
			handles[r] = pose.AddJoint(pose.Root(), gltfJointName(doc, skin, r), gltfNodeTransform(&doc.Nodes[skin.Joints[r]]))
			stack = append(stack, r)
		}
	}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, k := range children[cur] {
			handles[k] = pose.AddJoint(handles[cur], gltfJointName(doc, skin, k), gltfNodeTransform(&doc.Nodes[skin.Joints[k]]))
			stack = append(stack, k)
		}
	}

	for i, h := range handles {
		if h.IsNil() {
			return nil, nil, fmt.Errorf("skin %d: joint %d is not reachable from a root joint", skinIndex, i)
		}
	}

	if inverseBindMatrices != nil {
		for i, h := range handles {
			pose.Joint(h).InverseBind = mgl32.Mat4(inverseBindMatrices[i])
		}
		pose.Resolve()
	} else {
		pose.ComputeInverseBind()
	}

	nodeToJoint := make(map[int]hierarchy.Handle, len(handles))
	for i, h := range handles {
		nodeToJoint[skin.Joints[i]] = h
	}

	return &Rig{
		Name:     name,
		BindPose: pose,
		Joints:   handles,
	}, nodeToJoint, nil
}

// gltfJointName returns the node name of joint slot i, or a generated name.
func gltfJointName(doc *gltfDocument, skin *gltfSkin, i int) string {
	if n := doc.Nodes[skin.Joints[i]].Name; n != "" {
		return n
	}
	return fmt.Sprintf("joint_%d", i)
}

// gltfNodeTransform extracts the local transform of a node, decomposing its matrix if it has one.
func gltfNodeTransform(node *gltfNode) joint.Transform {
	if node.Matrix != nil {
		t, r, s := common.DecomposeMatrix(mgl32.Mat4(*node.Matrix))
		return joint.Transform{Translation: t, Rotation: r, Scale: s}
	}

	transform := joint.IdentityTransform()
	if node.Translation != nil {
		transform.Translation = mgl32.Vec3(*node.Translation)
	}
	if node.Rotation != nil {
		transform.Rotation = common.QuatFromXYZW(*node.Rotation).Normalize()
	}
	if node.Scale != nil {
		transform.Scale = mgl32.Vec3(*node.Scale)
	}
	return transform
}
