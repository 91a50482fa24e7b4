package bake_store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/animation"
	"github.com/Carmen-Shannon/oxy-anim/engine/joint"
	"github.com/go-gl/mathgl/mgl32"
)

// floatsPerJoint is translation xyz, rotation xyzw and scale xyz.
const floatsPerJoint = 10

const bytesPerJoint = floatsPerJoint * 4

// encodePose writes the local transform of every joint in pre-order as little-endian float32s.
func encodePose(p *joint.Pose) []byte {
	buf := make([]byte, 0, p.Len()*bytesPerJoint)
	for h := range p.Joints() {
		t := p.Joint(h).Local
		q := common.QuatToXYZW(t.Rotation)
		for _, f := range [floatsPerJoint]float32{
			t.Translation.X(), t.Translation.Y(), t.Translation.Z(),
			q[0], q[1], q[2], q[3],
			t.Scale.X(), t.Scale.Y(), t.Scale.Z(),
		} {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	}
	return buf
}

// decodePose overwrites the local transforms of p, in pre-order, from data.
func decodePose(p *joint.Pose, data []byte) error {
	if len(data) != p.Len()*bytesPerJoint {
		return fmt.Errorf("%w: %d bytes for %d joints", ErrCorrupt, len(data), p.Len())
	}
	var f [floatsPerJoint]float32
	off := 0
	for h := range p.Joints() {
		for i := range f {
			f[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		j := p.Joint(h)
		j.Local.Translation = mgl32.Vec3{f[0], f[1], f[2]}
		j.Local.Rotation = common.QuatFromXYZW([4]float32{f[3], f[4], f[5], f[6]})
		j.Local.Scale = mgl32.Vec3{f[7], f[8], f[9]}
	}
	return nil
}

// jointNames lists the joint names of p in pre-order, the topology signature of a stored clip.
func jointNames(p *joint.Pose) []string {
	names := make([]string, 0, p.Len())
	for h := range p.Joints() {
		names = append(names, p.Name(h))
	}
	return names
}

// Signature identifies the keyframes a bake is sampled from: a SHA-256 over each keyframe's time,
// joint names and encoded local transforms. Two clips with the same name and skeleton but
// different motion or timing get different signatures.
func Signature(keyframes []animation.Frame) string {
	h := sha256.New()
	var buf []byte
	for _, f := range keyframes {
		buf = binary.LittleEndian.AppendUint64(buf[:0], math.Float64bits(f.Time))
		h.Write(buf)
		if f.Pose == nil {
			continue
		}
		for _, name := range jointNames(f.Pose) {
			h.Write([]byte(name))
			h.Write([]byte{0})
		}
		h.Write(encodePose(f.Pose))
	}
	return hex.EncodeToString(h.Sum(nil))
}
