// Package armature evaluates a bone hierarchy's pose over time.
//
// An Armature owns its bones in an arena indexed by bone ID. Every tick the
// clock is advanced (Animate), each bone's basis orientation is sampled from
// its keyframes (ComputeCurrBasis), and the final world-space orientation and
// position of every bone is resolved parents first (ComputeFinalOrientationPos).
// The resolved pose is then consumed by the skinning engine through
// TransformVertexByBone.
package armature

import "github.com/Faultbox/midgard-rig/pkg/math"

// NoParent is the parent index of a root bone.
const NoParent = -1

// Keyframe is a sampled basis orientation at a frame number.
type Keyframe struct {
	Frame       float32
	Orientation math.Quat
}

// TransformPair is an orientation and position.
type TransformPair struct {
	Orient math.Quat
	Pos    math.Vec3
}

// Bone is a single joint of an armature.
//
// QLocal/PosLocal place the bone's rest frame in armature space, QBasis/PosBasis
// is the bone's own rest offset, and QBasisCurrent is the basis sampled for the
// current frame. QFinal/PosFinal hold the resolved pose of the last tick.
type Bone struct {
	Name       string
	ID         int
	ParentName string
	Parent     int
	Size       float32

	QLocal   math.Quat
	PosLocal math.Vec3

	QBasis   math.Quat
	PosBasis math.Vec3

	QBasisCurrent   math.Quat
	PosBasisCurrent math.Vec3

	QFinal   math.Quat
	PosFinal math.Vec3

	Frames []Keyframe
}

// IsRoot reports whether the bone has no parent.
func (b *Bone) IsRoot() bool {
	return b.Parent == NoParent
}

// FinalTransform returns the pose resolved by the last ComputeFinalOrientationPos.
func (b *Bone) FinalTransform() TransformPair {
	return TransformPair{Orient: b.QFinal, Pos: b.PosFinal}
}

// TransformVertex moves a rest-pose position into the bone's current pose.
// The vertex is first expressed relative to the bone's rest frame, then
// carried by the final transform.
func (b *Bone) TransformVertex(v math.Vec3) math.Vec3 {
	rel := b.QLocal.Reciprocal().Rotate(v.Sub(b.PosLocal))
	return b.QFinal.Rotate(rel).Add(b.PosFinal)
}

// BoneDesc describes a bone as produced by a loader.
type BoneDesc struct {
	Name     string
	Parent   string
	Size     float32
	QLocal   math.Quat
	PosLocal math.Vec3
	QBasis   math.Quat
	PosBasis math.Vec3
	Frames   []Keyframe
}
