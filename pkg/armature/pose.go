package armature

import (
	"fmt"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// ComputeFinalOrientationPos resolves QFinal/PosFinal for every bone.
//
// Bones are visited in EvalOrder, so a parent's final transform is already
// current when its children read it. A non-finite result aborts with
// ErrDegenerateRotation and no bone is updated; the previous pose stays in
// place.
func (a *Armature) ComputeFinalOrientationPos() error {
	pose := a.scratchPose
	for _, id := range a.order {
		b := &a.bones[id]
		var p TransformPair
		if b.Parent == NoParent {
			p = resolveBone(b, nil, TransformPair{})
		} else {
			p = resolveBone(b, &a.bones[b.Parent], pose[b.Parent])
		}
		if !p.Orient.IsFinite() || !p.Pos.IsFinite() {
			return fmt.Errorf("%w: bone %q resolved to %v at %v",
				ErrDegenerateRotation, b.Name, p.Orient, p.Pos)
		}
		pose[id] = p
	}

	for i := range a.bones {
		a.bones[i].QFinal = pose[i].Orient
		a.bones[i].PosFinal = pose[i].Pos
	}
	return nil
}

// resolveBone composes basis and local transforms, then re-expresses the
// result relative to the parent's rest frame and carries it by the parent's
// final transform parentFinal.
func resolveBone(b *Bone, parent *Bone, parentFinal TransformPair) TransformPair {
	q := b.QLocal.Mul(b.QBasisCurrent)
	pos := b.QLocal.Rotate(b.PosBasis).Add(b.PosLocal)

	if parent == nil {
		return TransformPair{Orient: q, Pos: pos}
	}

	// Only the sign of the parent's rest position is flipped; this is not a
	// full inverse transform.
	invOrient := parent.QLocal.Reciprocal()
	invPos := parent.PosLocal.Negate()

	q = parentFinal.Orient.Mul(invOrient.Mul(q))

	pos = pos.Add(invPos)
	pos = invOrient.Rotate(pos)
	pos = parentFinal.Orient.Rotate(pos)
	return TransformPair{Orient: q, Pos: pos.Add(parentFinal.Pos)}
}

// TransformVertexByBone moves a rest-pose position by the bone with the given
// ID. It reads the pose of the last ComputeFinalOrientationPos.
func (a *Armature) TransformVertexByBone(id int, v math.Vec3) math.Vec3 {
	return a.bones[id].TransformVertex(v)
}

// Pose returns the final transform of every bone, indexed by bone ID.
func (a *Armature) Pose() []TransformPair {
	pose := make([]TransformPair, len(a.bones))
	for i := range a.bones {
		pose[i] = a.bones[i].FinalTransform()
	}
	return pose
}
