package skin

import (
	"fmt"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Skeleton is the posed bone set a mesh deforms by. *armature.Armature
// satisfies it.
type Skeleton interface {
	BoneIndex(name string) (int, bool)
	TransformVertexByBone(id int, v math.Vec3) math.Vec3
}

// AssignBoneIndices resolves every vertex group's bone name against skel. It
// runs once after both the skeleton and the mesh are loaded; Deform only uses
// the resolved indices.
func (m *Mesh) AssignBoneIndices(skel Skeleton) error {
	m.bound = false
	for i := range m.skin {
		groups := m.skin[i].Groups
		for j := range groups {
			id, ok := skel.BoneIndex(groups[j].BoneName)
			if !ok {
				return fmt.Errorf("%w: vertex %d references bone %q",
					ErrUnresolvedReference, i, groups[j].BoneName)
			}
			groups[j].BoneIndex = id
		}
	}
	m.bound = true
	return nil
}

// Deform moves every skin vertex to the weighted sum of its rest position
// transformed by each influencing bone, then refreshes the corner buffer.
// Weights are used as given; they are not renormalized.
func (m *Mesh) Deform(skel Skeleton) error {
	if !m.bound {
		return fmt.Errorf("%w: mesh %q has unassigned bone indices", ErrUnresolvedReference, m.Name)
	}

	for i := range m.skin {
		sv := &m.skin[i]
		var sum math.Vec3
		for _, g := range sv.Groups {
			sum = sum.Add(skel.TransformVertexByBone(g.BoneIndex, sv.PosLocal).Scale(g.Weight))
		}
		sv.PosTrans = sum
	}
	m.SetVertices()
	return nil
}

// SetVertices copies each skin vertex's deformed position into every corner
// that shares it.
func (m *Mesh) SetVertices() {
	for i := range m.skin {
		sv := &m.skin[i]
		for _, c := range sv.Corners {
			m.vertices[c].Position = sv.PosTrans
		}
	}
}
