// Package skin deforms triangle meshes by a bone skeleton (linear-blend
// skinning) and recomputes their vertex normals.
//
// A Mesh keeps two views of its geometry. The unique positions of the source
// model are the skin vertices that carry bone weights; the corner buffer holds
// one Vertex per triangle corner, the layout a non-indexed renderer or
// exporter consumes. Every deformation pass refreshes all corners that share
// a skin vertex.
package skin

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Skinning errors.
var (
	ErrUnresolvedReference = errors.New("unresolved bone reference")
	ErrInvalidMesh         = errors.New("invalid mesh")
)

// Unbound is the BoneIndex of a vertex group that has not been resolved.
const Unbound = -1

// Vertex is one triangle corner as consumers read it.
type Vertex struct {
	Position math.Vec3
	TexCoord [2]float32
	Normal   math.Vec3
}

// Corner indexes the unique attribute arrays for one triangle corner.
// TexCoord may be -1 when the corner has no UV.
type Corner struct {
	Position int
	TexCoord int
	Normal   int
}

// VertexGroup is one bone's influence on a skin vertex.
type VertexGroup struct {
	BoneName  string
	BoneIndex int
	Weight    float32
}

// SkinVertex is a unique mesh position together with its bone weights.
type SkinVertex struct {
	PosLocal math.Vec3
	PosTrans math.Vec3
	Groups   []VertexGroup
	// Corners lists offsets into the corner buffer that share this position.
	Corners []int
}

// Mesh is a triangulated, skinnable mesh.
type Mesh struct {
	Name string

	corners  []Corner
	vertices []Vertex
	rest     []Vertex

	skin      []SkinVertex
	normalAcc []math.Vec3
	bound     bool
}

// NewMesh builds a mesh from unique attribute arrays and triangle corners.
// len(corners) must be a multiple of three.
func NewMesh(name string, positions []math.Vec3, texCoords [][2]float32, normals []math.Vec3, corners []Corner) (*Mesh, error) {
	if len(corners)%3 != 0 {
		return nil, fmt.Errorf("%w: %d corners is not a whole number of triangles", ErrInvalidMesh, len(corners))
	}

	m := &Mesh{
		Name:      name,
		corners:   append([]Corner(nil), corners...),
		vertices:  make([]Vertex, len(corners)),
		skin:      make([]SkinVertex, len(positions)),
		normalAcc: make([]math.Vec3, len(normals)),
	}
	for i, p := range positions {
		m.skin[i] = SkinVertex{PosLocal: p, PosTrans: p}
	}

	for i, c := range corners {
		if c.Position < 0 || c.Position >= len(positions) {
			return nil, fmt.Errorf("%w: corner %d position index %d out of range [0,%d)",
				ErrInvalidMesh, i, c.Position, len(positions))
		}
		if c.Normal < 0 || c.Normal >= len(normals) {
			return nil, fmt.Errorf("%w: corner %d normal index %d out of range [0,%d)",
				ErrInvalidMesh, i, c.Normal, len(normals))
		}
		if c.TexCoord >= len(texCoords) {
			return nil, fmt.Errorf("%w: corner %d uv index %d out of range [0,%d)",
				ErrInvalidMesh, i, c.TexCoord, len(texCoords))
		}

		v := Vertex{Position: positions[c.Position], Normal: normals[c.Normal]}
		if c.TexCoord >= 0 {
			v.TexCoord = texCoords[c.TexCoord]
		}
		m.vertices[i] = v
		m.skin[c.Position].Corners = append(m.skin[c.Position].Corners, i)
	}

	m.rest = append([]Vertex(nil), m.vertices...)
	return m, nil
}

// Vertices returns the corner buffer, three entries per triangle. The slice is
// owned by the mesh and rewritten by every deformation or transform.
func (m *Mesh) Vertices() []Vertex {
	return m.vertices
}

// NumTriangles returns the triangle count.
func (m *Mesh) NumTriangles() int {
	return len(m.corners) / 3
}

// SkinVertices returns the unique skin vertices.
func (m *Mesh) SkinVertices() []SkinVertex {
	return m.skin
}

// Bound reports whether every vertex group has a resolved bone index.
func (m *Mesh) Bound() bool {
	return m.bound
}

// SetVertexGroups attaches bone weights, one list per unique position. Bone
// indices stay unresolved until AssignBoneIndices.
func (m *Mesh) SetVertexGroups(groups [][]VertexGroup) error {
	if len(groups) != len(m.skin) {
		return fmt.Errorf("%w: %d weight records for %d vertices", ErrInvalidMesh, len(groups), len(m.skin))
	}
	for i := range m.skin {
		gs := make([]VertexGroup, len(groups[i]))
		for j, g := range groups[i] {
			gs[j] = VertexGroup{BoneName: g.BoneName, BoneIndex: Unbound, Weight: g.Weight}
		}
		m.skin[i].Groups = gs
	}
	m.bound = false
	return nil
}

// Clone returns an independent copy of the mesh with the same weights and
// binding state.
func (m *Mesh) Clone(name string) *Mesh {
	c := &Mesh{
		Name:      name,
		corners:   append([]Corner(nil), m.corners...),
		vertices:  append([]Vertex(nil), m.vertices...),
		rest:      append([]Vertex(nil), m.rest...),
		skin:      make([]SkinVertex, len(m.skin)),
		normalAcc: make([]math.Vec3, len(m.normalAcc)),
		bound:     m.bound,
	}
	for i, sv := range m.skin {
		sv.Groups = append([]VertexGroup(nil), sv.Groups...)
		sv.Corners = append([]int(nil), sv.Corners...)
		c.skin[i] = sv
	}
	return c
}
