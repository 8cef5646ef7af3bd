package skin

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-rig/pkg/armature"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

func vecClose(a, b math.Vec3, eps float64) bool {
	return gomath.Abs(float64(a.X-b.X)) <= eps &&
		gomath.Abs(float64(a.Y-b.Y)) <= eps &&
		gomath.Abs(float64(a.Z-b.Z)) <= eps
}

// fakeSkeleton applies a fixed offset per bone.
type fakeSkeleton struct {
	names   map[string]int
	offsets []math.Vec3
}

func (s *fakeSkeleton) BoneIndex(name string) (int, bool) {
	id, ok := s.names[name]
	return id, ok
}

func (s *fakeSkeleton) TransformVertexByBone(id int, v math.Vec3) math.Vec3 {
	return v.Add(s.offsets[id])
}

// quadMesh is two triangles sharing the diagonal 0-2 of a unit square.
func quadMesh(t *testing.T) *Mesh {
	t.Helper()
	positions := []math.Vec3{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}}
	uvs := [][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	normals := []math.Vec3{{Z: 1}, {Z: 1}, {Z: 1}, {Z: 1}}
	corners := []Corner{
		{0, 0, 0}, {1, 1, 1}, {2, 2, 2},
		{0, 0, 0}, {2, 2, 2}, {3, 3, 3},
	}
	m, err := NewMesh("quad", positions, uvs, normals, corners)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	return m
}

func singleBone(name string) [][]VertexGroup {
	return [][]VertexGroup{
		{{BoneName: name, Weight: 1}},
		{{BoneName: name, Weight: 1}},
		{{BoneName: name, Weight: 1}},
		{{BoneName: name, Weight: 1}},
	}
}

func TestNewMesh(t *testing.T) {
	m := quadMesh(t)
	if m.NumTriangles() != 2 {
		t.Errorf("NumTriangles = %d, want 2", m.NumTriangles())
	}
	sv := m.SkinVertices()
	if len(sv) != 4 {
		t.Fatalf("got %d skin vertices, want 4", len(sv))
	}
	if got := sv[0].Corners; len(got) != 2 || got[0] != 0 || got[1] != 3 {
		t.Errorf("vertex 0 corners = %v, want [0 3]", got)
	}
	if got := m.Vertices()[4].TexCoord; got != [2]float32{1, 1} {
		t.Errorf("corner 4 uv = %v, want [1 1]", got)
	}
}

func TestNewMesh_Errors(t *testing.T) {
	positions := []math.Vec3{{}, {X: 1}, {Y: 1}}
	normals := []math.Vec3{{Z: 1}}

	tests := []struct {
		name    string
		corners []Corner
	}{
		{"partial triangle", []Corner{{0, -1, 0}, {1, -1, 0}}},
		{"position out of range", []Corner{{0, -1, 0}, {1, -1, 0}, {3, -1, 0}}},
		{"negative position", []Corner{{-1, -1, 0}, {1, -1, 0}, {2, -1, 0}}},
		{"normal out of range", []Corner{{0, -1, 0}, {1, -1, 1}, {2, -1, 0}}},
		{"uv out of range", []Corner{{0, 0, 0}, {1, -1, 0}, {2, -1, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMesh("bad", positions, nil, normals, tt.corners)
			if !errors.Is(err, ErrInvalidMesh) {
				t.Errorf("error = %v, want ErrInvalidMesh", err)
			}
		})
	}
}

func TestSetVertexGroups_CountMismatch(t *testing.T) {
	m := quadMesh(t)
	err := m.SetVertexGroups(singleBone("A")[:3])
	if !errors.Is(err, ErrInvalidMesh) {
		t.Errorf("error = %v, want ErrInvalidMesh", err)
	}
}

func TestAssignBoneIndices(t *testing.T) {
	skel := &fakeSkeleton{names: map[string]int{"A": 0, "B": 1}, offsets: make([]math.Vec3, 2)}

	m := quadMesh(t)
	groups := singleBone("A")
	groups[2] = []VertexGroup{{BoneName: "A", Weight: 0.25}, {BoneName: "B", Weight: 0.75}}
	if err := m.SetVertexGroups(groups); err != nil {
		t.Fatalf("SetVertexGroups: %v", err)
	}
	if got := m.SkinVertices()[2].Groups[1].BoneIndex; got != Unbound {
		t.Errorf("BoneIndex before binding = %d, want Unbound", got)
	}
	if err := m.AssignBoneIndices(skel); err != nil {
		t.Fatalf("AssignBoneIndices: %v", err)
	}
	if !m.Bound() {
		t.Error("mesh not marked bound")
	}
	if got := m.SkinVertices()[2].Groups[1].BoneIndex; got != 1 {
		t.Errorf("BoneIndex = %d, want 1", got)
	}

	groups[3] = []VertexGroup{{BoneName: "Tail", Weight: 1}}
	if err := m.SetVertexGroups(groups); err != nil {
		t.Fatalf("SetVertexGroups: %v", err)
	}
	if err := m.AssignBoneIndices(skel); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("error = %v, want ErrUnresolvedReference", err)
	}
	if m.Bound() {
		t.Error("mesh marked bound after a failed assignment")
	}
}

func TestDeform_Unbound(t *testing.T) {
	m := quadMesh(t)
	skel := &fakeSkeleton{names: map[string]int{"A": 0}, offsets: make([]math.Vec3, 1)}
	if err := m.Deform(skel); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("error = %v, want ErrUnresolvedReference", err)
	}
}

func TestDeform_WeightedSum(t *testing.T) {
	skel := &fakeSkeleton{
		names:   map[string]int{"A": 0, "B": 1},
		offsets: []math.Vec3{{X: 2}, {Y: 4}},
	}
	m := quadMesh(t)
	groups := singleBone("A")
	groups[0] = []VertexGroup{{BoneName: "A", Weight: 0.5}, {BoneName: "B", Weight: 0.5}}
	groups[1] = []VertexGroup{{BoneName: "B", Weight: 0.5}}
	if err := m.SetVertexGroups(groups); err != nil {
		t.Fatalf("SetVertexGroups: %v", err)
	}
	if err := m.AssignBoneIndices(skel); err != nil {
		t.Fatalf("AssignBoneIndices: %v", err)
	}
	if err := m.Deform(skel); err != nil {
		t.Fatalf("Deform: %v", err)
	}

	tests := []struct {
		vertex int
		want   math.Vec3
	}{
		{0, math.Vec3{X: 1, Y: 2}},
		// Weights below one shrink the result.
		{1, math.Vec3{X: 0.5, Y: 2}},
		{2, math.Vec3{X: 3, Y: 1}},
	}
	for _, tt := range tests {
		if got := m.SkinVertices()[tt.vertex].PosTrans; !vecClose(got, tt.want, 1e-6) {
			t.Errorf("vertex %d = %v, want %v", tt.vertex, got, tt.want)
		}
	}

	// Both corners of the shared vertex carry the same position.
	v := m.Vertices()
	if v[0].Position != v[3].Position || v[2].Position != v[4].Position {
		t.Errorf("shared corners diverged: %v/%v, %v/%v", v[0].Position, v[3].Position, v[2].Position, v[4].Position)
	}
}

func identityArmature(t *testing.T) *armature.Armature {
	t.Helper()
	bone := func(name, parent string, pos math.Vec3) armature.BoneDesc {
		return armature.BoneDesc{
			Name: name, Parent: parent, Size: 1,
			QLocal: math.QuatIdentity(), PosLocal: pos, QBasis: math.QuatIdentity(),
		}
	}
	a, err := armature.New([]armature.BoneDesc{
		bone("Hip", armature.RootParent, math.Vec3{}),
		bone("Spine", "Hip", math.Vec3{Y: 1}),
	}, armature.Options{})
	if err != nil {
		t.Fatalf("armature.New: %v", err)
	}
	if err := a.ComputeFinalOrientationPos(); err != nil {
		t.Fatalf("ComputeFinalOrientationPos: %v", err)
	}
	return a
}

func TestDeform_IdentityPoseIsIdempotent(t *testing.T) {
	a := identityArmature(t)
	m := quadMesh(t)
	groups := singleBone("Hip")
	groups[2] = []VertexGroup{{BoneName: "Hip", Weight: 0.3}, {BoneName: "Spine", Weight: 0.7}}
	if err := m.SetVertexGroups(groups); err != nil {
		t.Fatalf("SetVertexGroups: %v", err)
	}
	if err := m.AssignBoneIndices(a); err != nil {
		t.Fatalf("AssignBoneIndices: %v", err)
	}

	rest := append([]Vertex(nil), m.Vertices()...)
	for pass := 0; pass < 3; pass++ {
		if err := m.Deform(a); err != nil {
			t.Fatalf("Deform: %v", err)
		}
	}
	for i, v := range m.Vertices() {
		if !vecClose(v.Position, rest[i].Position, 1e-6) {
			t.Errorf("corner %d moved from %v to %v", i, rest[i].Position, v.Position)
		}
	}
}

func TestDeform_SingleVertexExact(t *testing.T) {
	a := identityArmature(t)
	p := math.Vec3{X: 0.125, Y: -3.5, Z: 7}
	m, err := NewMesh("point", []math.Vec3{p}, nil, []math.Vec3{{Z: 1}},
		[]Corner{{0, -1, 0}, {0, -1, 0}, {0, -1, 0}})
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	if err := m.SetVertexGroups([][]VertexGroup{{{BoneName: "Hip", Weight: 1}}}); err != nil {
		t.Fatalf("SetVertexGroups: %v", err)
	}
	if err := m.AssignBoneIndices(a); err != nil {
		t.Fatalf("AssignBoneIndices: %v", err)
	}
	if err := m.Deform(a); err != nil {
		t.Fatalf("Deform: %v", err)
	}
	if got := m.Vertices()[1].Position; got != p {
		t.Errorf("position = %v, want exactly %v", got, p)
	}
}

func TestDeform_FollowsRotatedBone(t *testing.T) {
	a := identityArmature(t)
	a.Bone(0).QBasisCurrent = math.QuatFromAxisAngle(math.Vec3{Z: 1}, gomath.Pi/2)
	if err := a.ComputeFinalOrientationPos(); err != nil {
		t.Fatalf("ComputeFinalOrientationPos: %v", err)
	}

	m := quadMesh(t)
	if err := m.SetVertexGroups(singleBone("Spine")); err != nil {
		t.Fatalf("SetVertexGroups: %v", err)
	}
	if err := m.AssignBoneIndices(a); err != nil {
		t.Fatalf("AssignBoneIndices: %v", err)
	}
	if err := m.Deform(a); err != nil {
		t.Fatalf("Deform: %v", err)
	}

	want := []math.Vec3{{}, {Y: 1}, {X: -1, Y: 1}, {X: -1}}
	for i, w := range want {
		if got := m.SkinVertices()[i].PosTrans; !vecClose(got, w, 1e-5) {
			t.Errorf("vertex %d = %v, want %v", i, got, w)
		}
	}
}

func TestClone_Independent(t *testing.T) {
	m := quadMesh(t)
	c := m.Clone("copy")
	c.Translate(math.Vec3{Z: 5})
	if m.Vertices()[0].Position.Z != 0 {
		t.Error("translating a clone moved the original")
	}
	if c.Name != "copy" || c.NumTriangles() != m.NumTriangles() {
		t.Errorf("clone = %q with %d triangles", c.Name, c.NumTriangles())
	}
}
