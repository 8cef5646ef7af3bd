package export

import (
	"bytes"
	"errors"
	gomath "math"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

const testArmature = `NUM_BONES: 2

////////BONE_ID: Root Bone//////////
Parent_ID: Root
Size: 1.0
Quaternion local: 1.0 0.0 0.0 0.0
Location local: 0.0 0.0 0.0
Quaternion basis: 1.0 0.0 0.0 0.0
Location basis: 0.0 0.0 0.0

////////BONE_ID: Arm//////////
Parent_ID: Root Bone
Size: 1.0
Quaternion local: 1.0 0.0 0.0 0.0
Location local: 2.0 0.0 0.0
Quaternion basis: 1.0 0.0 0.0 0.0
Location basis: 0.0 0.0 0.0

`

const testTriangle = `o Tri
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 0.0 1.0 0.0
vt 0.0 0.0
vn 0.0 0.0 1.0
f 1/1/1 2/1/1 3/1/1
`

const testWeights = `vertex: 1
0 0 0
   Root Bone 1.0
vertex: 2
0 0 0
   Arm 1.0
vertex: 3
0 0 0
   Root Bone 1.0
`

func loadRig(t *testing.T, withBoneModel bool) *rig.Rig {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"armature.txt": testArmature,
		"tri.obj":      testTriangle,
		"tri.txt":      testWeights,
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	data := config.DataConfig{
		Armature: filepath.Join(dir, "armature.txt"),
		Meshes: []config.MeshConfig{
			{Name: "tri", OBJ: filepath.Join(dir, "tri.obj"), Weights: filepath.Join(dir, "tri.txt")},
		},
	}
	if withBoneModel {
		data.BoneModel = filepath.Join(dir, "tri.obj")
	}

	r, err := rig.Load(data, config.AnimationConfig{Progress: 1})
	if err != nil {
		t.Fatalf("rig.Load: %v", err)
	}
	return r
}

func TestGLTF(t *testing.T) {
	r := loadRig(t, false)

	doc, err := GLTF(r, Options{})
	if err != nil {
		t.Fatalf("GLTF: %v", err)
	}

	if len(doc.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(doc.Meshes))
	}
	// One mesh node plus one node per bone.
	if len(doc.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(doc.Nodes))
	}
	if len(doc.Scenes[0].Nodes) != 3 {
		t.Errorf("expected 3 scene nodes, got %d", len(doc.Scenes[0].Nodes))
	}

	prim := doc.Meshes[0].Primitives[0]
	for _, attr := range []string{gltf.POSITION, gltf.NORMAL, gltf.TEXCOORD_0} {
		if _, ok := prim.Attributes[attr]; !ok {
			t.Errorf("missing %s attribute", attr)
		}
	}
	if got := doc.Accessors[prim.Attributes[gltf.POSITION]].Count; got != 3 {
		t.Errorf("expected 3 positions, got %d", got)
	}
	if prim.Indices == nil || doc.Accessors[*prim.Indices].Count != 3 {
		t.Error("expected 3 indices")
	}

	arm := doc.Nodes[2]
	if arm.Name != "Arm" {
		t.Errorf("expected bone node Arm, got %q", arm.Name)
	}
	// Blender (2,0,0) stays on X after the axis conversion.
	if arm.Translation != [3]float32{2, 0, 0} {
		t.Errorf("Arm translation = %v, want [2 0 0]", arm.Translation)
	}
	if arm.Rotation != [4]float32{0, 0, 0, 1} {
		t.Errorf("Arm rotation = %v, want identity", arm.Rotation)
	}
}

func TestGLTF_BoneModels(t *testing.T) {
	r := loadRig(t, true)

	doc, err := GLTF(r, Options{})
	if err != nil {
		t.Fatalf("GLTF: %v", err)
	}
	// Skinned mesh plus one bone model per bone.
	if len(doc.Meshes) != 3 {
		t.Fatalf("expected 3 meshes, got %d", len(doc.Meshes))
	}
	if doc.Meshes[2].Name != "Arm.bone" {
		t.Errorf("expected mesh Arm.bone, got %q", doc.Meshes[2].Name)
	}
	if len(doc.Nodes) != 5 {
		t.Errorf("expected 5 nodes, got %d", len(doc.Nodes))
	}
}

func TestGLTF_RestBones(t *testing.T) {
	r := loadRig(t, true)

	doc, err := GLTF(r, Options{RestBones: true})
	if err != nil {
		t.Fatalf("GLTF: %v", err)
	}
	// Skinned mesh, posed bone models, then rest bone models.
	if len(doc.Meshes) != 5 {
		t.Fatalf("expected 5 meshes, got %d", len(doc.Meshes))
	}
	for i, want := range []string{"Root Bone.rest", "Arm.rest"} {
		if got := doc.Meshes[3+i].Name; got != want {
			t.Errorf("mesh %d = %q, want %q", 3+i, got, want)
		}
	}
	if len(doc.Nodes) != 7 {
		t.Errorf("expected 7 nodes, got %d", len(doc.Nodes))
	}
}

func TestGLTF_NonFinitePose(t *testing.T) {
	r := loadRig(t, false)
	r.Armature().Bone(1).PosFinal = math.Vec3{X: float32(gomath.Inf(1))}

	if _, err := GLTF(r, Options{}); !errors.Is(err, ErrNonFinitePose) {
		t.Errorf("expected ErrNonFinitePose, got %v", err)
	}
}

func TestWriteGLB(t *testing.T) {
	r := loadRig(t, true)
	doc, err := GLTF(r, Options{})
	if err != nil {
		t.Fatalf("GLTF: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteGLB(&buf, doc); err != nil {
		t.Fatalf("WriteGLB: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("glTF")) {
		t.Fatalf("output does not start with the GLB magic")
	}

	var decoded gltf.Document
	if err := gltf.NewDecoder(bytes.NewReader(buf.Bytes())).Decode(&decoded); err != nil {
		t.Fatalf("decoding written GLB: %v", err)
	}
	if len(decoded.Nodes) != len(doc.Nodes) || len(decoded.Meshes) != len(doc.Meshes) {
		t.Errorf("decoded %d nodes/%d meshes, wrote %d/%d",
			len(decoded.Nodes), len(decoded.Meshes), len(doc.Nodes), len(doc.Meshes))
	}
}

func TestSaveGLB(t *testing.T) {
	r := loadRig(t, false)
	doc, err := GLTF(r, Options{})
	if err != nil {
		t.Fatalf("GLTF: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out", "pose.glb")
	if err := SaveGLB(path, doc); err != nil {
		t.Fatalf("SaveGLB: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("written file is empty")
	}
}
