// Package export writes the current frame of a rig as glTF.
package export

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-rig/internal/rig"
	"github.com/Faultbox/midgard-rig/pkg/skin"
)

// ErrNonFinitePose is returned when a bone transform cannot be written.
var ErrNonFinitePose = errors.New("pose is not finite")

// Options selects optional content of an exported frame.
type Options struct {
	// RestBones adds the bone models at their rest transforms as
	// "<bone>.rest" meshes.
	RestBones bool
}

// GLTF builds a document of the rig's current frame. Every mesh is written
// with its deformed positions and normals; every bone becomes a node carrying
// its final transform; bone models, when loaded, are written already posed.
func GLTF(r *rig.Rig, opts Options) (*gltf.Document, error) {
	doc := gltf.NewDocument()
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name:        "default",
		DoubleSided: true,
	})

	for _, m := range r.Meshes() {
		addMesh(doc, m.Name, m)
	}

	arm := r.Armature()
	for i, p := range r.Pose() {
		if !p.Orient.IsFinite() || !p.Pos.IsFinite() {
			return nil, errors.Wrapf(ErrNonFinitePose, "bone %q", arm.Bone(i).Name)
		}
		q := p.Orient.Normalize()
		addNode(doc, &gltf.Node{
			Name:        arm.Bone(i).Name,
			Translation: p.Pos.Array(),
			Rotation:    [4]float32{q.X, q.Y, q.Z, q.W},
		})
	}

	for _, g := range r.Gizmos() {
		addMesh(doc, g.Name+".bone", g)
	}
	if opts.RestBones {
		for _, g := range r.RestGizmos() {
			addMesh(doc, g.Name+".rest", g)
		}
	}

	return doc, nil
}

// addMesh writes the corner buffer as one non-indexed-style triangle list.
func addMesh(doc *gltf.Document, name string, m *skin.Mesh) {
	verts := m.Vertices()
	positions := make([][3]float32, len(verts))
	normals := make([][3]float32, len(verts))
	uvs := make([][2]float32, len(verts))
	indices := make([]uint32, len(verts))
	for i, v := range verts {
		positions[i] = v.Position.Array()
		normals[i] = v.Normal.Array()
		uvs[i] = v.TexCoord
		indices[i] = uint32(i)
	}

	indicesAccessor := modeler.WriteIndices(doc, indices)
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: name,
		Primitives: []*gltf.Primitive{{
			Indices: &indicesAccessor,
			Attributes: map[string]uint32{
				gltf.POSITION:   modeler.WritePosition(doc, positions),
				gltf.NORMAL:     modeler.WriteNormal(doc, normals),
				gltf.TEXCOORD_0: modeler.WriteTextureCoord(doc, uvs),
			},
			Material: gltf.Index(0),
		}},
	})
	addNode(doc, &gltf.Node{
		Name: name,
		Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
	})
}

func addNode(doc *gltf.Document, n *gltf.Node) {
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)))
	doc.Nodes = append(doc.Nodes, n)
}

// WriteGLB encodes doc as binary glTF.
func WriteGLB(w io.Writer, doc *gltf.Document) error {
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(err, "encoding glb")
	}
	return nil
}

// SaveGLB writes doc to path, creating parent directories.
func SaveGLB(path string, doc *gltf.Document) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "closing %s", path)
		}
	}()
	return WriteGLB(f, doc)
}
