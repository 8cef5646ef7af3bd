package rig

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/pkg/armature"
	"github.com/Faultbox/midgard-rig/pkg/formats"
	"github.com/Faultbox/midgard-rig/pkg/skin"
)

// Rig load errors.
var (
	ErrNoArmature     = errors.New("no armature configured")
	ErrWeightMismatch = errors.New("weight records do not match mesh vertices")
)

// Load reads the armature, every configured mesh with its weights and the
// optional bone model, binds the meshes and resolves the first frame.
func Load(data config.DataConfig, anim config.AnimationConfig) (*Rig, error) {
	if data.Armature == "" {
		return nil, ErrNoArmature
	}
	log := newLogger()

	skel, err := formats.ParseArmatureFile(data.Armature)
	if err != nil {
		return nil, errors.Wrapf(err, "loading armature %s", data.Armature)
	}
	arm, err := armature.New(skel.Bones, armature.Options{Animated: anim.Animated})
	if err != nil {
		return nil, errors.Wrapf(err, "building armature %s", data.Armature)
	}

	r := &Rig{anim: anim, log: log, arm: arm}

	for _, mc := range data.Meshes {
		m, err := loadMesh(mc, arm)
		if err != nil {
			return nil, err
		}
		r.meshes = append(r.meshes, m)
	}

	if data.BoneModel != "" {
		obj, err := formats.ParseOBJFile(data.BoneModel)
		if err != nil {
			return nil, errors.Wrapf(err, "loading bone model %s", data.BoneModel)
		}
		base, err := obj.Mesh("bone")
		if err != nil {
			return nil, errors.Wrapf(err, "building bone model %s", data.BoneModel)
		}
		r.gizmos = newGizmos(base, arm)
		r.restGizmos = newRestGizmos(r.gizmos, arm)
	}

	if err := r.Refresh(); err != nil {
		return nil, errors.Wrap(err, "resolving first frame")
	}

	log.Info("rig loaded",
		zap.String("armature", data.Armature),
		zap.Int("bones", arm.NumBones()),
		zap.Int("meshes", len(r.meshes)),
		zap.Bool("animated", arm.Animated()),
		zap.Float32("last_frame", arm.LastFrame()),
	)
	return r, nil
}

func loadMesh(mc config.MeshConfig, arm *armature.Armature) (*skin.Mesh, error) {
	obj, err := formats.ParseOBJFile(mc.OBJ)
	if err != nil {
		return nil, errors.Wrapf(err, "loading mesh %s", mc.OBJ)
	}
	name := mc.Name
	if name == "" {
		name = obj.Name
	}
	m, err := obj.Mesh(name)
	if err != nil {
		return nil, errors.Wrapf(err, "building mesh %s", mc.OBJ)
	}
	if mc.Weights == "" {
		return m, nil
	}

	w, err := formats.ParseVertexGroupsFile(mc.Weights)
	if err != nil {
		return nil, errors.Wrapf(err, "loading weights %s", mc.Weights)
	}
	if w.NumVertices() != len(obj.Positions) {
		return nil, errors.Wrapf(ErrWeightMismatch, "%s: %d records for %d vertices",
			mc.Weights, w.NumVertices(), len(obj.Positions))
	}
	if err := m.SetVertexGroups(w.Groups); err != nil {
		return nil, errors.Wrapf(err, "mesh %q", name)
	}
	if err := m.AssignBoneIndices(arm); err != nil {
		return nil, errors.Wrapf(err, "binding mesh %q", name)
	}
	return m, nil
}

// newGizmos clones the bone model once per bone, scaled by the bone's size.
func newGizmos(base *skin.Mesh, arm *armature.Armature) []*skin.Mesh {
	gizmos := make([]*skin.Mesh, arm.NumBones())
	for i := range gizmos {
		b := arm.Bone(i)
		g := base.Clone(b.Name)
		g.Scale(b.Size)
		gizmos[i] = g
	}
	return gizmos
}

// newRestGizmos copies the scaled bone models and places each one at its
// bone's rest transform.
func newRestGizmos(gizmos []*skin.Mesh, arm *armature.Armature) []*skin.Mesh {
	rest := make([]*skin.Mesh, len(gizmos))
	for i, g := range gizmos {
		b := arm.Bone(i)
		rg := g.Clone(g.Name)
		rg.RotateAndTranslate(b.QLocal, b.PosLocal)
		rest[i] = rg
	}
	return rest
}
