// Package rig drives a loaded skeleton and its skinned meshes frame by frame.
package rig

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/config"
	"github.com/Faultbox/midgard-rig/internal/logger"
	"github.com/Faultbox/midgard-rig/pkg/armature"
	"github.com/Faultbox/midgard-rig/pkg/skin"
)

// Rig is an armature together with the meshes it deforms.
type Rig struct {
	anim config.AnimationConfig
	log  *zap.Logger

	arm    *armature.Armature
	meshes []*skin.Mesh
	// gizmos holds one bone model per bone, indexed by bone ID.
	gizmos []*skin.Mesh
	// restGizmos are the same models placed at each bone's rest transform.
	restGizmos []*skin.Mesh

	ticks int
}

// Armature returns the rig's skeleton.
func (r *Rig) Armature() *armature.Armature {
	return r.arm
}

// Meshes returns the rig's meshes in configuration order.
func (r *Rig) Meshes() []*skin.Mesh {
	return r.meshes
}

// Gizmos returns the posed bone models, one per bone, or nil when no bone
// model is configured.
func (r *Rig) Gizmos() []*skin.Mesh {
	return r.gizmos
}

// RestGizmos returns the bone models at each bone's rest transform
// (QLocal, PosLocal), one per bone, or nil when no bone model is configured.
// They do not change with the clock.
func (r *Rig) RestGizmos() []*skin.Mesh {
	return r.restGizmos
}

// Pose returns every bone's final transform for the current frame.
func (r *Rig) Pose() []armature.TransformPair {
	return r.arm.Pose()
}

// Frame returns the animation clock.
func (r *Rig) Frame() float32 {
	return r.arm.CurrFrame()
}

// Ticks returns the number of completed ticks.
func (r *Rig) Ticks() int {
	return r.ticks
}

// Progress returns the configured frames per tick.
func (r *Rig) Progress() float32 {
	return r.anim.Progress
}

// Step runs one tick with the configured progress.
func (r *Rig) Step() error {
	return r.Tick(r.anim.Progress)
}

// Tick advances the clock by progress frames, resolves the pose and deforms
// every skinned mesh. If the pose cannot be resolved the meshes keep the
// previous frame.
func (r *Rig) Tick(progress float32) error {
	if err := r.arm.Advance(progress); err != nil {
		r.log.Error("pose update failed", zap.Float32("frame", r.arm.CurrFrame()), zap.Error(err))
		return errors.Wrapf(err, "tick %d", r.ticks+1)
	}

	if err := r.deform(); err != nil {
		r.log.Error("deformation failed", zap.Float32("frame", r.arm.CurrFrame()), zap.Error(err))
		return errors.Wrapf(err, "tick %d", r.ticks+1)
	}
	r.poseGizmos()

	r.ticks++
	r.log.Debug("tick", zap.Int("tick", r.ticks), zap.Float32("frame", r.arm.CurrFrame()))
	return nil
}

// Refresh re-resolves the current frame without advancing the clock.
func (r *Rig) Refresh() error {
	if err := r.arm.ComputeCurrBasis(); err != nil {
		return errors.Wrap(err, "sampling keyframes")
	}
	if err := r.arm.ComputeFinalOrientationPos(); err != nil {
		return errors.Wrap(err, "resolving pose")
	}
	if err := r.deform(); err != nil {
		return err
	}
	r.poseGizmos()
	return nil
}

func (r *Rig) deform() error {
	if !r.anim.Parallel {
		var errs error
		for _, m := range r.meshes {
			errs = multierr.Append(errs, deformMesh(m, r.arm))
		}
		return errs
	}

	// The pose is fully resolved before any goroutine starts; each one owns a
	// single mesh.
	results := make([]error, len(r.meshes))
	var wg sync.WaitGroup
	for i, m := range r.meshes {
		wg.Add(1)
		go func(i int, m *skin.Mesh) {
			defer wg.Done()
			results[i] = deformMesh(m, r.arm)
		}(i, m)
	}
	wg.Wait()
	return multierr.Combine(results...)
}

func deformMesh(m *skin.Mesh, skel skin.Skeleton) error {
	if !m.Bound() {
		return nil
	}
	if err := m.Deform(skel); err != nil {
		return errors.Wrapf(err, "mesh %q", m.Name)
	}
	m.RecalculateNormals()
	return nil
}

func (r *Rig) poseGizmos() {
	for i, g := range r.gizmos {
		b := r.arm.Bone(i)
		g.RotateAndTranslate(b.QFinal, b.PosFinal)
	}
}

func newLogger() *zap.Logger {
	return logger.Named("rig")
}
