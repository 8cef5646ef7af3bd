package armature

import (
	"fmt"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Animate advances the clock by progress frames. Once the clock passes the
// last keyframe of the armature it restarts at exactly StartFrame; any
// overshoot is dropped.
func (a *Armature) Animate(progress float32) {
	a.currFrame += progress
	if a.currFrame > a.lastFrame {
		a.currFrame = StartFrame
	}
}

// CurrFrame returns the clock value.
func (a *Armature) CurrFrame() float32 {
	return a.currFrame
}

// LastFrame returns the highest keyframe number across all bones.
func (a *Armature) LastFrame() float32 {
	return a.lastFrame
}

// SetFrame moves the clock to frame.
func (a *Armature) SetFrame(frame float32) {
	a.currFrame = frame
}

// ComputeCurrBasis samples every bone's basis orientation at the current frame.
//
// The bracketing pair is the first keyframe past the clock and the one before
// it; orientations are interpolated with Slerp. A bone whose last keyframe is
// at or before the clock holds that keyframe. The clock must not be earlier
// than a bone's first keyframe; on error no bone is updated.
func (a *Armature) ComputeCurrBasis() error {
	if !a.animated {
		return nil
	}

	basis := a.scratchBasis
	for i := range a.bones {
		q, err := sampleBasis(a.bones[i].Frames, a.currFrame)
		if err != nil {
			return fmt.Errorf("bone %q: %w", a.bones[i].Name, err)
		}
		basis[i] = q
	}
	for i := range a.bones {
		a.bones[i].QBasisCurrent = basis[i]
	}
	return nil
}

func sampleBasis(frames []Keyframe, curr float32) (math.Quat, error) {
	if len(frames) == 0 {
		return math.Quat{}, fmt.Errorf("%w: no keyframes", ErrMalformedSkeleton)
	}
	if curr < frames[0].Frame {
		return math.Quat{}, fmt.Errorf("%w: frame %v precedes first keyframe %v",
			ErrMalformedSkeleton, curr, frames[0].Frame)
	}

	for i := 1; i < len(frames); i++ {
		if curr < frames[i].Frame {
			k0, k1 := frames[i-1], frames[i]
			t := (curr - k0.Frame) / (k1.Frame - k0.Frame)
			return k0.Orientation.Slerp(k1.Orientation, t), nil
		}
	}
	return frames[len(frames)-1].Orientation, nil
}

// Advance runs one full pose update: clock, basis sampling, pose resolution.
func (a *Armature) Advance(progress float32) error {
	a.Animate(progress)
	if err := a.ComputeCurrBasis(); err != nil {
		return err
	}
	return a.ComputeFinalOrientationPos()
}
