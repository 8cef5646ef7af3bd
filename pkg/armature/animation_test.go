package armature

import (
	gomath "math"
	"testing"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

func spinBone(name, parent string, lastFrame float32) BoneDesc {
	return BoneDesc{
		Name:   name,
		Parent: parent,
		QLocal: math.QuatIdentity(),
		QBasis: math.QuatIdentity(),
		Frames: []Keyframe{
			{Frame: 1, Orientation: math.QuatIdentity()},
			{Frame: lastFrame, Orientation: math.QuatFromAxisAngle(math.Vec3{Z: 1}, gomath.Pi)},
		},
	}
}

func TestAnimate_WrapsToStart(t *testing.T) {
	a, err := New([]BoneDesc{spinBone("A", RootParent, 10)}, Options{Animated: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.CurrFrame() != 1 || a.LastFrame() != 10 {
		t.Fatalf("clock = %v/%v, want 1/10", a.CurrFrame(), a.LastFrame())
	}

	wrapped := false
	for i := 0; i < 40; i++ {
		before := a.CurrFrame()
		a.Animate(0.65)
		if before+0.65 > 10 {
			wrapped = true
			if a.CurrFrame() != 1 {
				t.Fatalf("after passing frame 10 clock = %v, want exactly 1", a.CurrFrame())
			}
		} else if a.CurrFrame() != before+0.65 {
			t.Fatalf("clock = %v, want %v", a.CurrFrame(), before+0.65)
		}
	}
	if !wrapped {
		t.Error("clock never wrapped")
	}
}

func TestAnimate_LastFrameIsMaxAcrossBones(t *testing.T) {
	a, err := New([]BoneDesc{
		spinBone("A", RootParent, 24),
		spinBone("B", "A", 12),
	}, Options{Animated: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.LastFrame() != 24 {
		t.Errorf("LastFrame = %v, want 24", a.LastFrame())
	}
}

func TestComputeCurrBasis_Interpolates(t *testing.T) {
	a, err := New([]BoneDesc{spinBone("A", RootParent, 11)}, Options{Animated: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		frame float32
		angle float64
	}{
		{1, 0},
		{3.5, gomath.Pi / 4},
		{6, gomath.Pi / 2},
		{8.5, 3 * gomath.Pi / 4},
	}

	for _, tt := range tests {
		a.SetFrame(tt.frame)
		if err := a.ComputeCurrBasis(); err != nil {
			t.Fatalf("frame %v: %v", tt.frame, err)
		}
		got := a.Bone(0).QBasisCurrent
		want := math.QuatFromAxisAngle(math.Vec3{Z: 1}, float32(tt.angle))
		if !quatClose(got, want, 1e-3) {
			t.Errorf("frame %v: basis = %v, want %v", tt.frame, got, want)
		}
	}
}

func TestComputeCurrBasis_HoldsLastKeyframe(t *testing.T) {
	a, err := New([]BoneDesc{
		spinBone("Long", RootParent, 20),
		spinBone("Short", "Long", 5),
	}, Options{Animated: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a.SetFrame(12)
	if err := a.ComputeCurrBasis(); err != nil {
		t.Fatalf("ComputeCurrBasis: %v", err)
	}
	want := a.Bone(1).Frames[1].Orientation
	if got := a.Bone(1).QBasisCurrent; got != want {
		t.Errorf("short bone basis = %v, want last keyframe %v", got, want)
	}
}

func TestComputeCurrBasis_BeforeFirstKeyframe(t *testing.T) {
	a, err := New([]BoneDesc{spinBone("A", RootParent, 10)}, Options{Animated: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.SetFrame(0.5)
	if err := a.ComputeCurrBasis(); err == nil {
		t.Error("expected error for clock before the first keyframe")
	}
}

func TestComputeCurrBasis_StaticArmature(t *testing.T) {
	d := spinBone("A", RootParent, 10)
	d.QBasis = math.QuatFromAxisAngle(math.Vec3{X: 1}, 0.3)
	a, err := New([]BoneDesc{d}, Options{Animated: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.SetFrame(6)
	if err := a.ComputeCurrBasis(); err != nil {
		t.Fatalf("ComputeCurrBasis: %v", err)
	}
	if a.Bone(0).QBasisCurrent != d.QBasis {
		t.Errorf("static armature basis changed to %v", a.Bone(0).QBasisCurrent)
	}
}

func TestAdvance(t *testing.T) {
	a, err := New([]BoneDesc{spinBone("A", RootParent, 11)}, Options{Animated: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Advance(5); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	want := math.QuatFromAxisAngle(math.Vec3{Z: 1}, gomath.Pi/2)
	if got := a.Bone(0).QFinal; !quatClose(got, want, 1e-3) {
		t.Errorf("QFinal after Advance = %v, want %v", got, want)
	}
}

func TestComputeCurrBasis_FailureKeepsPreviousBasis(t *testing.T) {
	a, err := New([]BoneDesc{
		spinBone("A", RootParent, 10),
		spinBone("B", "A", 10),
	}, Options{Animated: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.SetFrame(5)
	if err := a.ComputeCurrBasis(); err != nil {
		t.Fatalf("ComputeCurrBasis: %v", err)
	}
	before := []math.Quat{a.Bone(0).QBasisCurrent, a.Bone(1).QBasisCurrent}

	// A can still be sampled at frame 2, B cannot.
	a.Bone(1).Frames[0].Frame = 3
	a.SetFrame(2)
	if err := a.ComputeCurrBasis(); err == nil {
		t.Fatal("expected error for B before its first keyframe")
	}
	for i, want := range before {
		if got := a.Bone(i).QBasisCurrent; got != want {
			t.Errorf("bone %d basis = %v after a failed sample, want %v", i, got, want)
		}
	}
}
