package armature

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Armature errors.
var (
	ErrMalformedSkeleton   = errors.New("malformed skeleton")
	ErrUnresolvedReference = errors.New("unresolved bone reference")
	ErrDegenerateRotation  = errors.New("degenerate rotation")
)

// RootParent is the parent name exporters write for bones without a parent.
const RootParent = "Root"

// StartFrame is the clock value an armature starts at and wraps back to.
const StartFrame float32 = 1

// Options controls how an armature is built.
type Options struct {
	// Animated enables keyframe sampling. Without it every bone keeps its
	// rest basis and keyframes are ignored.
	Animated bool
}

// Armature owns a bone hierarchy and its animation clock.
type Armature struct {
	bones    []Bone
	byName   map[string]int
	order    []int
	animated bool

	currFrame float32
	lastFrame float32

	// Per-tick results are staged here and committed only on success.
	scratchBasis []math.Quat
	scratchPose  []TransformPair
}

// New builds an armature from bone descriptions. Bone IDs follow the order of
// descs. Parents are linked by name once, here; per-tick code uses indices.
func New(descs []BoneDesc, opts Options) (*Armature, error) {
	if len(descs) == 0 {
		return nil, fmt.Errorf("%w: no bones", ErrMalformedSkeleton)
	}

	a := &Armature{
		bones:     make([]Bone, len(descs)),
		byName:    make(map[string]int, len(descs)),
		animated:  opts.Animated,
		currFrame: StartFrame,

		scratchBasis: make([]math.Quat, len(descs)),
		scratchPose:  make([]TransformPair, len(descs)),
	}

	for i, d := range descs {
		if _, dup := a.byName[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate bone name %q", ErrMalformedSkeleton, d.Name)
		}
		a.byName[d.Name] = i

		a.bones[i] = Bone{
			Name:            d.Name,
			ID:              i,
			ParentName:      d.Parent,
			Parent:          NoParent,
			Size:            d.Size,
			QLocal:          d.QLocal,
			PosLocal:        d.PosLocal,
			QBasis:          d.QBasis,
			PosBasis:        d.PosBasis,
			QBasisCurrent:   d.QBasis,
			PosBasisCurrent: d.PosBasis,
			QFinal:          d.QLocal,
			PosFinal:        d.PosLocal,
			Frames:          d.Frames,
		}
	}

	if err := a.linkParents(); err != nil {
		return nil, err
	}
	order, err := evalOrder(a.bones)
	if err != nil {
		return nil, err
	}
	a.order = order

	if a.animated {
		if err := a.checkFrames(); err != nil {
			return nil, err
		}
	}
	a.lastFrame = a.maxFrame()

	return a, nil
}

func (a *Armature) linkParents() error {
	for i := range a.bones {
		b := &a.bones[i]
		if b.ParentName == "" || b.ParentName == b.Name {
			continue
		}
		if p, ok := a.byName[b.ParentName]; ok {
			b.Parent = p
			continue
		}
		if b.ParentName == RootParent {
			continue
		}
		return fmt.Errorf("%w: bone %q has unknown parent %q", ErrUnresolvedReference, b.Name, b.ParentName)
	}
	return nil
}

// evalOrder returns bone indices with every parent ahead of its children.
// Roots keep their declaration order, children follow breadth first.
func evalOrder(bones []Bone) ([]int, error) {
	children := make([][]int, len(bones))
	order := make([]int, 0, len(bones))
	for i := range bones {
		if bones[i].Parent == NoParent {
			order = append(order, i)
		} else {
			children[bones[i].Parent] = append(children[bones[i].Parent], i)
		}
	}

	for next := 0; next < len(order); next++ {
		order = append(order, children[order[next]]...)
	}

	if len(order) != len(bones) {
		return nil, fmt.Errorf("%w: parent cycle among %d bones", ErrMalformedSkeleton, len(bones)-len(order))
	}
	return order, nil
}

func (a *Armature) checkFrames() error {
	for i := range a.bones {
		b := &a.bones[i]
		if len(b.Frames) == 0 {
			return fmt.Errorf("%w: bone %q has no keyframes", ErrMalformedSkeleton, b.Name)
		}
		if b.Frames[0].Frame > StartFrame {
			return fmt.Errorf("%w: bone %q starts at frame %v, after frame %v",
				ErrMalformedSkeleton, b.Name, b.Frames[0].Frame, StartFrame)
		}
		for k := 1; k < len(b.Frames); k++ {
			if b.Frames[k].Frame <= b.Frames[k-1].Frame {
				return fmt.Errorf("%w: bone %q keyframes not ascending at index %d",
					ErrMalformedSkeleton, b.Name, k)
			}
		}
	}
	return nil
}

func (a *Armature) maxFrame() float32 {
	last := StartFrame
	for i := range a.bones {
		if n := len(a.bones[i].Frames); n > 0 && a.bones[i].Frames[n-1].Frame > last {
			last = a.bones[i].Frames[n-1].Frame
		}
	}
	return last
}

// NumBones returns the number of bones.
func (a *Armature) NumBones() int {
	return len(a.bones)
}

// Bone returns the bone with the given ID.
func (a *Armature) Bone(id int) *Bone {
	return &a.bones[id]
}

// Bones returns the bone arena. Callers must not reorder it.
func (a *Armature) Bones() []Bone {
	return a.bones
}

// BoneIndex returns the ID of the named bone.
func (a *Armature) BoneIndex(name string) (int, bool) {
	i, ok := a.byName[name]
	return i, ok
}

// EvalOrder returns the parents-first order used by the pose resolver.
func (a *Armature) EvalOrder() []int {
	return a.order
}

// Animated reports whether keyframes are sampled.
func (a *Armature) Animated() bool {
	return a.animated
}
