package formats

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-rig/pkg/armature"
	"github.com/Faultbox/midgard-rig/pkg/math"
)

// Armature format errors.
var (
	ErrInvalidArmatureHeader = errors.New("invalid armature header: expected 'NUM_BONES: <n>'")
	ErrTruncatedArmature     = errors.New("truncated armature data")
	ErrInvalidBoneRecord     = errors.New("invalid bone record")
	ErrInvalidKeyframe       = errors.New("invalid keyframe")
)

const (
	boneIDMarker     = "BONE_ID:"
	parentIDPrefix   = "Parent_ID:"
	sizePrefix       = "Size:"
	quatLocalPrefix  = "Quaternion local:"
	locLocalPrefix   = "Location local:"
	quatBasisPrefix  = "Quaternion basis:"
	locBasisPrefix   = "Location basis:"
	channelSeparator = ":"
)

// Skeleton is a parsed armature file. Values are already converted from
// Blender's Z-up axes to Y-up.
type Skeleton struct {
	Bones []armature.BoneDesc
}

// Animated reports whether any bone carries keyframes.
func (s *Skeleton) Animated() bool {
	for _, b := range s.Bones {
		if len(b.Frames) > 0 {
			return true
		}
	}
	return false
}

// ParseArmature parses an armature description.
//
// The file starts with "NUM_BONES: n" followed by n bone records. A record
// opens with a "////////BONE_ID: name//////////" line, then Parent_ID, Size,
// local and basis orientation (w x y z) and location lines. Rotation keyframes
// follow as optional "w :", "x :", "y :", "z :" channel sections of
// "frame, value" lines; channels are merged by frame number. Records end at a
// blank line or at the next BONE_ID line.
func ParseArmature(data []byte) (*Skeleton, error) {
	r := newLineReader(data)

	if !nextNonBlank(r) {
		return nil, ErrInvalidArmatureHeader
	}
	fields := strings.Fields(r.line)
	if len(fields) != 2 || fields[0] != "NUM_BONES:" {
		return nil, ErrInvalidArmatureHeader
	}
	numBones, err := strconv.Atoi(fields[1])
	if err != nil || numBones < 0 {
		return nil, fmt.Errorf("%w: bone count %q", ErrInvalidArmatureHeader, fields[1])
	}

	skel := &Skeleton{Bones: make([]armature.BoneDesc, 0, numBones)}
	for i := 0; i < numBones; i++ {
		bone, err := parseBone(r)
		if err != nil {
			return nil, fmt.Errorf("parsing bone %d: %w", i, err)
		}
		skel.Bones = append(skel.Bones, bone)
	}
	if err := r.err(); err != nil {
		return nil, fmt.Errorf("reading armature: %w", err)
	}

	return skel, nil
}

// ParseArmatureFile reads and parses an armature file.
func ParseArmatureFile(path string) (*Skeleton, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading armature file: %w", err)
	}
	return ParseArmature(data)
}

func nextNonBlank(r *lineReader) bool {
	for r.next() {
		if strings.TrimSpace(r.line) != "" {
			return true
		}
	}
	return false
}

func parseBone(r *lineReader) (armature.BoneDesc, error) {
	var b armature.BoneDesc

	if !nextNonBlank(r) {
		return b, ErrTruncatedArmature
	}
	name, err := parseBoneName(r.line)
	if err != nil {
		return b, fmt.Errorf("line %d: %w", r.lineNo, err)
	}
	b.Name = name

	parent, err := field(r, parentIDPrefix)
	if err != nil {
		return b, err
	}
	b.Parent = strings.TrimSpace(parent)

	size, err := floatsField(r, sizePrefix, 1)
	if err != nil {
		return b, err
	}
	b.Size = size[0]

	q, err := floatsField(r, quatLocalPrefix, 4)
	if err != nil {
		return b, err
	}
	b.QLocal = zUpToYUpQuat(math.NewQuat(q[0], q[1], q[2], q[3]))

	p, err := floatsField(r, locLocalPrefix, 3)
	if err != nil {
		return b, err
	}
	b.PosLocal = zUpToYUp(math.Vec3{X: p[0], Y: p[1], Z: p[2]})

	q, err = floatsField(r, quatBasisPrefix, 4)
	if err != nil {
		return b, err
	}
	b.QBasis = zUpToYUpQuat(math.NewQuat(q[0], q[1], q[2], q[3]))

	p, err = floatsField(r, locBasisPrefix, 3)
	if err != nil {
		return b, err
	}
	b.PosBasis = zUpToYUp(math.Vec3{X: p[0], Y: p[1], Z: p[2]})

	frames, err := parseChannels(r)
	if err != nil {
		return b, fmt.Errorf("bone %q: %w", b.Name, err)
	}
	b.Frames = frames
	return b, nil
}

func parseBoneName(line string) (string, error) {
	i := strings.Index(line, boneIDMarker)
	if i < 0 {
		return "", fmt.Errorf("%w: expected %s, got %q", ErrInvalidBoneRecord, boneIDMarker, line)
	}
	name := strings.TrimLeft(line[i+len(boneIDMarker):], " ")
	name = strings.TrimRight(name, "/")
	if name == "" {
		return "", fmt.Errorf("%w: empty bone name", ErrInvalidBoneRecord)
	}
	return name, nil
}

func field(r *lineReader, prefix string) (string, error) {
	if !r.next() {
		return "", fmt.Errorf("%w: missing %q", ErrTruncatedArmature, prefix)
	}
	if !strings.HasPrefix(r.line, prefix) {
		return "", fmt.Errorf("%w: line %d: expected %q, got %q", ErrInvalidBoneRecord, r.lineNo, prefix, r.line)
	}
	return r.line[len(prefix):], nil
}

func floatsField(r *lineReader, prefix string, n int) ([]float32, error) {
	rest, err := field(r, prefix)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(rest)
	if len(fields) != n {
		return nil, fmt.Errorf("%w: line %d: %q wants %d values, got %d", ErrInvalidBoneRecord, r.lineNo, prefix, n, len(fields))
	}
	vals, err := parseFloats(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidBoneRecord, r.lineNo, err)
	}
	return vals, nil
}

// parseChannels reads keyframe channel sections until the end of the record.
func parseChannels(r *lineReader) ([]armature.Keyframe, error) {
	byFrame := make(map[float32]*math.Quat)
	channel := -1

	for r.next() {
		line := strings.TrimSpace(r.line)
		if line == "" {
			break
		}
		if strings.Contains(line, boneIDMarker) {
			r.unread()
			break
		}

		if strings.HasSuffix(line, channelSeparator) {
			name := strings.TrimSpace(strings.TrimSuffix(line, channelSeparator))
			idx := strings.Index("wxyz", name)
			if len(name) != 1 || idx < 0 {
				return nil, fmt.Errorf("%w: line %d: unknown channel %q", ErrInvalidKeyframe, r.lineNo, name)
			}
			channel = idx
			continue
		}
		if channel < 0 {
			return nil, fmt.Errorf("%w: line %d: keyframe outside a channel", ErrInvalidKeyframe, r.lineNo)
		}

		parts := strings.Split(line, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected 'frame, value', got %q", ErrInvalidKeyframe, r.lineNo, line)
		}
		vals, err := parseFloats([]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])})
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidKeyframe, r.lineNo, err)
		}

		q, ok := byFrame[vals[0]]
		if !ok {
			identity := math.QuatIdentity()
			q = &identity
			byFrame[vals[0]] = q
		}
		switch channel {
		case 0:
			q.W = vals[1]
		case 1:
			q.X = vals[1]
		case 2:
			q.Y = vals[1]
		case 3:
			q.Z = vals[1]
		}
	}

	if len(byFrame) == 0 {
		return nil, nil
	}
	frames := make([]armature.Keyframe, 0, len(byFrame))
	for f, q := range byFrame {
		frames = append(frames, armature.Keyframe{Frame: f, Orientation: zUpToYUpQuat(*q)})
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Frame < frames[j].Frame })
	return frames, nil
}
