package formats

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-rig/pkg/math"
	"github.com/Faultbox/midgard-rig/pkg/skin"
)

// OBJ format errors.
var (
	ErrInvalidOBJ    = errors.New("invalid OBJ data")
	ErrOBJIndexRange = errors.New("OBJ index out of range")
)

// OBJ is a triangulated Wavefront OBJ mesh. Corner indices are 0-based.
type OBJ struct {
	Name      string
	Positions []math.Vec3
	TexCoords [][2]float32
	Normals   []math.Vec3
	Corners   []skin.Corner
}

// NumTriangles returns the number of triangles.
func (o *OBJ) NumTriangles() int {
	return len(o.Corners) / 3
}

// Mesh builds a skinnable mesh from the OBJ data.
func (o *OBJ) Mesh(name string) (*skin.Mesh, error) {
	return skin.NewMesh(name, o.Positions, o.TexCoords, o.Normals, o.Corners)
}

// ParseOBJ parses the subset of Wavefront OBJ that Blender writes for a
// triangulated mesh: v, vt, vn and f statements with "p/t/n" or "p//n"
// corners. Polygons with more than three corners are fan-triangulated.
// Other statements are ignored.
func ParseOBJ(data []byte) (*OBJ, error) {
	r := newLineReader(data)
	obj := &OBJ{}

	for r.next() {
		fields := strings.Fields(r.line)
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch fields[0] {
		case "o":
			if len(fields) > 1 && obj.Name == "" {
				obj.Name = fields[1]
			}
		case "v":
			v, err := vecFields(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNo, err)
			}
			obj.Positions = append(obj.Positions, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
		case "vt":
			v, err := vecFields(fields[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNo, err)
			}
			obj.TexCoords = append(obj.TexCoords, [2]float32{v[0], v[1]})
		case "vn":
			v, err := vecFields(fields[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNo, err)
			}
			obj.Normals = append(obj.Normals, math.Vec3{X: v[0], Y: v[1], Z: v[2]})
		case "f":
			if err := obj.addFace(fields[1:]); err != nil {
				return nil, fmt.Errorf("line %d: %w", r.lineNo, err)
			}
		}
	}
	if err := r.err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}

	if len(obj.Corners) == 0 {
		return nil, fmt.Errorf("%w: no faces", ErrInvalidOBJ)
	}
	return obj, nil
}

// ParseOBJFile reads and parses an OBJ file.
func ParseOBJFile(path string) (*OBJ, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	return ParseOBJ(data)
}

// vecFields parses at least n floats; extra components (vertex colors, w) are dropped.
func vecFields(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("%w: want %d components, got %d", ErrInvalidOBJ, n, len(fields))
	}
	v, err := parseFloats(fields[:n])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOBJ, err)
	}
	return v, nil
}

func (o *OBJ) addFace(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("%w: face with %d corners", ErrInvalidOBJ, len(fields))
	}

	poly := make([]skin.Corner, len(fields))
	for i, f := range fields {
		c, err := o.parseCorner(f)
		if err != nil {
			return err
		}
		poly[i] = c
	}

	for i := 1; i+1 < len(poly); i++ {
		o.Corners = append(o.Corners, poly[0], poly[i], poly[i+1])
	}
	return nil
}

func (o *OBJ) parseCorner(s string) (skin.Corner, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return skin.Corner{}, fmt.Errorf("%w: corner %q needs position and normal indices", ErrInvalidOBJ, s)
	}

	pos, err := objIndex(parts[0], len(o.Positions))
	if err != nil {
		return skin.Corner{}, err
	}
	uv := -1
	if parts[1] != "" {
		if uv, err = objIndex(parts[1], len(o.TexCoords)); err != nil {
			return skin.Corner{}, err
		}
	}
	n, err := objIndex(parts[2], len(o.Normals))
	if err != nil {
		return skin.Corner{}, err
	}

	return skin.Corner{Position: pos, TexCoord: uv, Normal: n}, nil
}

// objIndex converts a 1-based (or negative, relative) OBJ index to 0-based.
func objIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: index %q", ErrInvalidOBJ, s)
	}
	switch {
	case i > 0:
		i--
	case i < 0:
		i += count
	default:
		return 0, fmt.Errorf("%w: index 0", ErrOBJIndexRange)
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("%w: %s with %d elements", ErrOBJIndexRange, s, count)
	}
	return i, nil
}
