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

// ErrInvalidVertexGroups is returned for malformed weight files.
var ErrInvalidVertexGroups = errors.New("invalid vertex groups")

// VertexWeights is a parsed weight file: one record per unique mesh vertex,
// in mesh order.
type VertexWeights struct {
	// Positions are the vertex coordinates as the exporter saw them (Blender
	// axes). They are informational; the mesh supplies the rest positions.
	Positions []math.Vec3
	Groups    [][]skin.VertexGroup
}

// NumVertices returns the number of vertex records.
func (w *VertexWeights) NumVertices() int {
	return len(w.Groups)
}

// ParseVertexGroups parses a weight file. Each record is a "vertex: N" line
// (N counts from 1), a coordinate line and any number of indented
// "<bone name> <weight>" lines.
func ParseVertexGroups(data []byte) (*VertexWeights, error) {
	r := newLineReader(data)
	w := &VertexWeights{}

	for r.next() {
		line := strings.TrimSpace(r.line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "vertex:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "vertex:")))
			if err != nil || n != len(w.Groups)+1 {
				return nil, fmt.Errorf("%w: line %d: expected vertex %d, got %q",
					ErrInvalidVertexGroups, r.lineNo, len(w.Groups)+1, line)
			}
			if !r.next() {
				return nil, fmt.Errorf("%w: vertex %d: missing coordinates", ErrInvalidVertexGroups, n)
			}
			p, err := parseFloats(strings.Fields(r.line))
			if err != nil || len(p) != 3 {
				return nil, fmt.Errorf("%w: line %d: bad coordinates %q", ErrInvalidVertexGroups, r.lineNo, r.line)
			}
			w.Positions = append(w.Positions, math.Vec3{X: p[0], Y: p[1], Z: p[2]})
			w.Groups = append(w.Groups, nil)
			continue
		}

		if len(w.Groups) == 0 {
			return nil, fmt.Errorf("%w: line %d: weight before the first vertex", ErrInvalidVertexGroups, r.lineNo)
		}
		g, err := parseGroup(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidVertexGroups, r.lineNo, err)
		}
		last := len(w.Groups) - 1
		w.Groups[last] = append(w.Groups[last], g)
	}
	if err := r.err(); err != nil {
		return nil, fmt.Errorf("reading vertex groups: %w", err)
	}

	return w, nil
}

// ParseVertexGroupsFile reads and parses a weight file.
func ParseVertexGroupsFile(path string) (*VertexWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading vertex groups file: %w", err)
	}
	return ParseVertexGroups(data)
}

// parseGroup splits "<bone name> <weight>"; the name may contain spaces.
func parseGroup(line string) (skin.VertexGroup, error) {
	i := strings.LastIndexAny(line, " \t")
	if i < 0 {
		return skin.VertexGroup{}, fmt.Errorf("expected '<bone> <weight>', got %q", line)
	}
	weight, err := strconv.ParseFloat(line[i+1:], 32)
	if err != nil {
		return skin.VertexGroup{}, fmt.Errorf("weight %q: %v", line[i+1:], err)
	}
	return skin.VertexGroup{
		BoneName:  strings.TrimSpace(line[:i]),
		BoneIndex: skin.Unbound,
		Weight:    float32(weight),
	}, nil
}
