// Package formats parses the text files a rig is built from: the armature
// description written by the Blender armature exporter, Wavefront OBJ meshes
// and per-vertex bone weight listings.
package formats

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// lineReader walks text input line by line, tracking the line number for
// error messages.
type lineReader struct {
	sc     *bufio.Scanner
	line   string
	lineNo int
	peeked bool
}

func newLineReader(data []byte) *lineReader {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &lineReader{sc: sc}
}

// next advances to the next line. It returns false at end of input.
func (r *lineReader) next() bool {
	if r.peeked {
		r.peeked = false
		return true
	}
	if !r.sc.Scan() {
		return false
	}
	r.lineNo++
	r.line = strings.TrimRight(r.sc.Text(), "\r")
	return true
}

// unread makes the current line the result of the next call to next.
func (r *lineReader) unread() {
	r.peeked = true
}

func (r *lineReader) err() error {
	return r.sc.Err()
}

func parseFloats(fields []string) ([]float32, error) {
	out := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// zUpToYUp converts a Blender Z-up vector to the Y-up convention.
func zUpToYUp(v math.Vec3) math.Vec3 {
	return math.Vec3{X: v.X, Y: v.Z, Z: -v.Y}
}

// zUpToYUpQuat converts the vector part of a Blender Z-up quaternion to Y-up.
func zUpToYUpQuat(q math.Quat) math.Quat {
	return math.Quat{X: q.X, Y: q.Z, Z: -q.Y, W: q.W}
}
