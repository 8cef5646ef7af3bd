package skin

import "github.com/Faultbox/midgard-rig/pkg/math"

// Translate places the rest geometry offset by v.
func (m *Mesh) Translate(v math.Vec3) {
	for i, r := range m.rest {
		m.vertices[i].Position = r.Position.Add(v)
		m.vertices[i].Normal = r.Normal
	}
}

// Rotate places the rest geometry rotated by q about the origin.
func (m *Mesh) Rotate(q math.Quat) {
	for i, r := range m.rest {
		m.vertices[i].Position = q.Rotate(r.Position)
		m.vertices[i].Normal = q.Rotate(r.Normal)
	}
}

// RotateAndTranslate rotates the rest geometry by q, then offsets it by v.
func (m *Mesh) RotateAndTranslate(q math.Quat, v math.Vec3) {
	for i, r := range m.rest {
		m.vertices[i].Position = q.Rotate(r.Position).Add(v)
		m.vertices[i].Normal = q.Rotate(r.Normal)
	}
}

// Scale multiplies the rest geometry by s. It changes the mesh permanently:
// later transforms and deformations start from the scaled rest pose.
func (m *Mesh) Scale(s float32) {
	for i := range m.rest {
		m.rest[i].Position = m.rest[i].Position.Scale(s)
		m.vertices[i].Position = m.rest[i].Position
	}
	for i := range m.skin {
		m.skin[i].PosLocal = m.skin[i].PosLocal.Scale(s)
		m.skin[i].PosTrans = m.skin[i].PosLocal
	}
}

// Reset restores the corner buffer to the rest geometry.
func (m *Mesh) Reset() {
	copy(m.vertices, m.rest)
	for i := range m.skin {
		m.skin[i].PosTrans = m.skin[i].PosLocal
	}
}
