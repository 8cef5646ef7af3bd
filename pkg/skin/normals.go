package skin

import (
	gomath "math"

	"github.com/Faultbox/midgard-rig/pkg/math"
)

// RecalculateNormals rebuilds corner normals from the current corner
// positions. Each corner contributes its face normal weighted by the corner
// angle to the accumulator of its normal index; corners sharing a normal index
// end up with the same smoothed normal.
func (m *Mesh) RecalculateNormals() {
	for i := range m.normalAcc {
		m.normalAcc[i] = math.Vec3{}
	}

	for t := 0; t+2 < len(m.vertices); t += 3 {
		p := [3]math.Vec3{
			m.vertices[t].Position,
			m.vertices[t+1].Position,
			m.vertices[t+2].Position,
		}
		for k := 0; k < 3; k++ {
			// Edges run from corner k to the previous and the next corner.
			u := p[k].Sub(p[(k+2)%3]).Normalize()
			v := p[k].Sub(p[(k+1)%3]).Normalize()
			angle := float32(gomath.Acos(float64(u.Dot(v))))
			n := v.Cross(u).Normalize().Scale(angle)

			idx := m.corners[t+k].Normal
			m.normalAcc[idx] = m.normalAcc[idx].Add(n)
		}
	}

	for i := range m.normalAcc {
		m.normalAcc[i] = m.normalAcc[i].Normalize()
	}
	for i, c := range m.corners {
		m.vertices[i].Normal = m.normalAcc[c.Normal]
	}
}
