package mesh

import "github.com/chewxy/math32"

// Cube returns the data for a unit cube centered on the origin, with
// per-face normals and a full [0,1] UV square per face.
//
// Returns:
//   - Data: the cube mesh data
func Cube() Data {
	type face struct {
		normal  [3]float32
		corners [4][3]float32
	}
	faces := []face{
		{[3]float32{0, 0, 1}, [4][3]float32{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}},
		{[3]float32{0, 0, -1}, [4][3]float32{{0.5, -0.5, -0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {0.5, 0.5, -0.5}}},
		{[3]float32{1, 0, 0}, [4][3]float32{{0.5, -0.5, 0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {0.5, 0.5, 0.5}}},
		{[3]float32{-1, 0, 0}, [4][3]float32{{-0.5, -0.5, -0.5}, {-0.5, -0.5, 0.5}, {-0.5, 0.5, 0.5}, {-0.5, 0.5, -0.5}}},
		{[3]float32{0, 1, 0}, [4][3]float32{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}},
		{[3]float32{0, -1, 0}, [4][3]float32{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}},
	}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	var d Data
	for f, fc := range faces {
		base := uint32(f * 4)
		for c := 0; c < 4; c++ {
			d.Vertices = append(d.Vertices, fc.corners[c][0], fc.corners[c][1], fc.corners[c][2])
			d.Normals = append(d.Normals, fc.normal[0], fc.normal[1], fc.normal[2])
			d.UVs = append(d.UVs, uvs[c][0], uvs[c][1])
		}
		d.Indices = append(d.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return d
}

// Sphere returns the data for a UV sphere of radius 0.5 centered on the
// origin.
//
// Parameters:
//   - segments: longitudinal subdivisions (minimum 3)
//   - rings: latitudinal subdivisions (minimum 2)
//
// Returns:
//   - Data: the sphere mesh data
func Sphere(segments, rings int) Data {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	var d Data
	for r := 0; r <= rings; r++ {
		phi := math32.Pi * float32(r) / float32(rings)
		y := math32.Cos(phi)
		ringRadius := math32.Sin(phi)
		for s := 0; s <= segments; s++ {
			theta := 2 * math32.Pi * float32(s) / float32(segments)
			x := ringRadius * math32.Cos(theta)
			z := ringRadius * math32.Sin(theta)

			d.Vertices = append(d.Vertices, x*0.5, y*0.5, z*0.5)
			d.Normals = append(d.Normals, x, y, z)
			d.UVs = append(d.UVs, float32(s)/float32(segments), float32(r)/float32(rings))
		}
	}

	stride := uint32(segments + 1)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			a := uint32(r)*stride + uint32(s)
			b := a + stride
			d.Indices = append(d.Indices, a, b, a+1, a+1, b, b+1)
		}
	}
	return d
}

// Quad returns the data for a unit quad in the XY plane facing +Z, used for
// full-screen and billboard geometry.
//
// Returns:
//   - Data: the quad mesh data
func Quad() Data {
	return Data{
		Vertices: []float32{
			-0.5, -0.5, 0,
			0.5, -0.5, 0,
			0.5, 0.5, 0,
			-0.5, 0.5, 0,
		},
		Normals: []float32{
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
			0, 0, 1,
		},
		UVs: []float32{
			0, 1,
			1, 1,
			1, 0,
			0, 0,
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}
