package renderer

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPU-side byte sizes of the uniform structs, for buffer allocation.
const (
	GPUCameraUniformSize  uint64 = 80
	GPUGlobalsUniformSize uint64 = 16
)

// GPUCameraUniform is the GPU-aligned representation of the camera uniform
// buffer bound at group 0, binding 1.
// Size: 80 bytes (std140 / WGSL aligned).
type GPUCameraUniform struct {
	ViewProj [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	Position [3]float32  // offset 64: world-space camera position (vec3<f32>)
	_pad     float32     // offset 76: padding to 80 bytes
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (80)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.ViewProj[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Position[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], 0) // _pad
	return buf
}

// GPUGlobalsUniform is the GPU-aligned representation of the frame globals
// uniform bound at group 0, binding 4.
// Size: 16 bytes (std140 / WGSL aligned).
type GPUGlobalsUniform struct {
	LightDir [3]float32 // offset  0: world-space directional light (vec3<f32>)
	Time     float32    // offset 12: elapsed time in seconds (f32)
}

// Size returns the size of the GPUGlobalsUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUGlobalsUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUGlobalsUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUGlobalsUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.LightDir[i]))
	}
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.Time))
	return buf
}
