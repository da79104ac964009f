package material

import (
	"encoding/binary"
	"fmt"

	"envcube/libgfx"

	"github.com/go-gl/mathgl/mgl32"
)

// CameraMatrices matches the std140 layout of the cameraMatrices block.
type CameraMatrices struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
	// Camera is the inverse of View.
	Camera mgl32.Mat4
}

// CameraUniforms matches the std140 layout of the cameraUniforms block.
type CameraUniforms struct {
	Position mgl32.Vec3
	Exposure float32
	FOV      float32
	_        [3]float32
}

// CameraBlocks owns the uniform buffers behind the shared camera blocks.
type CameraBlocks struct {
	dev      libgfx.Device
	matrices libgfx.UniformBuffer
	uniforms libgfx.UniformBuffer
}

func NewCameraBlocks(dev libgfx.Device) (*CameraBlocks, error) {
	matrices, err := dev.CreateUniformBuffer(binary.Size(CameraMatrices{}))
	if err != nil {
		return nil, fmt.Errorf("create camera matrices buffer: %w", err)
	}
	uniforms, err := dev.CreateUniformBuffer(binary.Size(CameraUniforms{}))
	if err != nil {
		dev.DeleteUniformBuffer(matrices)
		return nil, fmt.Errorf("create camera uniforms buffer: %w", err)
	}
	return &CameraBlocks{dev: dev, matrices: matrices, uniforms: uniforms}, nil
}

func (c *CameraBlocks) Update(matrices CameraMatrices, uniforms CameraUniforms) {
	c.dev.WriteUniformBuffer(c.matrices, 0, matrices)
	c.dev.WriteUniformBuffer(c.uniforms, 0, uniforms)
}

// Bind attaches the buffers to their global bind points.
func (c *CameraBlocks) Bind() {
	c.dev.BindUniformBuffer(BindPointCameraMatrices, c.matrices)
	c.dev.BindUniformBuffer(BindPointCameraUniforms, c.uniforms)
}

func (c *CameraBlocks) Delete() {
	c.dev.DeleteUniformBuffer(c.matrices)
	c.dev.DeleteUniformBuffer(c.uniforms)
}

// DecodeCameraMatrices reads the block contents as seen by a kernel.
func DecodeCameraMatrices(data []byte) (m CameraMatrices, ok bool) {
	if len(data) < binary.Size(m) {
		return m, false
	}
	_, err := binary.Decode(data, binary.LittleEndian, &m)
	return m, err == nil
}

func DecodeCameraUniforms(data []byte) (u CameraUniforms, ok bool) {
	if len(data) < binary.Size(u) {
		return u, false
	}
	_, err := binary.Decode(data, binary.LittleEndian, &u)
	return u, err == nil
}
