// Package libgfx defines the small set of GPU operations the environment
// pipeline needs, so it can run against OpenGL or the software device.
package libgfx

import "fmt"

// Device owns GPU objects. Its methods must be called from the thread that
// owns the underlying context.
type Device interface {
	// CreateTexture allocates zero initialized storage.
	CreateTexture(desc TextureDesc) (Texture, error)
	DeleteTexture(tex Texture)
	// UploadTexture replaces the contents of one face (ignored for 2d textures).
	// data is []uint8 or []float32 with channels values per texel, row 0 at the bottom.
	UploadTexture(tex Texture, face CubeFace, width, height, channels int, data any) error
	// ReadTexture returns one face as tightly packed RGBA floats.
	ReadTexture(tex Texture, face CubeFace) ([]float32, error)

	CreateFramebuffer() (Framebuffer, error)
	DeleteFramebuffer(fb Framebuffer)
	AttachColor(fb Framebuffer, tex Texture) error

	CompileProgram(src ProgramSource) (Program, error)
	DeleteProgram(p Program)
	UseProgram(p Program)
	// SetUniform does nothing if loc is Absent.
	SetUniform(p Program, loc UniformLocation, value any)
	BindUniformBlock(p Program, block, bindPoint uint32)
	BindTexture(unit int, tex Texture)

	CreateUniformBuffer(size int) (UniformBuffer, error)
	WriteUniformBuffer(buf UniformBuffer, offset int, data any)
	BindUniformBuffer(bindPoint uint32, buf UniformBuffer)
	DeleteUniformBuffer(buf UniformBuffer)

	Viewport(x, y, width, height int)
	// DrawQuad draws a full screen quad with the current program into fb,
	// or into the default framebuffer if fb is nil.
	DrawQuad(fb Framebuffer)
	// CopyToCubeFace copies the lower left width x height region of the first
	// color attachment of src into face of dst.
	CopyToCubeFace(src Framebuffer, dst Texture, face CubeFace, width, height int) error

	Stats() Stats
}

// Stats counts live objects. It is informational only.
type Stats struct {
	Textures       int
	Framebuffers   int
	Programs       int
	UniformBuffers int
	TextureBytes   int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%d textures (%.4g MB), %d framebuffers, %d programs, %d uniform buffers",
		s.Textures, float64(s.TextureBytes)*1e-6, s.Framebuffers, s.Programs, s.UniformBuffers)
}
