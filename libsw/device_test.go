package libsw

import (
	"testing"

	"envcube/libgfx"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uvKernel struct{}

func (uvKernel) Uniforms() []string { return []string{"scale", "source"} }
func (uvKernel) Blocks() []string   { return []string{"constants"} }

func (uvKernel) Shade(ctx libgfx.ShadeContext, uv mgl32.Vec2) mgl32.Vec4 {
	scale := libgfx.UniformFloat(ctx, "scale", 1)
	return mgl32.Vec4{uv[0] * scale, uv[1] * scale, 0, 1}
}

func TestCubeMapCoordsFaceCenters(t *testing.T) {
	dirs := map[libgfx.CubeFace]mgl32.Vec3{
		libgfx.CubeMapPositiveX: {1, 0, 0},
		libgfx.CubeMapNegativeX: {-1, 0, 0},
		libgfx.CubeMapPositiveY: {0, 1, 0},
		libgfx.CubeMapNegativeY: {0, -1, 0},
		libgfx.CubeMapPositiveZ: {0, 0, 1},
		libgfx.CubeMapNegativeZ: {0, 0, -1},
	}
	for want, dir := range dirs {
		face, s, tc := CubeMapCoords(dir)
		assert.Equal(t, want, face)
		assert.InDelta(t, 0.5, s, 1e-6)
		assert.InDelta(t, 0.5, tc, 1e-6)
	}

	// +X face: s grows towards -Z, t grows towards -Y
	_, s, tc := CubeMapCoords(mgl32.Vec3{1, -0.5, -0.5})
	assert.InDelta(t, 0.75, s, 1e-6)
	assert.InDelta(t, 0.75, tc, 1e-6)
}

func TestUploadAndRead(t *testing.T) {
	dev := NewDevice(nil)
	tex, err := dev.CreateTexture(libgfx.TextureDesc{Kind: libgfx.TextureCube, Format: libgfx.FormatRGBA32F, Width: 2, Height: 2})
	require.NoError(t, err)

	zero, err := dev.ReadTexture(tex, libgfx.CubeMapNegativeY)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 16), zero)

	pix := []uint8{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255}
	require.NoError(t, dev.UploadTexture(tex, libgfx.CubeMapNegativeY, 2, 2, 3, pix))

	got, err := dev.ReadTexture(tex, libgfx.CubeMapNegativeY)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 1, 0, 1, 0, 1, 0, 0, 1, 1, 1, 1, 1, 1}, got)
	assert.Equal(t, [6]int{0, 0, 0, 1, 0, 0}, dev.FaceWrites(tex))

	assert.Error(t, dev.UploadTexture(tex, libgfx.CubeMapPositiveX, 4, 4, 3, make([]uint8, 48)))
	assert.Error(t, dev.UploadTexture(tex, libgfx.CubeMapPositiveX, 2, 2, 3, make([]uint8, 3)))
}

func TestDrawAndCopyToCubeFace(t *testing.T) {
	dev := NewDevice(nil)
	target, err := dev.CreateTexture(libgfx.TextureDesc{Format: libgfx.FormatRGBA32F, Width: 4, Height: 4})
	require.NoError(t, err)
	cube, err := dev.CreateTexture(libgfx.TextureDesc{Kind: libgfx.TextureCube, Format: libgfx.FormatRGBA32F, Width: 4, Height: 4})
	require.NoError(t, err)
	fb, err := dev.CreateFramebuffer()
	require.NoError(t, err)
	require.NoError(t, dev.AttachColor(fb, target))
	assert.Error(t, dev.AttachColor(fb, cube))

	prog, err := dev.CompileProgram(libgfx.ProgramSource{Name: "uv", Kernel: uvKernel{}})
	require.NoError(t, err)
	assert.Equal(t, libgfx.UniformLocation(0), prog.UniformLocation("scale"))
	assert.Equal(t, libgfx.Absent, prog.UniformLocation("missing"))

	dev.UseProgram(prog)
	dev.SetUniform(prog, prog.UniformLocation("scale"), float32(2))
	dev.SetUniform(prog, libgfx.Absent, float32(100))
	dev.Viewport(0, 0, 4, 4)
	dev.DrawQuad(fb)
	require.NoError(t, dev.CopyToCubeFace(fb, cube, libgfx.CubeMapPositiveZ, 4, 4))

	got, err := dev.ReadTexture(cube, libgfx.CubeMapPositiveZ)
	require.NoError(t, err)
	// pixel (1, 2): uv = (1.5/4, 2.5/4)
	i := (2*4 + 1) * 4
	assert.InDelta(t, 2*1.5/4, got[i], 1e-6)
	assert.InDelta(t, 2*2.5/4, got[i+1], 1e-6)
	assert.Equal(t, [6]int{0, 0, 0, 0, 1, 0}, dev.FaceWrites(cube))
}

func TestUniformBlockData(t *testing.T) {
	dev := NewDevice(nil)
	prog, err := dev.CompileProgram(libgfx.ProgramSource{Name: "uv", Kernel: uvKernel{}})
	require.NoError(t, err)
	buf, err := dev.CreateUniformBuffer(16)
	require.NoError(t, err)

	dev.WriteUniformBuffer(buf, 4, float32(1))
	index, ok := prog.UniformBlockIndex("constants")
	require.True(t, ok)
	dev.BindUniformBlock(prog, index, 3)
	dev.BindUniformBuffer(3, buf)

	ctx := shadeContext{dev: dev, prog: dev.programs[prog.Id()]}
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0x80, 0x3f, 0, 0, 0, 0, 0, 0, 0, 0}, ctx.Block("constants"))
	assert.Nil(t, ctx.Block("other"))
}

func TestCompileErrorDirective(t *testing.T) {
	dev := NewDevice(nil)
	_, err := dev.CompileProgram(libgfx.ProgramSource{Name: "broken", Fragment: "void main(){}\n#error unfinished\n", Kernel: uvKernel{}})
	assert.ErrorContains(t, err, "unfinished")
	assert.Equal(t, 0, dev.Stats().Programs)
}

func TestStats(t *testing.T) {
	dev := NewDevice(nil)
	tex, err := dev.CreateTexture(libgfx.TextureDesc{Kind: libgfx.TextureCube, Format: libgfx.FormatRGBA32F, Width: 8, Height: 8})
	require.NoError(t, err)
	assert.Equal(t, int64(8*8*6*16), dev.Stats().TextureBytes)
	dev.DeleteTexture(tex)
	assert.Equal(t, libgfx.Stats{}, dev.Stats())
}

func TestSampleCubeBilinear(t *testing.T) {
	dev := NewDevice(nil)
	cube, err := dev.CreateTexture(libgfx.TextureDesc{Kind: libgfx.TextureCube, Format: libgfx.FormatRGB32F, Width: 2, Height: 2})
	require.NoError(t, err)
	for _, face := range libgfx.CubeFaces {
		v := float32(face)
		pix := []float32{v, v, v, v, v, v, v, v, v, v, v, v}
		require.NoError(t, dev.UploadTexture(cube, face, 2, 2, 3, pix))
	}
	dev.BindTexture(2, cube)

	s := shadeContext{dev: dev}.Sampler(2)
	require.NotNil(t, s)
	c := s.SampleCube(mgl32.Vec3{0, 0, -3})
	assert.InDelta(t, float32(libgfx.CubeMapNegativeZ), c[0], 1e-6)
	assert.InDelta(t, 1, c[3], 1e-6)
	assert.Nil(t, shadeContext{dev: dev}.Sampler(0))
}
