package material

import (
	"testing"

	"envcube/libgfx"
	"envcube/libsw"
	"envcube/shader"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderTarget(t *testing.T, dev libgfx.Device, size int) (libgfx.Framebuffer, libgfx.Texture) {
	t.Helper()
	tex, err := dev.CreateTexture(libgfx.TextureDesc{Format: libgfx.FormatRGBA32F, Width: size, Height: size})
	require.NoError(t, err)
	fb, err := dev.CreateFramebuffer()
	require.NoError(t, err)
	require.NoError(t, dev.AttachColor(fb, tex))
	dev.Viewport(0, 0, size, size)
	return fb, tex
}

func TestBindWithMissingUniforms(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := shader.NewRepository(dev, shader.RepositoryOptions{})
	fb, target := renderTarget(t, dev, 2)

	m := NewAtmosphereMaterial(dev)
	require.NoError(t, Compile(repo, m))

	// the default program only keeps time
	assert.Equal(t, 1, m.Uniforms.Resolved())
	assert.Equal(t, libgfx.Absent, m.Uniforms.Location("sunDirection"))
	assert.True(t, m.Uniforms.Location("time").Present())

	m.Time = 1.25
	assert.NotPanics(t, func() { assert.NoError(t, Draw(dev, m, fb)) })

	pix, err := dev.ReadTexture(target, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5+0.5*math32.Sin(1.25), pix[2], 1e-6)
	assert.InDelta(t, 0.25, pix[0], 1e-6)
}

type blockKernel struct{}

func (blockKernel) Uniforms() []string { return nil }
func (blockKernel) Blocks() []string   { return []string{BlockCameraUniforms} }
func (blockKernel) Shade(ctx libgfx.ShadeContext, uv mgl32.Vec2) mgl32.Vec4 {
	u, ok := DecodeCameraUniforms(ctx.Block(BlockCameraUniforms))
	if !ok {
		return mgl32.Vec4{}
	}
	return mgl32.Vec4{u.Exposure, u.FOV, u.Position.Z(), 1}
}

type blockMaterial struct {
	Base
}

func (m *blockMaterial) BindUniformBlocks() {
	BindCameraBlocks(m.Device, m.Program())
}

func TestZeroUniformMaterialUsesBlocks(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := shader.NewRepository(dev, shader.RepositoryOptions{})
	fb, target := renderTarget(t, dev, 1)

	blocks, err := NewCameraBlocks(dev)
	require.NoError(t, err)
	defer blocks.Delete()
	blocks.Update(CameraMatrices{View: mgl32.Ident4()}, CameraUniforms{Position: mgl32.Vec3{0, 0, 3}, Exposure: 0.5, FOV: 1.2})
	blocks.Bind()

	m := &blockMaterial{Base: NewBase(dev, libgfx.ProgramSource{Name: "blocks", Kernel: blockKernel{}}, "unused")}
	require.NoError(t, Compile(repo, m))
	assert.Equal(t, 0, m.Uniforms.Resolved())

	require.NoError(t, Draw(dev, m, fb))
	pix, err := dev.ReadTexture(target, 0)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1.2, 3, 1}, pix)
}

func TestRecompileMarksPreviousProgram(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := shader.NewRepository(dev, shader.RepositoryOptions{})
	m := NewAtmosphereMaterial(dev)
	require.NoError(t, Compile(repo, m))
	first := m.Program()

	require.NoError(t, Recompile(repo, m, "void main(){ /* edited */ }"))
	second := m.Program()
	assert.NotEqual(t, first.Id(), second.Id())
	assert.Equal(t, "void main(){ /* edited */ }", m.Source().Fragment)

	entry, ok := repo.Lookup(first.Key())
	require.True(t, ok)
	assert.True(t, entry.Marked)
	assert.True(t, dev.Alive(first))

	assert.Equal(t, 1, repo.Sweep())
	assert.False(t, dev.Alive(first))
	assert.True(t, dev.Alive(second))
}

func TestRecompileSameSourceIsFresh(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := shader.NewRepository(dev, shader.RepositoryOptions{})
	m := NewAtmosphereMaterial(dev)
	require.NoError(t, Compile(repo, m))
	first := m.Program()

	require.NoError(t, Recompile(repo, m, m.Source().Fragment))
	assert.NotEqual(t, first.Id(), m.Program().Id())
	repo.Sweep()
	assert.True(t, dev.Alive(m.Program()))
	assert.False(t, dev.Alive(first))
}

func TestRecompileFailureKeepsProgram(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := shader.NewRepository(dev, shader.RepositoryOptions{})
	m := NewAtmosphereMaterial(dev)
	require.NoError(t, Compile(repo, m))
	first := m.Program()
	fragment := m.Source().Fragment

	err := Recompile(repo, m, "#error syntax")
	assert.ErrorContains(t, err, "syntax")
	assert.Same(t, first, m.Program())
	assert.Equal(t, fragment, m.Source().Fragment)

	assert.Equal(t, 0, repo.Sweep())
	assert.True(t, dev.Alive(first))
}

func TestRefreshMaterialSharingRecompiledProgram(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := shader.NewRepository(dev, shader.RepositoryOptions{})
	edited, shared := NewAtmosphereMaterial(dev), NewAtmosphereMaterial(dev)
	require.NoError(t, Compile(repo, edited))
	require.NoError(t, Compile(repo, shared))
	first := shared.Program()
	require.Same(t, first, edited.Program())

	require.NoError(t, Refresh(repo, shared))
	assert.Same(t, first, shared.Program(), "unchanged programs are kept")

	require.NoError(t, Recompile(repo, edited, "void main(){ /* edited */ }"))
	require.NoError(t, Refresh(repo, shared))
	refreshed := shared.Program()
	assert.NotEqual(t, first.Id(), refreshed.Id())
	assert.Equal(t, first.Key(), refreshed.Key())

	assert.Equal(t, 1, repo.Sweep())
	assert.False(t, dev.Alive(first))
	assert.True(t, dev.Alive(refreshed))
	assert.True(t, dev.Alive(edited.Program()))
}

func TestDrawWithoutProgram(t *testing.T) {
	dev := libsw.NewDevice(nil)
	fb, _ := renderTarget(t, dev, 1)
	m := NewAtmosphereMaterial(dev)

	assert.ErrorIs(t, Draw(dev, m, fb), ErrNotCompiled)
	assert.NoError(t, Refresh(shader.NewRepository(dev, shader.RepositoryOptions{}), m))
	assert.Nil(t, m.Program())
}

func TestEnvironmentUnitIsReserved(t *testing.T) {
	dev := libsw.NewDevice(nil)
	repo := shader.NewRepository(dev, shader.RepositoryOptions{})
	m := NewAtmosphereMaterial(dev)
	require.NoError(t, Compile(repo, m))

	cube, err := dev.CreateTexture(libgfx.TextureDesc{Kind: libgfx.TextureCube, Format: libgfx.FormatRGBA32F, Width: 4, Height: 4})
	require.NoError(t, err)
	AttachEnvironment(m, cube)
	assert.Equal(t, cube, m.EnvironmentTexture)

	unit := m.EnvironmentUnit()
	m.BindUniforms()
	m.BindUniforms()
	assert.Equal(t, unit, m.EnvironmentUnit())
	assert.Equal(t, 1, m.Units.Reserve())
}

func TestUniformsWithoutProgram(t *testing.T) {
	dev := libsw.NewDevice(nil)
	u := NewUniforms(dev, "a")
	u.Resolve(nil)
	assert.Equal(t, libgfx.Absent, u.Location("a"))
	assert.Equal(t, libgfx.Absent, u.Location("never"))
	assert.NotPanics(t, func() { u.Set("a", float32(1)) })
}
