package material

import (
	_ "embed"

	"envcube/libgfx"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/quad.vert
var QuadVertexSource string

//go:embed shaders/atmosphere.frag
var atmosphereFragmentSource string

var atmosphereUniforms = []string{
	"time",
	"resolution",
	"environmentTexture",
	"renderBackground",
	"sunDirection",
	"sunColor",
	"sunStrength",
	"scaleHeight",
	"planetRadius",
	"atmosphereRadius",
}

// AtmosphereMaterial draws the sky over a full screen quad. Its fragment
// source is meant to be replaced at runtime with Recompile.
type AtmosphereMaterial struct {
	Base

	Time       float32
	Resolution mgl32.Vec2

	EnvironmentTexture libgfx.Texture
	environmentUnit    int
	RenderBackground   bool

	SunDirection mgl32.Vec3
	SunColor     mgl32.Vec3
	SunStrength  float32

	// ScaleHeight is relative to AtmosphereThickness.
	ScaleHeight         float32
	PlanetRadius        float32
	AtmosphereThickness float32
}

var _ Editable = (*AtmosphereMaterial)(nil)

func NewAtmosphereMaterial(dev libgfx.Device) *AtmosphereMaterial {
	m := &AtmosphereMaterial{
		Base: NewBase(dev, libgfx.ProgramSource{
			Name:     "atmosphere",
			Vertex:   QuadVertexSource,
			Fragment: atmosphereFragmentSource,
			Kernel:   AtmosphereKernel{},
		}, atmosphereUniforms...),
		Resolution:          mgl32.Vec2{1, 1},
		RenderBackground:    true,
		SunDirection:        mgl32.Vec3{0, 1, 0.5}.Normalize(),
		SunColor:            mgl32.Vec3{1, 1, 1},
		SunStrength:         100,
		ScaleHeight:         0.085,
		PlanetRadius:        6371e3,
		AtmosphereThickness: 100e3,
	}
	m.environmentUnit = m.Units.Reserve()
	return m
}

func (m *AtmosphereMaterial) NeedsEnvironmentTexture() bool {
	return true
}

func (m *AtmosphereMaterial) SetEnvironmentTexture(tex libgfx.Texture) {
	m.EnvironmentTexture = tex
}

func (m *AtmosphereMaterial) EnvironmentUnit() int {
	return m.environmentUnit
}

func (m *AtmosphereMaterial) BindUniforms() {
	u := m.Uniforms
	u.Set("time", m.Time)
	u.Set("resolution", m.Resolution)

	if m.EnvironmentTexture != nil {
		m.Device.BindTexture(m.environmentUnit, m.EnvironmentTexture)
		u.Set("environmentTexture", int32(m.environmentUnit))
	}
	u.Set("renderBackground", m.RenderBackground)

	u.Set("sunDirection", m.SunDirection)
	u.Set("sunColor", m.SunColor)
	u.Set("sunStrength", m.SunStrength)

	u.Set("scaleHeight", m.ScaleHeight*m.AtmosphereThickness)
	u.Set("planetRadius", m.PlanetRadius)
	u.Set("atmosphereRadius", m.PlanetRadius+m.AtmosphereThickness)
}

func (m *AtmosphereMaterial) BindUniformBlocks() {
	BindCameraBlocks(m.Device, m.Program())
}

// AtmosphereKernel mirrors the default atmosphere fragment shader.
type AtmosphereKernel struct{}

func (AtmosphereKernel) Uniforms() []string {
	return []string{"time"}
}

func (AtmosphereKernel) Blocks() []string {
	return []string{BlockCameraMatrices, BlockCameraUniforms}
}

func (AtmosphereKernel) Shade(ctx libgfx.ShadeContext, uv mgl32.Vec2) mgl32.Vec4 {
	time := libgfx.UniformFloat(ctx, "time", 0)
	return mgl32.Vec4{uv[0], uv[1], 0.5 + 0.5*math32.Sin(time), 1}
}
