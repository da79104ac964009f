package envmap

import (
	_ "embed"

	"envcube/libgfx"
	"envcube/material"

	"github.com/go-gl/mathgl/mgl32"
)

//go:embed shaders/convert.frag
var convertFragmentSource string

// ConverterMaterial samples a panorama along the view rays of a cube face.
type ConverterMaterial struct {
	material.Base

	Panorama   libgfx.Texture
	Projection Projection
	// View is the view matrix of the face being rendered.
	View mgl32.Mat4

	panoramaUnit int
}

func NewConverterMaterial(dev libgfx.Device) *ConverterMaterial {
	m := &ConverterMaterial{
		Base: material.NewBase(dev, libgfx.ProgramSource{
			Name:     "envmap.convert",
			Vertex:   material.QuadVertexSource,
			Fragment: convertFragmentSource,
			Kernel:   ReprojectionKernel{},
		}, "panorama", "cameraMatrix", "projection"),
		Projection: ProjectionEquirectangular,
		View:       mgl32.Ident4(),
	}
	m.panoramaUnit = m.Units.Reserve()
	return m
}

func (m *ConverterMaterial) BindUniforms() {
	m.Device.BindTexture(m.panoramaUnit, m.Panorama)
	m.Uniforms.Set("panorama", int32(m.panoramaUnit))
	m.Uniforms.Set("cameraMatrix", m.View.Inv())
	m.Uniforms.Set("projection", int32(m.Projection))
}

// ReprojectionKernel is the Go version of the reprojection shader.
type ReprojectionKernel struct{}

func (ReprojectionKernel) Uniforms() []string {
	return []string{"panorama", "cameraMatrix", "projection"}
}

func (ReprojectionKernel) Blocks() []string {
	return nil
}

func (ReprojectionKernel) Shade(ctx libgfx.ShadeContext, uv mgl32.Vec2) mgl32.Vec4 {
	panorama := libgfx.SamplerUnit(ctx, "panorama")
	if panorama == nil {
		return mgl32.Vec4{0, 0, 0, 1}
	}
	camera := libgfx.UniformMat4(ctx, "cameraMatrix", mgl32.Ident4())
	ndc := mgl32.Vec3{uv[0]*2 - 1, uv[1]*2 - 1, -1}
	dir := camera.Mat3().Mul3x1(ndc).Normalize()

	var texcoord mgl32.Vec2
	if Projection(libgfx.UniformInt(ctx, "projection", 0)) == ProjectionAngular {
		texcoord = AngularUV(dir)
	} else {
		texcoord = EquirectangularUV(dir)
	}
	c := panorama.Sample2D(texcoord)
	c[3] = 1
	return c
}
