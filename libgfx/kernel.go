package libgfx

import "github.com/go-gl/mathgl/mgl32"

// Kernel is a fragment stage written in Go.
// Devices without a GLSL compiler run it once per covered pixel.
type Kernel interface {
	// Uniforms lists the uniforms that survive linking, in location order.
	Uniforms() []string
	Blocks() []string
	// Shade computes the color of the fragment at uv, where (0,0) is the
	// bottom left corner of the render target.
	Shade(ctx ShadeContext, uv mgl32.Vec2) mgl32.Vec4
}

type ShadeContext interface {
	// Uniform returns the last value set for name, or nil.
	Uniform(name string) any
	// Block returns the contents of the buffer bound to the named block, or nil.
	Block(name string) []byte
	// Sampler returns the texture bound to unit, or nil.
	Sampler(unit int) Sampler
}

type Sampler interface {
	Sample2D(uv mgl32.Vec2) mgl32.Vec4
	SampleCube(dir mgl32.Vec3) mgl32.Vec4
}

func UniformFloat(ctx ShadeContext, name string, fallback float32) float32 {
	switch v := ctx.Uniform(name).(type) {
	case float32:
		return v
	case float64:
		return float32(v)
	}
	return fallback
}

func UniformInt(ctx ShadeContext, name string, fallback int) int {
	switch v := ctx.Uniform(name).(type) {
	case int32:
		return int(v)
	case int:
		return v
	case bool:
		if v {
			return 1
		}
		return 0
	}
	return fallback
}

func UniformVec2(ctx ShadeContext, name string, fallback mgl32.Vec2) mgl32.Vec2 {
	if v, ok := ctx.Uniform(name).(mgl32.Vec2); ok {
		return v
	}
	return fallback
}

func UniformVec3(ctx ShadeContext, name string, fallback mgl32.Vec3) mgl32.Vec3 {
	if v, ok := ctx.Uniform(name).(mgl32.Vec3); ok {
		return v
	}
	return fallback
}

func UniformMat4(ctx ShadeContext, name string, fallback mgl32.Mat4) mgl32.Mat4 {
	if v, ok := ctx.Uniform(name).(mgl32.Mat4); ok {
		return v
	}
	return fallback
}

// SamplerUnit resolves a sampler uniform to its bound texture.
func SamplerUnit(ctx ShadeContext, name string) Sampler {
	unit := UniformInt(ctx, name, -1)
	if unit < 0 {
		return nil
	}
	return ctx.Sampler(unit)
}
