package libsw

import (
	"fmt"
	"regexp"

	"envcube/libgfx"
)

type program struct {
	glId     uint32
	key      libgfx.ProgramKey
	name     string
	kernel   libgfx.Kernel
	uniforms []string
	values   map[string]any
	blocks   []string
	bindings map[uint32]uint32
}

func (p *program) Id() uint32 {
	return p.glId
}

func (p *program) Key() libgfx.ProgramKey {
	return p.key
}

func (p *program) UniformLocation(name string) libgfx.UniformLocation {
	for i, u := range p.uniforms {
		if u == name {
			return libgfx.UniformLocation(i)
		}
	}
	return libgfx.Absent
}

func (p *program) UniformBlockIndex(name string) (uint32, bool) {
	for i, b := range p.blocks {
		if b == name {
			return uint32(i), true
		}
	}
	return 0, false
}

var errorDirective = regexp.MustCompile(`(?m)^\s*#error(.*)$`)

// compile validates the source the way a GLSL front end would reject it.
// Only the #error directive is recognized.
func compile(id uint32, src libgfx.ProgramSource) (*program, error) {
	for stage, text := range map[string]string{"vertex": src.Vertex, "fragment": src.Fragment} {
		if m := errorDirective.FindStringSubmatch(text); m != nil {
			return nil, fmt.Errorf("compile %s shader of %q: #error%s", stage, src.Name, m[1])
		}
	}
	if src.Kernel == nil {
		return nil, fmt.Errorf("link program %q: no kernel", src.Name)
	}
	return &program{
		glId:     id,
		key:      src.Key(),
		name:     src.Name,
		kernel:   src.Kernel,
		uniforms: src.Kernel.Uniforms(),
		values:   map[string]any{},
		blocks:   src.Kernel.Blocks(),
		bindings: map[uint32]uint32{},
	}, nil
}

type shadeContext struct {
	dev  *Device
	prog *program
}

func (ctx shadeContext) Uniform(name string) any {
	return ctx.prog.values[name]
}

func (ctx shadeContext) Block(name string) []byte {
	index, ok := ctx.prog.UniformBlockIndex(name)
	if !ok {
		return nil
	}
	point, ok := ctx.prog.bindings[index]
	if !ok {
		return nil
	}
	buf := ctx.dev.bindPoints[point]
	if buf == nil {
		return nil
	}
	return buf.data
}

func (ctx shadeContext) Sampler(unit int) libgfx.Sampler {
	tex := ctx.dev.units[unit]
	if tex == nil {
		return nil
	}
	return sampler{tex}
}
