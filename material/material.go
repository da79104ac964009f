// Package material couples CPU side material state to compiled programs.
//
// A material resolves its uniforms once per compile and pushes its values
// before every draw. Uniforms the linker removed resolve to libgfx.Absent and
// are skipped when bound.
package material

import (
	"errors"
	"fmt"

	"envcube/libgfx"
	"envcube/shader"
)

// Bind points of the uniform blocks shared by all materials.
const (
	BindPointCameraMatrices uint32 = 0
	BindPointCameraUniforms uint32 = 1
)

const (
	BlockCameraMatrices = "cameraMatrices"
	BlockCameraUniforms = "cameraUniforms"
)

var ErrNotCompiled = errors.New("material has no program")

type Material interface {
	Source() libgfx.ProgramSource
	Program() libgfx.Program
	SetProgram(p libgfx.Program)
	// ResolveUniforms looks up all uniforms after the program changed.
	ResolveUniforms()
	// BindUniforms pushes the material state, once per draw.
	BindUniforms()
	BindUniformBlocks()
	NeedsEnvironmentTexture() bool
	SetEnvironmentTexture(tex libgfx.Texture)
}

// Editable materials can swap their fragment source at runtime.
type Editable interface {
	Material
	SetFragment(fragment string)
}

// Base implements the bookkeeping part of Material.
type Base struct {
	Device   libgfx.Device
	Uniforms *Uniforms
	Units    TextureUnits

	source  libgfx.ProgramSource
	program libgfx.Program
}

func NewBase(dev libgfx.Device, src libgfx.ProgramSource, uniforms ...string) Base {
	return Base{
		Device:   dev,
		Uniforms: NewUniforms(dev, uniforms...),
		source:   src,
	}
}

func (b *Base) Source() libgfx.ProgramSource {
	return b.source
}

func (b *Base) SetFragment(fragment string) {
	b.source = b.source.WithFragment(fragment)
}

func (b *Base) Program() libgfx.Program {
	return b.program
}

func (b *Base) SetProgram(p libgfx.Program) {
	b.program = p
}

func (b *Base) ResolveUniforms() {
	b.Uniforms.Resolve(b.program)
}

func (b *Base) BindUniforms() {}

func (b *Base) BindUniformBlocks() {}

func (b *Base) NeedsEnvironmentTexture() bool {
	return false
}

func (b *Base) SetEnvironmentTexture(libgfx.Texture) {}

// TextureUnits hands out texture units. Materials reserve their units when
// they are constructed so assignments do not change between frames.
type TextureUnits struct {
	next int
}

func (u *TextureUnits) Reserve() int {
	unit := u.next
	u.next++
	return unit
}

// BindBlock binds the named block of p to bindPoint and reports whether p has
// that block.
func BindBlock(dev libgfx.Device, p libgfx.Program, name string, bindPoint uint32) bool {
	if p == nil {
		return false
	}
	index, ok := p.UniformBlockIndex(name)
	if !ok {
		return false
	}
	dev.BindUniformBlock(p, index, bindPoint)
	return true
}

// BindCameraBlocks binds the shared camera blocks that p declares.
func BindCameraBlocks(dev libgfx.Device, p libgfx.Program) {
	BindBlock(dev, p, BlockCameraMatrices, BindPointCameraMatrices)
	BindBlock(dev, p, BlockCameraUniforms, BindPointCameraUniforms)
}

// Compile fetches the program of m from repo and prepares m for drawing.
func Compile(repo *shader.Repository, m Material) error {
	prog, err := repo.GetOrCreate(m.Source())
	if err != nil {
		return err
	}
	m.SetProgram(prog)
	m.ResolveUniforms()
	m.BindUniformBlocks()
	return nil
}

// Refresh compiles m again when the program it holds is marked or was
// replaced in repo. Materials sharing a source with one passed to Recompile
// still hold the marked program; call Refresh before drawing them so the
// next sweep cannot delete it under them.
func Refresh(repo *shader.Repository, m Material) error {
	prog := m.Program()
	if prog == nil {
		return nil
	}
	if e, ok := repo.Lookup(prog.Key()); ok && !e.Marked && e.Program == prog {
		return nil
	}
	return Compile(repo, m)
}

// Recompile replaces the fragment source of m. The previous program is
// marked for deletion and reclaimed by a later sweep, which also affects
// other materials holding it until they are refreshed. If the new source
// does not compile m keeps its previous source and program.
func Recompile(repo *shader.Repository, m Editable, fragment string) error {
	prevSource := m.Source()
	prev := m.Program()
	if prev != nil {
		repo.MarkForDeletion(prev.Key())
	}

	m.SetFragment(fragment)
	if err := Compile(repo, m); err != nil {
		m.SetFragment(prevSource.Fragment)
		if prev != nil {
			repo.Unmark(prev.Key())
		}
		return fmt.Errorf("recompile %q: %w", prevSource.Name, err)
	}
	return nil
}

// AttachEnvironment hands the cube map to m if m samples the environment.
func AttachEnvironment(m Material, cubeMap libgfx.Texture) {
	if m.NeedsEnvironmentTexture() {
		m.SetEnvironmentTexture(cubeMap)
	}
}

// Draw renders a full screen quad with m into fb.
func Draw(dev libgfx.Device, m Material, fb libgfx.Framebuffer) error {
	prog := m.Program()
	if prog == nil {
		return fmt.Errorf("draw %q: %w", m.Source().Name, ErrNotCompiled)
	}
	dev.UseProgram(prog)
	m.BindUniforms()
	dev.DrawQuad(fb)
	return nil
}
