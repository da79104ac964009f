package material

import "envcube/libgfx"

// Uniforms caches the locations of a fixed set of uniform names.
type Uniforms struct {
	dev       libgfx.Device
	prog      libgfx.Program
	names     []string
	locations map[string]libgfx.UniformLocation
}

func NewUniforms(dev libgfx.Device, names ...string) *Uniforms {
	return &Uniforms{
		dev:       dev,
		names:     names,
		locations: map[string]libgfx.UniformLocation{},
	}
}

// Resolve looks up every name in p. Missing names resolve to libgfx.Absent.
func (u *Uniforms) Resolve(p libgfx.Program) {
	u.prog = p
	for _, name := range u.names {
		if p == nil {
			u.locations[name] = libgfx.Absent
			continue
		}
		u.locations[name] = p.UniformLocation(name)
	}
}

func (u *Uniforms) Location(name string) libgfx.UniformLocation {
	if loc, ok := u.locations[name]; ok {
		return loc
	}
	return libgfx.Absent
}

// Set pushes value to the named uniform if the program has it.
func (u *Uniforms) Set(name string, value any) {
	loc := u.Location(name)
	if !loc.Present() {
		return
	}
	u.dev.SetUniform(u.prog, loc, value)
}

// Resolved returns the number of names present in the program.
func (u *Uniforms) Resolved() int {
	n := 0
	for _, loc := range u.locations {
		if loc.Present() {
			n++
		}
	}
	return n
}
