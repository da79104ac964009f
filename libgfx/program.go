package libgfx

import (
	"crypto/md5"
	"encoding/hex"
)

// UniformLocation is the resolved location of a uniform in a linked program.
// Absent marks a uniform the program does not have; setting it is a no-op.
type UniformLocation int32

const Absent UniformLocation = -1

func (l UniformLocation) Present() bool {
	return l >= 0
}

type Program interface {
	Id() uint32
	Key() ProgramKey
	// UniformLocation returns Absent if the uniform was not found or optimized away.
	UniformLocation(name string) UniformLocation
	UniformBlockIndex(name string) (index uint32, ok bool)
}

// ProgramKey identifies a compiled program by name and source text.
type ProgramKey string

type ProgramSource struct {
	Name     string
	Vertex   string
	Fragment string
	// Kernel is the fragment stage for devices that do not compile GLSL.
	Kernel Kernel
}

func (src ProgramSource) Key() ProgramKey {
	h := md5.New()
	h.Write([]byte(src.Vertex))
	h.Write([]byte{0})
	h.Write([]byte(src.Fragment))
	return ProgramKey(src.Name + "#" + hex.EncodeToString(h.Sum(nil)))
}

func (src ProgramSource) WithFragment(fragment string) ProgramSource {
	src.Fragment = fragment
	return src
}
