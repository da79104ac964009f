package libgfx

import "fmt"

type CubeFace int

const (
	CubeMapPositiveX CubeFace = iota
	CubeMapNegativeX
	CubeMapPositiveY
	CubeMapNegativeY
	CubeMapPositiveZ
	CubeMapNegativeZ
)

var CubeFaces = [6]CubeFace{
	CubeMapPositiveX,
	CubeMapNegativeX,
	CubeMapPositiveY,
	CubeMapNegativeY,
	CubeMapPositiveZ,
	CubeMapNegativeZ,
}

var cubeFaceNames = [6]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

func (f CubeFace) String() string {
	if f < 0 || int(f) >= len(cubeFaceNames) {
		return fmt.Sprintf("CubeFace(%d)", int(f))
	}
	return cubeFaceNames[f]
}

func (f CubeFace) Valid() bool {
	return f >= CubeMapPositiveX && f <= CubeMapNegativeZ
}

type TextureKind int

const (
	Texture2D TextureKind = iota
	TextureCube
)

func (k TextureKind) String() string {
	switch k {
	case Texture2D:
		return "2d"
	case TextureCube:
		return "cube"
	}
	return fmt.Sprintf("TextureKind(%d)", int(k))
}

// Format is the internal storage format of a texture.
type Format int

const (
	FormatRGB8 Format = iota
	FormatRGBA8
	FormatRGB32F
	FormatRGBA32F
)

func (f Format) Channels() int {
	switch f {
	case FormatRGB8, FormatRGB32F:
		return 3
	case FormatRGBA8, FormatRGBA32F:
		return 4
	}
	return 0
}

func (f Format) Float() bool {
	return f == FormatRGB32F || f == FormatRGBA32F
}

// TexelSize returns the size of one texel in bytes.
func (f Format) TexelSize() int {
	if f.Float() {
		return f.Channels() * 4
	}
	return f.Channels()
}

func (f Format) String() string {
	switch f {
	case FormatRGB8:
		return "rgb8"
	case FormatRGBA8:
		return "rgba8"
	case FormatRGB32F:
		return "rgb32f"
	case FormatRGBA32F:
		return "rgba32f"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

type FilterMode int

const (
	FilterLinear FilterMode = iota
	FilterNearest
)

type WrapMode int

const (
	WrapClampToEdge WrapMode = iota
	WrapRepeat
)

// TextureDesc describes the storage and sampling state of a texture.
// Every face of a cube texture shares the same description.
type TextureDesc struct {
	Kind   TextureKind
	Format Format
	Width  int
	Height int
	Filter FilterMode
	Wrap   WrapMode
	Label  string
}

func (d TextureDesc) Layers() int {
	if d.Kind == TextureCube {
		return 6
	}
	return 1
}

// Bytes returns the storage size of the whole texture.
func (d TextureDesc) Bytes() int64 {
	return int64(d.Width) * int64(d.Height) * int64(d.Layers()) * int64(d.Format.TexelSize())
}

func (d TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid texture size %dx%d", d.Width, d.Height)
	}
	if d.Kind == TextureCube && d.Width != d.Height {
		return fmt.Errorf("cube map faces must be square, got %dx%d", d.Width, d.Height)
	}
	if d.Format.Channels() == 0 {
		return fmt.Errorf("invalid texture format %v", d.Format)
	}
	return nil
}

type Texture interface {
	Id() uint32
	Desc() TextureDesc
}

type Framebuffer interface {
	Id() uint32
}

type UniformBuffer interface {
	Id() uint32
	Size() int
}
