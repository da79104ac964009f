package libgl

import (
	"fmt"

	"envcube/libgfx"

	"github.com/go-gl/gl/v4.5-core/gl"
)

type texture struct {
	glId uint32
	desc libgfx.TextureDesc
}

func (tex *texture) Id() uint32 {
	return tex.glId
}

func (tex *texture) Desc() libgfx.TextureDesc {
	return tex.desc
}

func (tex *texture) target() uint32 {
	if tex.desc.Kind == libgfx.TextureCube {
		return gl.TEXTURE_CUBE_MAP
	}
	return gl.TEXTURE_2D
}

func internalFormat(f libgfx.Format) uint32 {
	switch f {
	case libgfx.FormatRGB8:
		return gl.RGB8
	case libgfx.FormatRGBA8:
		return gl.RGBA8
	case libgfx.FormatRGB32F:
		return gl.RGB32F
	case libgfx.FormatRGBA32F:
		return gl.RGBA32F
	}
	return 0
}

func pixelFormat(channels int) uint32 {
	switch channels {
	case 1:
		return gl.RED
	case 2:
		return gl.RG
	case 3:
		return gl.RGB
	}
	return gl.RGBA
}

func getGlType(data any) (glType uint32, size int, err error) {
	switch pix := data.(type) {
	case []uint8:
		return gl.UNSIGNED_BYTE, len(pix), nil
	case []float32:
		return gl.FLOAT, len(pix), nil
	}
	return 0, 0, fmt.Errorf("unsupported pixel type %T", data)
}

func newTexture(desc libgfx.TextureDesc) (*texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	tex := &texture{desc: desc}
	gl.CreateTextures(tex.target(), 1, &tex.glId)
	gl.TextureStorage2D(tex.glId, 1, internalFormat(desc.Format), int32(desc.Width), int32(desc.Height))

	filter := int32(gl.LINEAR)
	if desc.Filter == libgfx.FilterNearest {
		filter = gl.NEAREST
	}
	wrap := int32(gl.CLAMP_TO_EDGE)
	if desc.Wrap == libgfx.WrapRepeat {
		wrap = gl.REPEAT
	}
	gl.TextureParameteri(tex.glId, gl.TEXTURE_MIN_FILTER, filter)
	gl.TextureParameteri(tex.glId, gl.TEXTURE_MAG_FILTER, filter)
	gl.TextureParameteri(tex.glId, gl.TEXTURE_WRAP_S, wrap)
	gl.TextureParameteri(tex.glId, gl.TEXTURE_WRAP_T, wrap)
	gl.TextureParameteri(tex.glId, gl.TEXTURE_WRAP_R, wrap)
	setObjectLabel(gl.TEXTURE, tex.glId, desc.Label)

	// immutable storage is undefined until written
	zero := make([]float32, desc.Width*desc.Height*4)
	for layer := 0; layer < desc.Layers(); layer++ {
		tex.load(layer, desc.Width, desc.Height, gl.RGBA, gl.FLOAT, zero)
	}
	return tex, nil
}

func (tex *texture) load(layer, width, height int, format, glType uint32, data any) {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if tex.desc.Kind == libgfx.TextureCube {
		gl.TextureSubImage3D(tex.glId, 0, 0, 0, int32(layer), int32(width), int32(height), 1, format, glType, Pointer(data))
	} else {
		gl.TextureSubImage2D(tex.glId, 0, 0, 0, int32(width), int32(height), format, glType, Pointer(data))
	}
}

func (tex *texture) layer(face libgfx.CubeFace) (int, error) {
	if tex.desc.Kind != libgfx.TextureCube {
		return 0, nil
	}
	if !face.Valid() {
		return 0, fmt.Errorf("invalid cube map face %d", int(face))
	}
	return int(face), nil
}
