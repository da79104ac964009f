package libsw

import (
	"fmt"

	"envcube/libgfx"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// texture stores every layer as RGBA float32 regardless of its format.
type texture struct {
	glId   uint32
	desc   libgfx.TextureDesc
	layers [][]float32
	writes [6]int
}

func newTexture(id uint32, desc libgfx.TextureDesc) *texture {
	layers := make([][]float32, desc.Layers())
	for i := range layers {
		layers[i] = make([]float32, desc.Width*desc.Height*4)
	}
	return &texture{glId: id, desc: desc, layers: layers}
}

func (tex *texture) Id() uint32 {
	return tex.glId
}

func (tex *texture) Desc() libgfx.TextureDesc {
	return tex.desc
}

func (tex *texture) layer(face libgfx.CubeFace) ([]float32, error) {
	if tex.desc.Kind != libgfx.TextureCube {
		return tex.layers[0], nil
	}
	if !face.Valid() {
		return nil, fmt.Errorf("invalid cube map face %d", int(face))
	}
	return tex.layers[face], nil
}

// store writes one texel, applying the precision and channel count of the format.
func (tex *texture) store(dst []float32, i int, c mgl32.Vec4) {
	if !tex.desc.Format.Float() {
		for k := range c {
			c[k] = math32.Round(mgl32.Clamp(c[k], 0, 1)*255) / 255
		}
	}
	if tex.desc.Format.Channels() == 3 {
		c[3] = 1
	}
	copy(dst[i*4:i*4+4], c[:])
}

func (tex *texture) markWritten(face libgfx.CubeFace) {
	if tex.desc.Kind == libgfx.TextureCube {
		tex.writes[face]++
	} else {
		tex.writes[0]++
	}
}

type sampler struct {
	tex *texture
}

func (s sampler) Sample2D(uv mgl32.Vec2) mgl32.Vec4 {
	return s.tex.sample(s.tex.layers[0], uv[0], uv[1], s.tex.desc.Wrap)
}

func (s sampler) SampleCube(dir mgl32.Vec3) mgl32.Vec4 {
	if s.tex.desc.Kind != libgfx.TextureCube {
		return mgl32.Vec4{}
	}
	face, u, v := CubeMapCoords(dir)
	return s.tex.sample(s.tex.layers[face], u, v, libgfx.WrapClampToEdge)
}

// CubeMapCoords selects the face a direction points at and returns the
// face coordinates in [0, 1], following the OpenGL cube map layout.
func CubeMapCoords(dir mgl32.Vec3) (face libgfx.CubeFace, s, t float32) {
	rx, ry, rz := dir[0], dir[1], dir[2]
	ax, ay, az := math32.Abs(rx), math32.Abs(ry), math32.Abs(rz)

	var sc, tc, ma float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		tc = -ry
		if rx >= 0 {
			face, sc = libgfx.CubeMapPositiveX, -rz
		} else {
			face, sc = libgfx.CubeMapNegativeX, rz
		}
	case ay >= az:
		ma = ay
		sc = rx
		if ry >= 0 {
			face, tc = libgfx.CubeMapPositiveY, rz
		} else {
			face, tc = libgfx.CubeMapNegativeY, -rz
		}
	default:
		ma = az
		tc = -ry
		if rz >= 0 {
			face, sc = libgfx.CubeMapPositiveZ, rx
		} else {
			face, sc = libgfx.CubeMapNegativeZ, -rx
		}
	}
	if ma == 0 {
		return libgfx.CubeMapPositiveX, 0.5, 0.5
	}
	return face, 0.5*sc/ma + 0.5, 0.5*tc/ma + 0.5
}

func (tex *texture) sample(pix []float32, u, v float32, wrap libgfx.WrapMode) mgl32.Vec4 {
	w, h := tex.desc.Width, tex.desc.Height
	if tex.desc.Filter == libgfx.FilterNearest {
		x := wrapIndex(int(math32.Floor(u*float32(w))), w, wrap)
		y := wrapIndex(int(math32.Floor(v*float32(h))), h, wrap)
		return texel(pix, w, x, y)
	}

	// -0.5 to adjust for the pixel center offset
	u = u*float32(w) - 0.5
	v = v*float32(h) - 0.5
	u0, v0 := math32.Floor(u), math32.Floor(v)
	fu, fv := u-u0, v-v0

	x0, y0 := wrapIndex(int(u0), w, wrap), wrapIndex(int(v0), h, wrap)
	x1, y1 := wrapIndex(int(u0)+1, w, wrap), wrapIndex(int(v0)+1, h, wrap)

	c00 := texel(pix, w, x0, y0)
	c10 := texel(pix, w, x1, y0)
	c01 := texel(pix, w, x0, y1)
	c11 := texel(pix, w, x1, y1)

	bottom := c00.Mul(1 - fu).Add(c10.Mul(fu))
	top := c01.Mul(1 - fu).Add(c11.Mul(fu))
	return bottom.Mul(1 - fv).Add(top.Mul(fv))
}

func texel(pix []float32, w, x, y int) mgl32.Vec4 {
	i := (y*w + x) * 4
	return mgl32.Vec4{pix[i], pix[i+1], pix[i+2], pix[i+3]}
}

func wrapIndex(i, n int, wrap libgfx.WrapMode) int {
	if wrap == libgfx.WrapRepeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
