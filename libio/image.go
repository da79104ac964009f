package libio

import (
	goimg "image"

	"github.com/chewxy/math32"
)

type image struct {
	Channels      int
	Width, Height int
}

// Calculates the tuple index into the images data.
//
// Note that the origin (0,0) is in the bottom left, as opposed to Go's top left origin
func (img *image) Index(x, y int) int {
	return x*img.Channels + y*img.Channels*img.Width
}

func (img *image) Count() int {
	return img.Width * img.Height
}

type IntImage struct {
	image
	Pix []uint8
}

func NewIntImage(pix []uint8, channels int, width, height int) *IntImage {
	return &IntImage{
		Pix: pix,
		image: image{
			Channels: channels,
			Width:    width,
			Height:   height,
		},
	}
}

func (img *IntImage) ToChannels(nr int, defaults ...uint8) *IntImage {
	dst := toChannels(img.Channels, nr, img.Count(), img.Pix, defaults...)

	return NewIntImage(dst, nr, img.Width, img.Height)
}

func toChannels[P ~[]E, E any](srcCh, dstCh int, count int, pix P, defaults ...E) P {
	if srcCh == dstCh {
		return pix
	}

	if len(defaults) < dstCh {
		defaults = append(defaults, make([]E, dstCh-len(defaults))...)
	}

	dst := make([]E, count*dstCh)

	for i := 0; i < count; i++ {
		for c := 0; c < dstCh; c++ {
			if c < srcCh {
				dst[i*dstCh+c] = pix[i*srcCh+c]
			} else {
				dst[i*dstCh+c] = defaults[c]
			}
		}
	}

	return dst
}

// FromGoImage converts src to an RGB image with the origin in the bottom left.
func FromGoImage(src goimg.Image) *IntImage {
	b := src.Bounds()
	img := NewIntImage(make([]uint8, b.Dx()*b.Dy()*3), 3, b.Dx(), b.Dy())

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, b2, _ := src.At(b.Min.X+x, b.Min.Y+img.Height-y-1).RGBA()
			i := img.Index(x, y)
			img.Pix[i+0] = uint8(r >> 8)
			img.Pix[i+1] = uint8(g >> 8)
			img.Pix[i+2] = uint8(b2 >> 8)
		}
	}

	return img
}

func (img *IntImage) ToRGBA() *goimg.RGBA {
	rgba := goimg.NewRGBA(goimg.Rect(0, 0, img.Width, img.Height))

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := img.Index(x, y)
			// flipped vertically
			j := (x + (img.Height-y-1)*img.Width) * 4
			for c := 0; c < img.Channels && c < 4; c++ {
				rgba.Pix[j+c] = img.Pix[i+c]
			}
			if img.Channels < 4 {
				rgba.Pix[j+3] = 0xff
			}
		}
	}

	return rgba
}

type FloatImage struct {
	image
	Pix []float32
}

func NewFloatImage(pix []float32, channels int, width, height int) *FloatImage {
	return &FloatImage{
		Pix: pix,
		image: image{
			Channels: channels,
			Width:    width,
			Height:   height,
		},
	}
}

func (img *FloatImage) Bytes() int {
	return img.Width * img.Height * img.Channels * 4
}

func (img *FloatImage) ToChannels(nr int, defaults ...float32) *FloatImage {
	dst := toChannels(img.Channels, nr, img.Count(), img.Pix, defaults...)

	return NewFloatImage(dst, nr, img.Width, img.Height)
}

// FlipY mirrors the rows in place.
func (img *FloatImage) FlipY() {
	stride := img.Width * img.Channels
	row := make([]float32, stride)
	for y := 0; y < img.Height/2; y++ {
		top := img.Pix[y*stride : (y+1)*stride]
		bottom := img.Pix[(img.Height-y-1)*stride : (img.Height-y)*stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

func (img *FloatImage) ToIntImage(gamma, scale float32) *IntImage {
	pix := make([]uint8, len(img.Pix))

	for i := 0; i < len(img.Pix); i++ {
		pix[i] = uint8(tonemap(img.Pix[i], 1.0/gamma, scale)*0xff + 0.5)
	}

	return NewIntImage(pix, img.Channels, img.Width, img.Height)
}

func tonemap(value, gamma, scale float32) float32 {
	value = math32.Pow(math32.Max(value, 0), gamma) * scale
	return math32.Min(value, 1.0)
}
