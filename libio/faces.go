package libio

import (
	"bytes"
	"fmt"
	goimg "image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var faceFormats = map[string]bool{
	"png":  true,
	"jpg":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tif":  true,
}

// DecodeFace decodes an 8 bit cube map face and scales it to size x size.
// The result is RGB with the origin in the bottom left. size <= 0 keeps the
// source dimensions.
func DecodeFace(data []byte, size int) (*IntImage, error) {
	kind, err := filetype.Image(data)
	if err != nil || kind == filetype.Unknown {
		return nil, fmt.Errorf("unrecognized image data")
	}
	if !faceFormats[kind.Extension] {
		return nil, fmt.Errorf("unsupported image type %s", kind.MIME.Value)
	}

	src, _, err := goimg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind.Extension, err)
	}

	b := src.Bounds()
	if size > 0 && (b.Dx() != size || b.Dy() != size) {
		dst := goimg.NewRGBA(goimg.Rect(0, 0, size, size))
		draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		src = dst
	}

	return FromGoImage(src), nil
}
