package libio

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	goimg "image"
	"io"
	"strconv"
	"strings"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
)

var ErrNotHdr = errors.New("not a radiance hdr file")

const (
	HdrMaxDimension = 1 << 15
	HdrMaxPixels    = 1 << 26
)

// IsHdr reports whether data starts with a Radiance signature.
func IsHdr(data []byte) bool {
	return bytes.HasPrefix(data, []byte("#?RADIANCE")) || bytes.HasPrefix(data, []byte("#?RGBE"))
}

// DecodeHdrConfig returns the dimensions of a Radiance image without reading
// its pixels.
func DecodeHdrConfig(r io.Reader) (width, height int, err error) {
	return readHdrHeader(bufio.NewReader(r))
}

// DecodeHdr reads a Radiance RGBE image into a three channel float image.
// When flip is set the first row of the result is the bottom of the picture.
// The header is checked against HdrMaxDimension and HdrMaxPixels before any
// pixel memory is allocated.
func DecodeHdr(r io.Reader, flip bool) (*FloatImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	width, height, err := readHdrHeader(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, err
	}

	decoded, err := rgbe.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("read hdr pixels: %w", err)
	}
	src, ok := decoded.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("unexpected hdr image type %T", decoded)
	}
	bounds := src.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return nil, fmt.Errorf("hdr size %dx%d does not match header %dx%d", bounds.Dx(), bounds.Dy(), width, height)
	}

	img := NewFloatImage(make([]float32, width*height*3), 3, width, height)
	for y := 0; y < height; y++ {
		row := y
		if flip {
			row = height - y - 1
		}
		for x := 0; x < width; x++ {
			r, g, b, _ := src.HDRAt(bounds.Min.X+x, bounds.Min.Y+y).HDRRGBA()
			i := img.Index(x, row)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = float32(r), float32(g), float32(b)
		}
	}

	return img, nil
}

func readHdrHeader(br *bufio.Reader) (width, height int, err error) {
	magic, err := br.ReadString('\n')
	if err != nil {
		return 0, 0, fmt.Errorf("read hdr signature: %w", err)
	}
	if !IsHdr([]byte(magic)) {
		return 0, 0, ErrNotHdr
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return 0, 0, fmt.Errorf("read hdr header: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		if format, ok := strings.CutPrefix(line, "FORMAT="); ok && format != "32-bit_rle_rgbe" {
			return 0, 0, fmt.Errorf("unsupported hdr format %q", format)
		}
	}

	resolution, err := br.ReadString('\n')
	if err != nil {
		return 0, 0, fmt.Errorf("read hdr resolution: %w", err)
	}
	fields := strings.Fields(resolution)
	if len(fields) != 4 || fields[0] != "-Y" || fields[2] != "+X" {
		return 0, 0, fmt.Errorf("unsupported hdr orientation %q", strings.TrimSpace(resolution))
	}
	height, err1 := strconv.Atoi(fields[1])
	width, err2 := strconv.Atoi(fields[3])
	if err1 != nil || err2 != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid hdr resolution %q", strings.TrimSpace(resolution))
	}
	if width > HdrMaxDimension || height > HdrMaxDimension || width*height > HdrMaxPixels {
		return 0, 0, fmt.Errorf("hdr resolution %dx%d exceeds the %d pixel limit", width, height, HdrMaxPixels)
	}
	return width, height, nil
}

// EncodeHdr writes img as a Radiance file. img must have at least three
// channels. When flip is set the first row of img is treated as the bottom of
// the picture.
func EncodeHdr(w io.Writer, img *FloatImage, flip bool) error {
	if img.Channels < 3 {
		return fmt.Errorf("hdr needs 3 channels, got %d", img.Channels)
	}

	dst := hdr.NewRGB(goimg.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		row := y
		if flip {
			row = img.Height - y - 1
		}
		for x := 0; x < img.Width; x++ {
			i := img.Index(x, row)
			o := y*dst.Stride + x*3
			dst.Pix[o], dst.Pix[o+1], dst.Pix[o+2] = max(img.Pix[i], 0), max(img.Pix[i+1], 0), max(img.Pix[i+2], 0)
		}
	}

	bw := bufio.NewWriter(w)
	if err := rgbe.Encode(bw, dst); err != nil {
		return err
	}
	return bw.Flush()
}
