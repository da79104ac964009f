package libio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const MagicNumberCube = 0x65637562

type CubeVersion uint32

const (
	CubeVersion1 = CubeVersion(1_000_000)
)

type CubeCompression uint32

const (
	CubeCompressionNone = CubeCompression(iota)
	CubeCompressionLz4
)

type CubeHeader struct {
	Check       uint32
	Version     CubeVersion
	Size        uint32
	Channels    uint8
	Compression CubeCompression
	Unused      [15]uint8
}

// Cube holds the six faces of a cube map as RGB floats, ordered +X, -X, +Y,
// -Y, +Z, -Z. Each face starts with its bottom row.
type Cube struct {
	Size  int
	Faces [6][]float32
}

func (c *Cube) Face(i int) *FloatImage {
	return NewFloatImage(c.Faces[i], 3, c.Size, c.Size)
}

func EncodeCube(w io.Writer, cube *Cube, compression CubeCompression) (err error) {
	bw := &BinaryWriter{Dst: w, Order: binary.LittleEndian}
	defer func() { err = bw.wrap(err) }()

	header := CubeHeader{
		Check:       MagicNumberCube,
		Version:     CubeVersion1,
		Size:        uint32(cube.Size),
		Channels:    3,
		Compression: compression,
	}
	if !bw.WriteRef(header) {
		return fmt.Errorf("could not write cube header")
	}

	n := cube.Size * cube.Size * 3
	raw := bytes.NewBuffer(make([]byte, 0, 6*n*4))
	for i, face := range cube.Faces {
		if len(face) != n {
			return fmt.Errorf("face %d has %d values, expected %d", i, len(face), n)
		}
		binary.Write(raw, bw.Order, face)
	}

	switch compression {
	case CubeCompressionNone:
		bw.WriteBytes(raw.Bytes())
	case CubeCompressionLz4:
		lzw := lz4.NewWriter(bw)
		if err := lzw.Apply(lz4.CompressionLevelOption(lz4.Level5)); err != nil {
			return err
		}
		if _, err := lzw.Write(raw.Bytes()); err != nil {
			return fmt.Errorf("could not compress cube faces: %w", err)
		}
		if err := lzw.Close(); err != nil {
			return fmt.Errorf("could not compress cube faces: %w", err)
		}
	default:
		return fmt.Errorf("unknown cube compression %d", compression)
	}
	return nil
}

func DecodeCube(r io.Reader) (cube *Cube, err error) {
	br := &BinaryReader{Src: r, Order: binary.LittleEndian}
	defer func() { err = br.wrap(err) }()

	header := CubeHeader{}
	if !br.ReadRef(&header) {
		return nil, fmt.Errorf("expected cube header; byte 0x%08x", br.LastIndex)
	}
	if header.Check != MagicNumberCube {
		return nil, fmt.Errorf("cube header is corrupt; byte 0x%08x", br.LastIndex)
	}
	if header.Version != CubeVersion1 {
		return nil, fmt.Errorf("cube version %d unsupported; byte 0x%08x", header.Version, br.LastIndex)
	}
	if header.Channels != 3 || header.Size == 0 || header.Size > 1<<14 {
		return nil, fmt.Errorf("invalid cube dimensions %d with %d channels", header.Size, header.Channels)
	}

	var src io.Reader
	switch header.Compression {
	case CubeCompressionNone:
		src = br
	case CubeCompressionLz4:
		src = lz4.NewReader(br)
	default:
		return nil, fmt.Errorf("unknown cube compression %d", header.Compression)
	}

	cube = &Cube{Size: int(header.Size)}
	n := cube.Size * cube.Size * 3
	for i := range cube.Faces {
		cube.Faces[i] = make([]float32, n)
		if err := binary.Read(src, br.Order, cube.Faces[i]); err != nil {
			return nil, fmt.Errorf("could not read face %d: %w", i, err)
		}
	}
	return cube, nil
}
