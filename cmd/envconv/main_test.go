package main

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"envcube/envmap"
	"envcube/libio"
	"envcube/libsw"
	"envcube/shader"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSize(t *testing.T) {
	var sz size
	require.NoError(t, sz.Set("25%"))
	assert.Equal(t, 256, sz.Calc(1024))
	assert.Equal(t, "25%", sz.String())

	require.NoError(t, sz.Set(" 64px"))
	assert.Equal(t, 64, sz.Calc(1024))
	assert.Equal(t, "64px", sz.String())

	assert.Error(t, sz.Set("64"))
	assert.Error(t, sz.Set("xpx"))
}

func TestImplFlag(t *testing.T) {
	var i impl
	require.NoError(t, i.Set("software"))
	assert.Equal(t, implSw, i)
	assert.Error(t, i.Set("opencl"))
}

func TestProjectionFlag(t *testing.T) {
	var p projection
	require.NoError(t, p.Set("angular"))
	assert.Equal(t, envmap.ProjectionAngular, p.Projection)
	assert.Equal(t, "angular", p.String())
	assert.Error(t, p.Set("cylindrical"))
}

func TestOutputPath(t *testing.T) {
	cargs = &commonArgs{out: "out"}
	assert.Equal(t, filepath.Join("out", "sky.envcube"), outputPath("in/sky.hdr", ".envcube"))
	assert.Equal(t, filepath.Join("out", "sky.envcube"), outputPath("in/sky.hdr.lz4", ".envcube"))
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0666))
}

func TestConvertAndPreview(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	cargs = &commonArgs{out: out, quiet: true, supress: true}

	hdr := libio.NewFloatImage(make([]float32, 16*8*3), 3, 16, 8)
	for i := range hdr.Pix {
		hdr.Pix[i] = 0.5
	}
	var buf bytes.Buffer
	require.NoError(t, libio.EncodeHdr(&buf, hdr, true))
	writeFile(t, filepath.Join(in, "sky.hdr"), buf.Bytes())

	args := convertArgs{sizeImplArgs: sizeImplArgs{impl: implSw, size: size{unit: unitPixel, pixel: 4}}}
	dev := libsw.NewDevice(nil)
	programs := shader.NewRepository(dev, shader.RepositoryOptions{})
	require.NoError(t, convertFile(args, filepath.Join(in, "sky.hdr"), ".envcube", dev, programs, logger()))

	dump, err := os.ReadFile(filepath.Join(out, "sky.envcube"))
	require.NoError(t, err)
	cube, err := libio.DecodeCube(bytes.NewReader(dump))
	require.NoError(t, err)
	require.Equal(t, 4, cube.Size)
	for face := range cube.Faces {
		for _, v := range cube.Faces[face] {
			require.InDelta(t, 0.5, v, 0.01, "face %d", face)
		}
	}

	previewOut := t.TempDir()
	cargs = &commonArgs{out: previewOut, quiet: true, ext: ".png"}
	require.NoError(t, previewFile(previewArgs{gamma: 1, scale: 1}, filepath.Join(out, "sky.envcube")))
	for _, suffix := range faceSuffixes {
		f, err := os.Open(filepath.Join(previewOut, "sky"+suffix+".png"))
		require.NoError(t, err)
		img, err := png.Decode(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
		r, _, _, _ := img.At(1, 1).RGBA()
		assert.InDelta(t, 128, r>>8, 2)
	}
}

func TestConvertMissingFile(t *testing.T) {
	cargs = &commonArgs{out: t.TempDir(), quiet: true}
	dev := libsw.NewDevice(nil)
	programs := shader.NewRepository(dev, shader.RepositoryOptions{})
	args := convertArgs{sizeImplArgs: sizeImplArgs{size: size{unit: unitPercent, percent: 25}}}
	assert.Error(t, convertFile(args, filepath.Join(t.TempDir(), "missing.hdr"), ".envcube", dev, programs, logger()))
}

func TestPack(t *testing.T) {
	in, out := filepath.Join(t.TempDir(), "room"), t.TempDir()
	require.NoError(t, os.Mkdir(in, 0777))
	cargs = &commonArgs{out: out, quiet: true, supress: true}

	src := envmap.CubeMapFaces("", ".png")
	for i, name := range src.Faces {
		img := image.NewRGBA(image.Rect(0, 0, 8, 8))
		for p := 0; p < len(img.Pix); p += 4 {
			img.Pix[p] = uint8(40 * i)
			img.Pix[p+3] = 0xff
		}
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))
		writeFile(t, filepath.Join(in, name), buf.Bytes())
	}

	args := packArgs{
		sizeImplArgs: sizeImplArgs{impl: implSw, size: size{unit: unitPercent, percent: 50}},
		faceExt:      ".png",
	}
	dev := libsw.NewDevice(nil)
	programs := shader.NewRepository(dev, shader.RepositoryOptions{})
	require.NoError(t, packDir(args, in, ".envcube", dev, programs, logger()))

	dump, err := os.ReadFile(filepath.Join(out, "room.envcube"))
	require.NoError(t, err)
	cube, err := libio.DecodeCube(bytes.NewReader(dump))
	require.NoError(t, err)
	require.Equal(t, 4, cube.Size)
	for i := range cube.Faces {
		assert.InDelta(t, float32(40*i)/255, cube.Faces[i][0], 0.01, "face %d", i)
	}

	require.NoError(t, os.Remove(filepath.Join(in, "ny.png")))
	assert.ErrorContains(t, packDir(args, in, ".envcube", dev, programs, logger()), "could not be loaded")
}
