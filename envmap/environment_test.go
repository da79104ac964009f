package envmap

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"envcube/libgfx"
	"envcube/libio"
	"envcube/libsw"
	"envcube/shader"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 16

// skyColor is a smooth function of direction, so reprojection errors stay small.
func skyColor(dir mgl32.Vec3) mgl32.Vec3 {
	return dir.Mul(0.5).Add(mgl32.Vec3{0.6, 0.6, 0.6})
}

func equirectangularHdr(t *testing.T, width, height int) []byte {
	t.Helper()
	img := libio.NewFloatImage(make([]float32, width*height*3), 3, width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			lon := ((float32(x)+0.5)/float32(width) - 0.5) * 2 * math32.Pi
			lat := ((float32(y)+0.5)/float32(height) - 0.5) * math32.Pi
			dir := mgl32.Vec3{
				math32.Cos(lat) * math32.Cos(lon),
				math32.Sin(lat),
				math32.Cos(lat) * math32.Sin(lon),
			}
			c := skyColor(dir)
			copy(img.Pix[img.Index(x, y):], c[:])
		}
	}
	var buf bytes.Buffer
	require.NoError(t, libio.EncodeHdr(&buf, img, true))
	return buf.Bytes()
}

func solidPng(t *testing.T, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fixture struct {
	dev     *libsw.Device
	fetcher *libio.Downloader
	repo    *shader.Repository
}

func newFixture(fsys fstest.MapFS) *fixture {
	dev := libsw.NewDevice(nil)
	return &fixture{
		dev:     dev,
		fetcher: libio.NewDownloader(fsys, libio.DownloaderOptions{}),
		repo:    shader.NewRepository(dev, shader.RepositoryOptions{}),
	}
}

func (f *fixture) new(src Source, opts Options) *Environment {
	if opts.Size == 0 {
		opts.Size = testSize
	}
	return New(f.dev, f.fetcher, f.repo, src, opts)
}

func readFaces(t *testing.T, f *fixture, env *Environment) [6][]float32 {
	t.Helper()
	var faces [6][]float32
	for _, face := range libgfx.CubeFaces {
		pix, err := f.dev.ReadTexture(env.CubeMap(), face)
		require.NoError(t, err)
		faces[face] = pix
	}
	return faces
}

func TestInferProjection(t *testing.T) {
	assert.Equal(t, ProjectionAngular, InferProjection(512, 512))
	assert.Equal(t, ProjectionEquirectangular, InferProjection(1024, 512))
	assert.Equal(t, ProjectionEquirectangular, InferProjection(512, 1024))
}

func TestParseProjection(t *testing.T) {
	p, err := ParseProjection("Angular")
	require.NoError(t, err)
	assert.Equal(t, ProjectionAngular, p)
	p, err = ParseProjection("")
	require.NoError(t, err)
	assert.Equal(t, ProjectionAuto, p)
	_, err = ParseProjection("cylindrical")
	assert.Error(t, err)
}

func TestFaceDirectionMatchesCubeLayout(t *testing.T) {
	for _, face := range libgfx.CubeFaces {
		for _, st := range [][2]float32{{0.5, 0.5}, {0.1, 0.8}, {0.9, 0.3}} {
			dir := FaceDirection(face, st[0], st[1])
			got, s, tc := libsw.CubeMapCoords(dir)
			assert.Equal(t, face, got)
			assert.InDelta(t, st[0], s, 1e-5, "face %v", face)
			assert.InDelta(t, st[1], tc, 1e-5, "face %v", face)
		}
	}
}

func TestPanoramaEndToEnd(t *testing.T) {
	f := newFixture(fstest.MapFS{"sky.hdr": {Data: equirectangularHdr(t, 64, 32)}})
	env := f.new(PanoramaSource{Path: "sky.hdr", Projection: ProjectionEquirectangular}, Options{})

	require.True(t, env.IsLoaded())
	faces := readFaces(t, f, env)
	for _, face := range libgfx.CubeFaces {
		nonZero := false
		for _, v := range faces[face] {
			if v != 0 {
				nonZero = true
				break
			}
		}
		assert.True(t, nonZero, "face %v is empty", face)

		for _, p := range [][2]int{{testSize / 2, testSize / 2}, {3, 12}, {12, 4}} {
			x, y := p[0], p[1]
			dir := FaceDirection(face, (float32(x)+0.5)/testSize, (float32(y)+0.5)/testSize)
			want := skyColor(dir)
			i := (y*testSize + x) * 4
			for c := 0; c < 3; c++ {
				assert.InDelta(t, want[c], faces[face][i+c], 0.05, "face %v pixel %v channel %d", face, p, c)
			}
		}
	}

	// scratch resources are gone, the cube map stays
	stats := f.dev.Stats()
	assert.Equal(t, 1, stats.Textures)
	assert.Equal(t, 0, stats.Framebuffers)
	assert.Equal(t, 1, f.repo.Len())
}

func TestPanoramaIsIdempotent(t *testing.T) {
	f := newFixture(fstest.MapFS{"sky.hdr": {Data: equirectangularHdr(t, 32, 16)}})
	src := PanoramaSource{Path: "sky.hdr", Projection: ProjectionEquirectangular}
	env := f.new(src, Options{})
	first := readFaces(t, f, env)

	env.SetSource(src)
	require.True(t, env.IsLoaded())
	second := readFaces(t, f, env)
	for face := range first {
		assert.InDeltaSlice(t, first[face], second[face], 1e-6)
	}
	assert.Equal(t, [6]int{2, 2, 2, 2, 2, 2}, f.dev.FaceWrites(env.CubeMap()))
}

func TestPanoramaAutoProjection(t *testing.T) {
	square := libio.NewFloatImage(make([]float32, 8*8*3), 3, 8, 8)
	for i := range square.Pix {
		square.Pix[i] = 2
	}
	var buf bytes.Buffer
	require.NoError(t, libio.EncodeHdr(&buf, square, true))

	f := newFixture(fstest.MapFS{"angular.hdr": {Data: buf.Bytes()}})
	env := f.new(PanoramaSource{Path: "angular.hdr"}, Options{})
	require.True(t, env.IsLoaded())

	faces := readFaces(t, f, env)
	assert.InDelta(t, 2, faces[libgfx.CubeMapNegativeZ][0], 1e-6)
	assert.Equal(t, ProjectionAngular, env.converter.Projection)
}

func TestMissingPanoramaLeavesBlackCube(t *testing.T) {
	f := newFixture(fstest.MapFS{})
	var env *Environment
	require.NotPanics(t, func() {
		env = f.new(PanoramaSource{Path: "missing.hdr"}, Options{})
	})
	assert.False(t, env.IsLoaded())
	assert.NotNil(t, env.CubeMap())
	assert.Equal(t, [6]int{}, f.dev.FaceWrites(env.CubeMap()))
}

func TestMalformedPanoramaWritesNothing(t *testing.T) {
	f := newFixture(fstest.MapFS{"sky.hdr": {Data: []byte("#?RADIANCE\n\n-Y 8 +X 16\n\x02\x02")}})
	env := f.new(PanoramaSource{Path: "sky.hdr"}, Options{})
	assert.False(t, env.IsLoaded())
	assert.Equal(t, [6]int{}, f.dev.FaceWrites(env.CubeMap()))
	assert.Equal(t, 1, f.dev.Stats().Textures)
}

func TestOversizedPanoramaHeaderWritesNothing(t *testing.T) {
	data := []byte("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n-Y 2000000000 +X 2000000000\n\x02\x02\x00\x00")
	f := newFixture(fstest.MapFS{"sky.hdr": {Data: data}})

	var env *Environment
	require.NotPanics(t, func() {
		env = f.new(PanoramaSource{Path: "sky.hdr"}, Options{})
	})
	assert.False(t, env.IsLoaded())
	assert.Equal(t, [6]int{}, f.dev.FaceWrites(env.CubeMap()))
	assert.Equal(t, 1, f.dev.Stats().Textures)
}

func cubeFaceFiles(prefix string, c color.RGBA, t *testing.T) (fstest.MapFS, CubeMapSource) {
	fsys := fstest.MapFS{}
	src := CubeMapFaces(prefix, ".png")
	for _, path := range src.Faces {
		fsys[path] = &fstest.MapFile{Data: solidPng(t, c)}
	}
	return fsys, src
}

func TestDirectCubeMapWritesEachFaceOnce(t *testing.T) {
	fsys, src := cubeFaceFiles("faces", color.RGBA{255, 0, 0, 255}, t)
	delete(fsys, src.Faces[libgfx.CubeMapNegativeY])
	f := newFixture(fsys)

	env := f.new(src, Options{})
	assert.False(t, env.IsLoaded(), "faces load in the background")
	f.fetcher.Flush()

	assert.False(t, env.IsLoaded())
	assert.Equal(t, [6]bool{true, true, true, false, true, true}, env.LoadState())
	assert.Equal(t, [6]int{1, 1, 1, 0, 1, 1}, f.dev.FaceWrites(env.CubeMap()))

	faces := readFaces(t, f, env)
	assert.Equal(t, []float32{1, 0, 0, 1}, faces[libgfx.CubeMapPositiveZ][:4])
	assert.Equal(t, make([]float32, testSize*testSize*4), faces[libgfx.CubeMapNegativeY])
}

func TestDirectCubeMapLoaded(t *testing.T) {
	fsys, src := cubeFaceFiles("", color.RGBA{0, 255, 0, 255}, t)
	f := newFixture(fsys)

	env := f.new(src, Options{})
	f.fetcher.Flush()
	assert.True(t, env.IsLoaded())
	assert.Equal(t, [6]int{1, 1, 1, 1, 1, 1}, f.dev.FaceWrites(env.CubeMap()))
}

func TestSetSourceKeepsCubeMap(t *testing.T) {
	fsys, src := cubeFaceFiles("faces", color.RGBA{0, 0, 255, 255}, t)
	fsys["sky.hdr"] = &fstest.MapFile{Data: equirectangularHdr(t, 32, 16)}
	f := newFixture(fsys)

	env := f.new(PanoramaSource{Path: "sky.hdr"}, Options{})
	cube := env.CubeMap()
	id := cube.Id()

	env.SetSource(src)
	f.fetcher.Flush()
	require.True(t, env.IsLoaded())
	assert.Same(t, cube, env.CubeMap())
	assert.Equal(t, id, env.CubeMap().Id())

	// every face now holds the new contents
	faces := readFaces(t, f, env)
	for _, face := range libgfx.CubeFaces {
		assert.Equal(t, []float32{0, 0, 1, 1}, faces[face][:4], "face %v", face)
	}

	env.SetSource(PanoramaSource{Path: "sky.hdr"})
	assert.Same(t, cube, env.CubeMap())
	assert.Equal(t, 1, f.dev.Stats().Textures)
}

func TestStaleFaceLoadsAreDropped(t *testing.T) {
	red, oldSrc := cubeFaceFiles("old", color.RGBA{255, 0, 0, 255}, t)
	blue, newSrc := cubeFaceFiles("new", color.RGBA{0, 0, 255, 255}, t)
	for k, v := range blue {
		red[k] = v
	}
	f := newFixture(red)

	env := f.new(oldSrc, Options{})
	env.SetSource(newSrc)
	f.fetcher.Flush()

	require.True(t, env.IsLoaded())
	assert.Equal(t, [6]int{1, 1, 1, 1, 1, 1}, f.dev.FaceWrites(env.CubeMap()))
	faces := readFaces(t, f, env)
	for _, face := range libgfx.CubeFaces {
		assert.Equal(t, []float32{0, 0, 1, 1}, faces[face][:4], "face %v", face)
	}
}

func TestAcceptStaleLoads(t *testing.T) {
	red, oldSrc := cubeFaceFiles("old", color.RGBA{255, 0, 0, 255}, t)
	blue, newSrc := cubeFaceFiles("new", color.RGBA{0, 0, 255, 255}, t)
	for k, v := range blue {
		red[k] = v
	}
	f := newFixture(red)

	env := f.new(oldSrc, Options{AcceptStaleLoads: true})
	env.SetSource(newSrc)
	f.fetcher.Flush()

	// both generations wrote, only the current one counts as loaded
	assert.True(t, env.IsLoaded())
	assert.Equal(t, [6]int{2, 2, 2, 2, 2, 2}, f.dev.FaceWrites(env.CubeMap()))
}

func TestReleaseDropsPendingLoads(t *testing.T) {
	fsys, src := cubeFaceFiles("faces", color.RGBA{255, 255, 255, 255}, t)
	f := newFixture(fsys)

	env := f.new(src, Options{AcceptStaleLoads: true})
	env.Release()
	assert.NotPanics(t, f.fetcher.Flush)
	assert.Nil(t, env.CubeMap())
	assert.Equal(t, 0, f.dev.Stats().Textures)
}

func TestDumpRoundTrip(t *testing.T) {
	f := newFixture(fstest.MapFS{"sky.hdr": {Data: equirectangularHdr(t, 32, 16)}})
	env := f.new(PanoramaSource{Path: "sky.hdr"}, Options{})
	cube, err := env.Snapshot()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, libio.EncodeCube(&buf, cube, libio.CubeCompressionLz4))

	g := newFixture(fstest.MapFS{"sky.envcube": {Data: buf.Bytes()}})
	loaded := g.new(DumpSource{Path: "sky.envcube"}, Options{})
	require.True(t, loaded.IsLoaded())
	assert.Equal(t, readFaces(t, f, env), readFaces(t, g, loaded))

	small := g.new(DumpSource{Path: "sky.envcube"}, Options{Size: 8})
	assert.False(t, small.IsLoaded())
}
