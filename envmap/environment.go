// Package envmap turns environment sources into a cube map.
//
// Direct cube maps are fetched face by face in the background, panoramas
// and cube dumps are converted synchronously on the calling thread. Errors
// never reach the caller: they are logged and the cube map keeps whatever it
// held before.
package envmap

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"envcube/libgfx"
	"envcube/libio"
	"envcube/libutil"
	"envcube/material"
	"envcube/shader"

	"github.com/google/uuid"
)

const DefaultSize = 512

// Fetcher is the file access an Environment needs. libio.Downloader
// implements it.
type Fetcher interface {
	// Fetch reads path in the background and passes the contents, or nil on
	// failure, to done on the render thread.
	Fetch(path string, kind libio.Kind, done func([]byte))
	// Load reads path synchronously and returns nil on failure.
	Load(path string, kind libio.Kind) []byte
}

type Options struct {
	// Size is the edge length of each cube map face, defaults to DefaultSize.
	Size   int
	Logger *slog.Logger
	// AcceptStaleLoads lets face loads that were started for a previous
	// source still write into the cube map. The last load to complete wins.
	AcceptStaleLoads bool
}

var errReleased = errors.New("environment released")

type Environment struct {
	id       uuid.UUID
	dev      libgfx.Device
	fetcher  Fetcher
	programs *shader.Repository
	opts     Options
	log      *slog.Logger

	cubeMap    libgfx.Texture
	converter  *ConverterMaterial
	source     Source
	generation uint64
	faces      [6]bool
	converted  bool
}

// New allocates the cube map and starts loading src. The cube map is created
// once and kept for the lifetime of the environment.
func New(dev libgfx.Device, fetcher Fetcher, programs *shader.Repository, src Source, opts Options) *Environment {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	env := &Environment{
		id:       uuid.New(),
		dev:      dev,
		fetcher:  fetcher,
		programs: programs,
		opts:     opts,
	}
	env.log = opts.Logger.With("env", env.id.String())

	cubeMap, err := dev.CreateTexture(libgfx.TextureDesc{
		Kind:   libgfx.TextureCube,
		Format: libgfx.FormatRGBA32F,
		Width:  opts.Size,
		Height: opts.Size,
		Filter: libgfx.FilterLinear,
		Wrap:   libgfx.WrapClampToEdge,
		Label:  "environment",
	})
	if err != nil {
		env.log.Error("could not create cube map", "error", err)
	}
	env.cubeMap = cubeMap

	env.SetSource(src)
	return env
}

func (env *Environment) ID() uuid.UUID {
	return env.id
}

// CubeMap returns the same texture for the whole lifetime of env.
func (env *Environment) CubeMap() libgfx.Texture {
	return env.cubeMap
}

func (env *Environment) Source() Source {
	return env.source
}

func (env *Environment) Size() int {
	return env.opts.Size
}

// IsLoaded reports whether the current source has been fully written.
func (env *Environment) IsLoaded() bool {
	switch env.source.(type) {
	case CubeMapSource:
		return env.faces == [6]bool{true, true, true, true, true, true}
	case PanoramaSource, DumpSource:
		return env.converted
	}
	return false
}

// LoadState returns which faces of a direct cube map have been written.
func (env *Environment) LoadState() [6]bool {
	return env.faces
}

// SetSource replaces the contents of the cube map. Loads still running for
// the previous source are not cancelled; their results are dropped unless
// AcceptStaleLoads is set.
func (env *Environment) SetSource(src Source) {
	env.generation++
	env.source = src
	env.faces = [6]bool{}
	env.converted = false

	if env.cubeMap == nil {
		return
	}

	log := env.log.With("source", src)
	switch s := src.(type) {
	case CubeMapSource:
		env.loadFaces(s)
	case PanoramaSource:
		if err := env.convertPanorama(s); err != nil {
			log.Error("could not convert panorama", "error", err)
			return
		}
		env.converted = true
		log.Info("converted panorama")
	case DumpSource:
		if err := env.loadDump(s); err != nil {
			log.Error("could not load cube dump", "error", err)
			return
		}
		env.converted = true
		log.Info("loaded cube dump")
	default:
		log.Warn("no environment source")
	}
}

func (env *Environment) loadFaces(src CubeMapSource) {
	generation := env.generation
	for _, face := range libgfx.CubeFaces {
		path := src.Faces[face]
		if path == "" {
			env.log.Warn("missing face path", "face", face)
			continue
		}
		env.fetcher.Fetch(path, libio.KindImage, func(data []byte) {
			env.writeFace(generation, face, path, data)
		})
	}
}

func (env *Environment) writeFace(generation uint64, face libgfx.CubeFace, path string, data []byte) {
	log := env.log.With("face", face, "path", path)
	if env.cubeMap == nil {
		return
	}
	current := generation == env.generation
	if !current && !env.opts.AcceptStaleLoads {
		log.Debug("dropping stale face")
		return
	}
	if data == nil {
		log.Warn("face unavailable")
		return
	}

	img, err := libio.DecodeFace(data, env.opts.Size)
	if err != nil {
		log.Warn("could not decode face", "error", err)
		return
	}
	if err := env.dev.UploadTexture(env.cubeMap, face, img.Width, img.Height, img.Channels, img.Pix); err != nil {
		log.Error("could not upload face", "error", err)
		return
	}
	if current {
		env.faces[face] = true
	}
}

func (env *Environment) convertPanorama(src PanoramaSource) error {
	data := env.fetcher.Load(src.Path, libio.KindBinary)
	if data == nil {
		return fmt.Errorf("%s is unavailable", src.Path)
	}
	hdr, err := libio.DecodeHdr(bytes.NewReader(data), true)
	if err != nil {
		return fmt.Errorf("decode %s: %w", src.Path, err)
	}

	projection := src.Projection
	if projection == ProjectionAuto {
		projection = InferProjection(hdr.Width, hdr.Height)
	}
	return env.Reproject(hdr, projection)
}

// Reproject renders a decoded panorama into all six faces. The panorama
// texture, the render target and its framebuffer only live for this call.
// GPU bindings are not restored afterwards.
func (env *Environment) Reproject(hdr *libio.FloatImage, projection Projection) error {
	if env.cubeMap == nil {
		return errReleased
	}
	dev := env.dev
	size := env.opts.Size

	var cleanup libutil.Cleanup
	defer cleanup.Run()

	panorama, err := dev.CreateTexture(libgfx.TextureDesc{
		Format: libgfx.FormatRGB32F,
		Width:  hdr.Width,
		Height: hdr.Height,
		Filter: libgfx.FilterLinear,
		Wrap:   libgfx.WrapClampToEdge,
		Label:  "panorama",
	})
	if err != nil {
		return fmt.Errorf("create panorama texture: %w", err)
	}
	cleanup.Add(func() { dev.DeleteTexture(panorama) })
	if err := dev.UploadTexture(panorama, 0, hdr.Width, hdr.Height, hdr.Channels, hdr.Pix); err != nil {
		return fmt.Errorf("upload panorama: %w", err)
	}

	target, err := dev.CreateTexture(libgfx.TextureDesc{
		Format: libgfx.FormatRGBA32F,
		Width:  size,
		Height: size,
		Filter: libgfx.FilterLinear,
		Wrap:   libgfx.WrapClampToEdge,
		Label:  "reprojection target",
	})
	if err != nil {
		return fmt.Errorf("create render target: %w", err)
	}
	cleanup.Add(func() { dev.DeleteTexture(target) })

	fb, err := dev.CreateFramebuffer()
	if err != nil {
		return fmt.Errorf("create framebuffer: %w", err)
	}
	cleanup.Add(func() { dev.DeleteFramebuffer(fb) })
	if err := dev.AttachColor(fb, target); err != nil {
		return err
	}

	if env.converter == nil {
		env.converter = NewConverterMaterial(dev)
	}
	conv := env.converter
	if err := material.Compile(env.programs, conv); err != nil {
		return err
	}
	conv.Panorama = panorama
	conv.Projection = projection
	cleanup.Add(func() { conv.Panorama = nil })

	dev.Viewport(0, 0, size, size)
	for _, face := range libgfx.CubeFaces {
		conv.View = FaceView(face)
		if err := material.Draw(dev, conv, fb); err != nil {
			return err
		}
		if err := dev.CopyToCubeFace(fb, env.cubeMap, face, size, size); err != nil {
			return fmt.Errorf("copy face %v: %w", face, err)
		}
	}
	return nil
}

func (env *Environment) loadDump(src DumpSource) error {
	data := env.fetcher.Load(src.Path, libio.KindBinary)
	if data == nil {
		return fmt.Errorf("%s is unavailable", src.Path)
	}
	cube, err := libio.DecodeCube(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", src.Path, err)
	}
	if cube.Size != env.opts.Size {
		return fmt.Errorf("cube dump is %dx%d, environment is %dx%d", cube.Size, cube.Size, env.opts.Size, env.opts.Size)
	}
	for _, face := range libgfx.CubeFaces {
		if err := env.dev.UploadTexture(env.cubeMap, face, cube.Size, cube.Size, 3, cube.Faces[face]); err != nil {
			return fmt.Errorf("upload face %v: %w", face, err)
		}
	}
	return nil
}

// Snapshot reads the cube map back into memory.
func (env *Environment) Snapshot() (*libio.Cube, error) {
	if env.cubeMap == nil {
		return nil, errReleased
	}
	cube := &libio.Cube{Size: env.opts.Size}
	for _, face := range libgfx.CubeFaces {
		rgba, err := env.dev.ReadTexture(env.cubeMap, face)
		if err != nil {
			return nil, fmt.Errorf("read face %v: %w", face, err)
		}
		img := libio.NewFloatImage(rgba, 4, cube.Size, cube.Size)
		cube.Faces[face] = img.ToChannels(3).Pix
	}
	return cube, nil
}

// Release deletes the cube map. Pending face loads are dropped.
func (env *Environment) Release() {
	env.generation++
	if env.cubeMap != nil {
		env.dev.DeleteTexture(env.cubeMap)
		env.cubeMap = nil
	}
}
