package envmap

import (
	"fmt"
	"strings"

	"envcube/libgfx"
)

// Source describes where the contents of an environment come from.
// It is one of CubeMapSource, PanoramaSource or DumpSource.
type Source interface {
	isSource()
	fmt.Stringer
}

// CubeMapSource is six 8 bit face images, indexed by libgfx.CubeFace.
type CubeMapSource struct {
	Faces [6]string
}

// PanoramaSource is a single Radiance HDR panorama.
type PanoramaSource struct {
	Path       string
	Projection Projection
}

// DumpSource is a cube written by EncodeCube, usually with cmd/envconv.
type DumpSource struct {
	Path string
}

func (CubeMapSource) isSource()  {}
func (PanoramaSource) isSource() {}
func (DumpSource) isSource()     {}

func (s CubeMapSource) String() string {
	return "cubemap(" + strings.Join(s.Faces[:], ", ") + ")"
}

func (s PanoramaSource) String() string {
	return fmt.Sprintf("panorama(%s, %v)", s.Path, s.Projection)
}

func (s DumpSource) String() string {
	return "dump(" + s.Path + ")"
}

// CubeMapFaces builds a CubeMapSource from a directory and the common
// px/nx/py/ny/pz/nz naming scheme.
func CubeMapFaces(dir, ext string) CubeMapSource {
	names := [6]string{"px", "nx", "py", "ny", "pz", "nz"}
	var src CubeMapSource
	for _, face := range libgfx.CubeFaces {
		path := names[face] + ext
		if dir != "" {
			path = strings.TrimSuffix(dir, "/") + "/" + path
		}
		src.Faces[face] = path
	}
	return src
}
