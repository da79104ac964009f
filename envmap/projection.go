package envmap

import (
	"fmt"
	"strings"

	"envcube/libgfx"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Projection is the parameterization of a panorama.
type Projection int

const (
	ProjectionAuto Projection = iota
	ProjectionEquirectangular
	// ProjectionAngular is a light probe: the sphere of directions mapped
	// onto a disc, with forward (-Z) in the center.
	ProjectionAngular
)

func (p Projection) String() string {
	switch p {
	case ProjectionAuto:
		return "auto"
	case ProjectionEquirectangular:
		return "equirectangular"
	case ProjectionAngular:
		return "angular"
	}
	return fmt.Sprintf("Projection(%d)", int(p))
}

func ParseProjection(s string) (Projection, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return ProjectionAuto, nil
	case "equirectangular", "equirect", "latlong":
		return ProjectionEquirectangular, nil
	case "angular", "probe", "lightprobe":
		return ProjectionAngular, nil
	}
	return ProjectionAuto, fmt.Errorf("unknown projection %q", s)
}

// InferProjection treats square images as light probes.
func InferProjection(width, height int) Projection {
	if width == height {
		return ProjectionAngular
	}
	return ProjectionEquirectangular
}

const (
	invTwoPi = 0.15915494309
	invPi    = 0.31830988618
)

// EquirectangularUV maps a unit direction to panorama coordinates. +Y is at v = 1.
func EquirectangularUV(dir mgl32.Vec3) mgl32.Vec2 {
	u := math32.Atan2(dir[2], dir[0])*invTwoPi + 0.5
	v := math32.Asin(mgl32.Clamp(dir[1], -1, 1))*invPi + 0.5
	return mgl32.Vec2{u, v}
}

// AngularUV maps a unit direction to light probe coordinates.
func AngularUV(dir mgl32.Vec3) mgl32.Vec2 {
	l := math32.Hypot(dir[0], dir[1])
	if l < 1e-7 {
		if dir[2] < 0 {
			return mgl32.Vec2{0.5, 0.5}
		}
		return mgl32.Vec2{1, 0.5}
	}
	r := math32.Acos(mgl32.Clamp(-dir[2], -1, 1)) * invPi / l
	return mgl32.Vec2{dir[0]*r*0.5 + 0.5, dir[1]*r*0.5 + 0.5}
}

var faceViews = [6]struct {
	dir, up mgl32.Vec3
}{
	libgfx.CubeMapPositiveX: {mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	libgfx.CubeMapNegativeX: {mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	libgfx.CubeMapPositiveY: {mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	libgfx.CubeMapNegativeY: {mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
	libgfx.CubeMapPositiveZ: {mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	libgfx.CubeMapNegativeZ: {mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
}

// FaceView returns the view matrix that looks from the origin through the
// center of face. With a 90 degree frustum, row 0 of the rendered image is
// row 0 of the cube map face.
func FaceView(face libgfx.CubeFace) mgl32.Mat4 {
	v := faceViews[face]
	return mgl32.LookAtV(mgl32.Vec3{}, v.dir, v.up)
}

// FaceDirection returns the direction through the face coordinates s, t in [0, 1].
func FaceDirection(face libgfx.CubeFace, s, t float32) mgl32.Vec3 {
	camera := FaceView(face).Inv()
	ndc := mgl32.Vec3{s*2 - 1, t*2 - 1, -1}
	return camera.Mat3().Mul3x1(ndc).Normalize()
}
