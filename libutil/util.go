package libutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	Rad2Deg = float32(180 / math.Pi)
	Deg2Rad = float32(math.Pi / 180)
)

type Deleter interface {
	Delete()
}

// DeleterFunc adapts a function to the Deleter interface.
type DeleterFunc func()

func (f DeleterFunc) Delete() {
	f()
}

// Cleanup collects deleters and runs them in reverse order.
type Cleanup []Deleter

func (c *Cleanup) Add(fn func()) {
	*c = append(*c, DeleterFunc(fn))
}

func (c *Cleanup) Run() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i].Delete()
	}
	*c = nil
}

// SphericalDirection returns the unit vector for an elevation measured from +Y
// and an azimuth measured from +X towards +Z.
func SphericalDirection(elevation, azimuth float32) mgl32.Vec3 {
	sinE, cosE := math.Sincos(float64(elevation))
	sinA, cosA := math.Sincos(float64(azimuth))
	return mgl32.Vec3{
		float32(cosA * sinE),
		float32(cosE),
		float32(sinA * sinE),
	}.Normalize()
}

func MaxI(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func ClampF(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
