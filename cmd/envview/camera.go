package main

import (
	"envcube/libutil"
	"envcube/material"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

type Camera struct {
	Position mgl32.Vec3
	// pitch, yaw in degrees
	Orientation mgl32.Vec2
	// in degrees
	VerticalFov       float32
	Exposure          float32
	ViewportDimension mgl32.Vec2
	ClippingPlanes    mgl32.Vec2
	ViewMatrix        mgl32.Mat4
	ProjectionMatrix  mgl32.Mat4
}

func (cam *Camera) UpdateViewMatrix() {
	cam.Orientation[0] = libutil.ClampF(cam.Orientation[0], -89, 89)
	r := cam.Quaternion()
	t := mgl32.Translate3D(-cam.Position[0], -cam.Position[1], -cam.Position[2])
	cam.ViewMatrix = r.Mat4().Mul4(t)
}

func (cam *Camera) UpdateProjectionMatrix() {
	w, h := cam.ViewportDimension[0], cam.ViewportDimension[1]
	if h == 0 {
		h = 1
	}
	n, f := cam.ClippingPlanes[0], cam.ClippingPlanes[1]
	cam.ProjectionMatrix = mgl32.Perspective(cam.VerticalFov*libutil.Deg2Rad, w/h, n, f)
}

func (cam *Camera) Quaternion() mgl32.Quat {
	return mgl32.AnglesToQuat(cam.Orientation[0]*libutil.Deg2Rad, cam.Orientation[1]*libutil.Deg2Rad, 0, mgl32.XYZ)
}

func (cam *Camera) Fly(vec mgl32.Vec3) {
	r := cam.Quaternion()
	cam.Position = cam.Position.Add(r.Conjugate().Rotate(vec))
}

// Blocks returns the contents of the shared camera uniform blocks.
func (cam *Camera) Blocks() (material.CameraMatrices, material.CameraUniforms) {
	return material.CameraMatrices{
			View:       cam.ViewMatrix,
			Projection: cam.ProjectionMatrix,
			Camera:     cam.ViewMatrix.Inv(),
		}, material.CameraUniforms{
			Position: cam.Position,
			Exposure: cam.Exposure,
			FOV:      cam.VerticalFov,
		}
}

var flyKeys = [...]struct {
	key glfw.Key
	dir mgl32.Vec3
}{
	{glfw.KeyW, mgl32.Vec3{0, 0, -1}},
	{glfw.KeyS, mgl32.Vec3{0, 0, 1}},
	{glfw.KeyA, mgl32.Vec3{-1, 0, 0}},
	{glfw.KeyD, mgl32.Vec3{1, 0, 0}},
	{glfw.KeySpace, mgl32.Vec3{0, 1, 0}},
	{glfw.KeyLeftControl, mgl32.Vec3{0, -1, 0}},
}

// cameraController samples the window once per frame and steers a Camera
// with mouse drag look and WASD fly movement.
type cameraController struct {
	lastTime   float64
	lastCursor mgl32.Vec2
	dt         float32
}

func newCameraController(win *glfw.Window) *cameraController {
	x, y := win.GetCursorPos()
	return &cameraController{
		// first frame gets a plausible non-zero delta
		lastTime:   glfw.GetTime() - 1./60.,
		lastCursor: mgl32.Vec2{float32(x), float32(y)},
	}
}

// TimeDelta returns the seconds between the last two updates.
func (c *cameraController) TimeDelta() float32 {
	return c.dt
}

// Update advances the frame clock and applies look and fly input to cam.
// Pass look or fly as false while the gui captures the mouse or keyboard.
func (c *cameraController) Update(win *glfw.Window, cam *Camera, look, fly bool) {
	now := glfw.GetTime()
	c.dt = float32(now - c.lastTime)
	c.lastTime = now

	x, y := win.GetCursorPos()
	cursor := mgl32.Vec2{float32(x), float32(y)}
	delta := cursor.Sub(c.lastCursor)
	c.lastCursor = cursor

	if look && win.GetMouseButton(glfw.MouseButtonLeft) != glfw.Release {
		scale := cam.VerticalFov / 180
		cam.Orientation[0] += delta[1] * 0.35 * scale
		cam.Orientation[1] += delta[0] * 0.35 * scale
	}
	if !fly {
		return
	}

	var movement mgl32.Vec3
	for _, k := range flyKeys {
		if win.GetKey(k.key) != glfw.Release {
			movement = movement.Add(k.dir)
		}
	}
	if movement.LenSqr() != 0 {
		cam.Fly(movement.Normalize().Mul(c.dt * 1000))
	}
}
