package main

import (
	_ "embed"
	"unsafe"

	"envcube/libgfx"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/inkyblackness/imgui-go/v4"
)

//go:embed shaders/imgui.vert
var imguiVertexSource string

//go:embed shaders/imgui.frag
var imguiFragmentSource string

type ImGui struct {
	IO        imgui.IO
	FrameTime float32
	dev       libgfx.Device
	program   libgfx.Program
	projLoc   libgfx.UniformLocation
	atlas     uint32
	vao       uint32
	vbo       uint32
	vboSize   int
	ebo       uint32
	eboSize   int
}

func NewImGui(dev libgfx.Device, win *glfw.Window) (*ImGui, error) {
	program, err := dev.CompileProgram(libgfx.ProgramSource{
		Name:     "imgui",
		Vertex:   imguiVertexSource,
		Fragment: imguiFragmentSource,
	})
	if err != nil {
		return nil, err
	}

	imgui.CreateContext(nil)

	io := imgui.CurrentIO()
	dispWidth, dispHeight := win.GetSize()
	io.SetDisplaySize(imgui.Vec2{X: float32(dispWidth), Y: float32(dispHeight)})
	imgui.StyleColorsDark()

	var vao uint32
	gl.CreateVertexArrays(1, &vao)

	_, vertexOffsetPos, vertexOffsetUv, vertexOffsetCol := imgui.VertexBufferLayout()
	gl.EnableVertexArrayAttrib(vao, 0)
	gl.VertexArrayAttribFormat(vao, 0, 2, gl.FLOAT, false, uint32(vertexOffsetPos))
	gl.VertexArrayAttribBinding(vao, 0, 0)
	gl.EnableVertexArrayAttrib(vao, 1)
	gl.VertexArrayAttribFormat(vao, 1, 2, gl.FLOAT, false, uint32(vertexOffsetUv))
	gl.VertexArrayAttribBinding(vao, 1, 0)
	gl.EnableVertexArrayAttrib(vao, 2)
	gl.VertexArrayAttribFormat(vao, 2, 4, gl.UNSIGNED_BYTE, true, uint32(vertexOffsetCol))
	gl.VertexArrayAttribBinding(vao, 2, 0)

	image := io.Fonts().TextureDataRGBA32()
	var atlas uint32
	gl.CreateTextures(gl.TEXTURE_2D, 1, &atlas)
	gl.TextureStorage2D(atlas, 1, gl.RGBA8, int32(image.Width), int32(image.Height))
	gl.TextureParameteri(atlas, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TextureParameteri(atlas, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TextureSubImage2D(atlas, 0, 0, 0, int32(image.Width), int32(image.Height), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer((*byte)(image.Pixels)))
	io.Fonts().SetTextureID(imgui.TextureID(atlas))

	win.SetCursorPosCallback(func(w *glfw.Window, mx, my float64) {
		io.SetMousePosition(imgui.Vec2{X: float32(mx), Y: float32(my)})
	})
	win.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		io.SetMouseButtonDown(int(button), action == glfw.Press)
	})
	win.SetScrollCallback(func(w *glfw.Window, x, y float64) {
		io.AddMouseWheelDelta(float32(x), float32(y))
	})
	win.SetCharCallback(func(w *glfw.Window, char rune) {
		io.AddInputCharacters(string(char))
	})
	win.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action == glfw.Press {
			io.KeyPress(int(key))
		}
		if action == glfw.Release {
			io.KeyRelease(int(key))
		}

		// Modifiers are not reliable across systems
		io.KeyCtrl(int(glfw.KeyLeftControl), int(glfw.KeyRightControl))
		io.KeyShift(int(glfw.KeyLeftShift), int(glfw.KeyRightShift))
		io.KeyAlt(int(glfw.KeyLeftAlt), int(glfw.KeyRightAlt))
		io.KeySuper(int(glfw.KeyLeftSuper), int(glfw.KeyRightSuper))
	})

	io.KeyMap(imgui.KeyTab, int(glfw.KeyTab))
	io.KeyMap(imgui.KeyLeftArrow, int(glfw.KeyLeft))
	io.KeyMap(imgui.KeyRightArrow, int(glfw.KeyRight))
	io.KeyMap(imgui.KeyUpArrow, int(glfw.KeyUp))
	io.KeyMap(imgui.KeyDownArrow, int(glfw.KeyDown))
	io.KeyMap(imgui.KeyHome, int(glfw.KeyHome))
	io.KeyMap(imgui.KeyEnd, int(glfw.KeyEnd))
	io.KeyMap(imgui.KeyDelete, int(glfw.KeyDelete))
	io.KeyMap(imgui.KeyBackspace, int(glfw.KeyBackspace))
	io.KeyMap(imgui.KeyEnter, int(glfw.KeyEnter))
	io.KeyMap(imgui.KeyEscape, int(glfw.KeyEscape))

	return &ImGui{
		IO:        io,
		FrameTime: float32(glfw.GetTime()),
		dev:       dev,
		program:   program,
		projLoc:   program.UniformLocation("u_proj_mat"),
		atlas:     atlas,
		vao:       vao,
	}, nil
}

// WantsMouse reports whether the cursor is over a window, so camera input
// should be ignored.
func (gui *ImGui) WantsMouse() bool {
	return gui.IO.WantCaptureMouse()
}

func (gui *ImGui) Draw(win *glfw.Window) {
	gl.PushDebugGroup(gl.DEBUG_SOURCE_APPLICATION, 999, -1, gl.Str("Draw ImGui\x00"))
	defer gl.PopDebugGroup()

	dispWidth, dispHeight := win.GetSize()
	fbWidth, fbHeight := win.GetFramebufferSize()
	gui.dev.Viewport(0, 0, fbWidth, fbHeight)
	gui.IO.SetDisplaySize(imgui.Vec2{X: float32(dispWidth), Y: float32(dispHeight)})
	ortho := mgl32.Ortho2D(0, float32(dispWidth), float32(dispHeight), 0)

	time := float32(glfw.GetTime())
	gui.IO.SetDeltaTime(time - gui.FrameTime)
	gui.FrameTime = time

	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BindVertexArray(gui.vao)
	gui.dev.UseProgram(gui.program)
	gui.dev.SetUniform(gui.program, gui.projLoc, ortho)

	gl.Enable(gl.BLEND)
	gl.Enable(gl.SCISSOR_TEST)
	gl.BlendEquation(gl.FUNC_ADD)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	defer gl.Disable(gl.BLEND)
	defer gl.Disable(gl.SCISSOR_TEST)

	imgui.Render()
	drawData := imgui.RenderedDrawData()
	drawData.ScaleClipRects(imgui.Vec2{
		X: float32(fbWidth) / float32(dispWidth),
		Y: float32(fbHeight) / float32(dispHeight),
	})

	for _, list := range drawData.CommandLists() {
		vertexBuffer, vertexBufferSize := list.VertexBuffer()
		if vertexBufferSize > gui.vboSize {
			vertexSize, _, _, _ := imgui.VertexBufferLayout()
			gl.DeleteBuffers(1, &gui.vbo)
			gui.vboSize = vertexBufferSize
			gl.CreateBuffers(1, &gui.vbo)
			gl.NamedBufferStorage(gui.vbo, gui.vboSize, nil, gl.DYNAMIC_STORAGE_BIT)
			gl.VertexArrayVertexBuffer(gui.vao, 0, gui.vbo, 0, int32(vertexSize))
		}
		if vertexBufferSize > 0 {
			gl.NamedBufferSubData(gui.vbo, 0, vertexBufferSize, vertexBuffer)
		}

		indexBuffer, indexBufferSize := list.IndexBuffer()
		if indexBufferSize > gui.eboSize {
			gl.DeleteBuffers(1, &gui.ebo)
			gui.eboSize = indexBufferSize
			gl.CreateBuffers(1, &gui.ebo)
			gl.NamedBufferStorage(gui.ebo, gui.eboSize, nil, gl.DYNAMIC_STORAGE_BIT)
			gl.VertexArrayElementBuffer(gui.vao, gui.ebo)
		}
		if indexBufferSize > 0 {
			gl.NamedBufferSubData(gui.ebo, 0, indexBufferSize, indexBuffer)
		}

		var indexType uint32
		indexSize := imgui.IndexBufferLayout()
		switch indexSize {
		case 1:
			indexType = gl.UNSIGNED_BYTE
		case 2:
			indexType = gl.UNSIGNED_SHORT
		case 4:
			indexType = gl.UNSIGNED_INT
		}

		for _, cmd := range list.Commands() {
			if cmd.HasUserCallback() {
				cmd.CallUserCallback(list)
			} else {
				gl.BindTextureUnit(0, uint32(cmd.TextureID()))
				clipRect := cmd.ClipRect()
				x, y := int32(clipRect.X), int32(fbHeight)-int32(clipRect.W)
				if y <= 0 {
					y = 0
				}
				gl.Scissor(x, y, int32(clipRect.Z-clipRect.X), int32(clipRect.W-clipRect.Y))
				gl.DrawElementsBaseVertexWithOffset(gl.TRIANGLES, int32(cmd.ElementCount()), indexType, uintptr(cmd.IndexOffset()*indexSize), int32(cmd.VertexOffset()))
			}
		}
	}
}

func (gui *ImGui) Delete() {
	gui.dev.DeleteProgram(gui.program)
	gl.DeleteTextures(1, &gui.atlas)
	gl.DeleteBuffers(1, &gui.vbo)
	gl.DeleteBuffers(1, &gui.ebo)
	gl.DeleteVertexArrays(1, &gui.vao)
}
