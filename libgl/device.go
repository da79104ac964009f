// Package libgl implements libgfx.Device with OpenGL 4.5 direct state access.
package libgl

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"

	"envcube/libgfx"

	"github.com/go-gl/gl/v4.5-core/gl"
)

type uniformBuffer struct {
	glId uint32
	size int
}

func (buf *uniformBuffer) Id() uint32 {
	return buf.glId
}

func (buf *uniformBuffer) Size() int {
	return buf.size
}

// Device requires a current OpenGL 4.5 context with loaded function pointers.
type Device struct {
	log *slog.Logger

	quadVao uint32
	quadVbo uint32

	textures     map[uint32]*texture
	framebuffers map[uint32]*framebuffer
	programs     map[uint32]*program
	buffers      map[uint32]*uniformBuffer
}

func NewDevice(log *slog.Logger) *Device {
	if log == nil {
		log = slog.Default()
	}
	dev := &Device{
		log:          log,
		textures:     map[uint32]*texture{},
		framebuffers: map[uint32]*framebuffer{},
		programs:     map[uint32]*program{},
		buffers:      map[uint32]*uniformBuffer{},
	}

	gl.Enable(gl.TEXTURE_CUBE_MAP_SEAMLESS)

	quad := []float32{-1, -1, 1, -1, -1, 1, 1, 1}
	gl.CreateBuffers(1, &dev.quadVbo)
	gl.NamedBufferStorage(dev.quadVbo, len(quad)*4, Pointer(quad), 0)
	gl.CreateVertexArrays(1, &dev.quadVao)
	gl.EnableVertexArrayAttrib(dev.quadVao, 0)
	gl.VertexArrayAttribFormat(dev.quadVao, 0, 2, gl.FLOAT, false, 0)
	gl.VertexArrayAttribBinding(dev.quadVao, 0, 0)
	gl.VertexArrayVertexBuffer(dev.quadVao, 0, dev.quadVbo, 0, 2*4)
	setObjectLabel(gl.VERTEX_ARRAY, dev.quadVao, "quad")

	log.Info("opengl device",
		"vendor", gl.GoStr(gl.GetString(gl.VENDOR)),
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"version", gl.GoStr(gl.GetString(gl.VERSION)))
	return dev
}

func (dev *Device) texture(tex libgfx.Texture) (*texture, error) {
	if tex == nil {
		return nil, fmt.Errorf("nil texture")
	}
	t, ok := dev.textures[tex.Id()]
	if !ok {
		return nil, fmt.Errorf("texture %d does not exist", tex.Id())
	}
	return t, nil
}

func (dev *Device) CreateTexture(desc libgfx.TextureDesc) (libgfx.Texture, error) {
	tex, err := newTexture(desc)
	if err != nil {
		return nil, err
	}
	dev.textures[tex.glId] = tex
	return tex, nil
}

func (dev *Device) DeleteTexture(tex libgfx.Texture) {
	t, err := dev.texture(tex)
	if err != nil {
		return
	}
	delete(dev.textures, t.glId)
	gl.DeleteTextures(1, &t.glId)
}

func (dev *Device) UploadTexture(tex libgfx.Texture, face libgfx.CubeFace, width, height, channels int, data any) error {
	t, err := dev.texture(tex)
	if err != nil {
		return err
	}
	if width != t.desc.Width || height != t.desc.Height {
		return fmt.Errorf("upload of %dx%d into %dx%d texture %d", width, height, t.desc.Width, t.desc.Height, t.glId)
	}
	if channels < 1 || channels > 4 {
		return fmt.Errorf("invalid channel count %d", channels)
	}
	glType, n, err := getGlType(data)
	if err != nil {
		return err
	}
	if n < width*height*channels {
		return fmt.Errorf("upload needs %d values, got %d", width*height*channels, n)
	}
	layer, err := t.layer(face)
	if err != nil {
		return err
	}
	t.load(layer, width, height, pixelFormat(channels), glType, data)
	return nil
}

func (dev *Device) ReadTexture(tex libgfx.Texture, face libgfx.CubeFace) ([]float32, error) {
	t, err := dev.texture(tex)
	if err != nil {
		return nil, err
	}
	layer, err := t.layer(face)
	if err != nil {
		return nil, err
	}
	w, h := t.desc.Width, t.desc.Height
	buf := make([]float32, w*h*4)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.GetTextureSubImage(t.glId, 0, 0, 0, int32(layer), int32(w), int32(h), 1, gl.RGBA, gl.FLOAT, int32(len(buf)*4), Pointer(buf))
	return buf, nil
}

func (dev *Device) CreateFramebuffer() (libgfx.Framebuffer, error) {
	fb := newFramebuffer()
	dev.framebuffers[fb.glId] = fb
	return fb, nil
}

func (dev *Device) DeleteFramebuffer(fb libgfx.Framebuffer) {
	if fb == nil {
		return
	}
	if f, ok := dev.framebuffers[fb.Id()]; ok {
		delete(dev.framebuffers, f.glId)
		f.delete()
	}
}

func (dev *Device) AttachColor(fb libgfx.Framebuffer, tex libgfx.Texture) error {
	f, ok := dev.framebuffers[fb.Id()]
	if !ok {
		return fmt.Errorf("framebuffer %d does not exist", fb.Id())
	}
	t, err := dev.texture(tex)
	if err != nil {
		return err
	}
	if t.desc.Kind != libgfx.Texture2D {
		return fmt.Errorf("an attachment is framebuffer incomplete: texture %d is not 2d", t.glId)
	}
	return f.attach(t)
}

func (dev *Device) CompileProgram(src libgfx.ProgramSource) (libgfx.Program, error) {
	p, err := linkProgram(src, dev.log)
	if err != nil {
		return nil, err
	}
	dev.programs[p.glId] = p
	return p, nil
}

func (dev *Device) DeleteProgram(p libgfx.Program) {
	if p == nil {
		return
	}
	if prog, ok := dev.programs[p.Id()]; ok {
		delete(dev.programs, prog.glId)
		gl.DeleteProgram(prog.glId)
	}
}

func (dev *Device) UseProgram(p libgfx.Program) {
	if p == nil {
		gl.UseProgram(0)
		return
	}
	gl.UseProgram(p.Id())
}

func (dev *Device) SetUniform(p libgfx.Program, loc libgfx.UniformLocation, value any) {
	if !loc.Present() || p == nil {
		return
	}
	if err := setProgramUniformAny(p.Id(), int32(loc), value); err != nil {
		dev.log.Error("set uniform", "program", p.Id(), "location", int(loc), "error", err)
	}
}

func (dev *Device) BindUniformBlock(p libgfx.Program, block, bindPoint uint32) {
	gl.UniformBlockBinding(p.Id(), block, bindPoint)
}

func (dev *Device) BindTexture(unit int, tex libgfx.Texture) {
	var id uint32
	if tex != nil {
		id = tex.Id()
	}
	gl.BindTextureUnit(uint32(unit), id)
}

func (dev *Device) CreateUniformBuffer(size int) (libgfx.UniformBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid uniform buffer size %d", size)
	}
	buf := &uniformBuffer{size: size}
	gl.CreateBuffers(1, &buf.glId)
	gl.NamedBufferStorage(buf.glId, size, nil, gl.DYNAMIC_STORAGE_BIT)
	dev.buffers[buf.glId] = buf
	return buf, nil
}

func (dev *Device) WriteUniformBuffer(buf libgfx.UniformBuffer, offset int, data any) {
	b, ok := dev.buffers[buf.Id()]
	if !ok {
		return
	}
	var w bytes.Buffer
	if err := binary.Write(&w, binary.LittleEndian, data); err != nil {
		dev.log.Error("write uniform buffer", "buffer", b.glId, "error", err)
		return
	}
	if offset < 0 || offset+w.Len() > b.size {
		dev.log.Error("uniform buffer write out of range", "buffer", b.glId, "offset", offset, "size", w.Len())
		return
	}
	gl.NamedBufferSubData(b.glId, offset, w.Len(), Pointer(w.Bytes()))
}

func (dev *Device) BindUniformBuffer(bindPoint uint32, buf libgfx.UniformBuffer) {
	var id uint32
	if buf != nil {
		id = buf.Id()
	}
	gl.BindBufferBase(gl.UNIFORM_BUFFER, bindPoint, id)
}

func (dev *Device) DeleteUniformBuffer(buf libgfx.UniformBuffer) {
	if buf == nil {
		return
	}
	if b, ok := dev.buffers[buf.Id()]; ok {
		delete(dev.buffers, b.glId)
		gl.DeleteBuffers(1, &b.glId)
	}
}

func (dev *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (dev *Device) DrawQuad(fb libgfx.Framebuffer) {
	var id uint32
	if fb != nil {
		id = fb.Id()
	}
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, id)
	gl.BindVertexArray(dev.quadVao)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

func (dev *Device) CopyToCubeFace(src libgfx.Framebuffer, dst libgfx.Texture, face libgfx.CubeFace, width, height int) error {
	f, ok := dev.framebuffers[src.Id()]
	if !ok || f.color == nil {
		return fmt.Errorf("read framebuffer has no color attachment")
	}
	if err := f.check(gl.READ_FRAMEBUFFER); err != nil {
		return err
	}
	t, err := dev.texture(dst)
	if err != nil {
		return err
	}
	if t.desc.Kind != libgfx.TextureCube {
		return fmt.Errorf("texture %d is not a cube map", t.glId)
	}
	if width > t.desc.Width || height > t.desc.Height || width > f.color.desc.Width || height > f.color.desc.Height {
		return fmt.Errorf("copy region %dx%d out of bounds", width, height)
	}
	layer, err := t.layer(face)
	if err != nil {
		return err
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, f.glId)
	gl.CopyTextureSubImage3D(t.glId, 0, 0, 0, int32(layer), 0, 0, int32(width), int32(height))
	return nil
}

func (dev *Device) Stats() libgfx.Stats {
	s := libgfx.Stats{
		Textures:       len(dev.textures),
		Framebuffers:   len(dev.framebuffers),
		Programs:       len(dev.programs),
		UniformBuffers: len(dev.buffers),
	}
	for _, t := range dev.textures {
		s.TextureBytes += t.desc.Bytes()
	}
	return s
}

// Delete frees the objects owned by the device itself.
func (dev *Device) Delete() {
	gl.DeleteVertexArrays(1, &dev.quadVao)
	gl.DeleteBuffers(1, &dev.quadVbo)
}
