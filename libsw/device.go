// Package libsw implements libgfx.Device on the CPU.
//
// Programs run their Go kernel for every covered pixel, textures are kept as
// float32 RGBA in memory. It is slow but needs no context, which makes it
// the device of choice for tests and headless conversion.
package libsw

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"

	"envcube/libgfx"

	"github.com/go-gl/mathgl/mgl32"
)

type framebuffer struct {
	glId  uint32
	color *texture
}

func (fb *framebuffer) Id() uint32 {
	return fb.glId
}

type uniformBuffer struct {
	glId uint32
	data []byte
}

func (buf *uniformBuffer) Id() uint32 {
	return buf.glId
}

func (buf *uniformBuffer) Size() int {
	return len(buf.data)
}

type Device struct {
	log    *slog.Logger
	nextId uint32

	textures     map[uint32]*texture
	framebuffers map[uint32]*framebuffer
	programs     map[uint32]*program
	buffers      map[uint32]*uniformBuffer

	units      map[int]*texture
	bindPoints map[uint32]*uniformBuffer
	current    *program
	viewport   [4]int
	draws      int
}

var _ libgfx.Device = (*Device)(nil)

func NewDevice(log *slog.Logger) *Device {
	if log == nil {
		log = slog.Default()
	}
	return &Device{
		log:          log.With("device", "software"),
		textures:     map[uint32]*texture{},
		framebuffers: map[uint32]*framebuffer{},
		programs:     map[uint32]*program{},
		buffers:      map[uint32]*uniformBuffer{},
		units:        map[int]*texture{},
		bindPoints:   map[uint32]*uniformBuffer{},
	}
}

func (dev *Device) genId() uint32 {
	dev.nextId++
	return dev.nextId
}

func (dev *Device) CreateTexture(desc libgfx.TextureDesc) (libgfx.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	tex := newTexture(dev.genId(), desc)
	dev.textures[tex.glId] = tex
	return tex, nil
}

func (dev *Device) DeleteTexture(tex libgfx.Texture) {
	if tex == nil {
		return
	}
	delete(dev.textures, tex.Id())
	for unit, bound := range dev.units {
		if bound.glId == tex.Id() {
			delete(dev.units, unit)
		}
	}
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
	dst, err := t.layer(face)
	if err != nil {
		return err
	}

	n := width * height * channels
	var at func(i int) float32
	switch pix := data.(type) {
	case []float32:
		if len(pix) < n {
			return fmt.Errorf("upload needs %d values, got %d", n, len(pix))
		}
		at = func(i int) float32 { return pix[i] }
	case []uint8:
		if len(pix) < n {
			return fmt.Errorf("upload needs %d values, got %d", n, len(pix))
		}
		at = func(i int) float32 { return float32(pix[i]) / 255 }
	default:
		return fmt.Errorf("unsupported pixel type %T", data)
	}

	for i := 0; i < width*height; i++ {
		c := mgl32.Vec4{0, 0, 0, 1}
		for k := 0; k < channels; k++ {
			c[k] = at(i*channels + k)
		}
		t.store(dst, i, c)
	}
	t.markWritten(face)
	return nil
}

func (dev *Device) ReadTexture(tex libgfx.Texture, face libgfx.CubeFace) ([]float32, error) {
	t, err := dev.texture(tex)
	if err != nil {
		return nil, err
	}
	src, err := t.layer(face)
	if err != nil {
		return nil, err
	}
	return append([]float32(nil), src...), nil
}

func (dev *Device) CreateFramebuffer() (libgfx.Framebuffer, error) {
	fb := &framebuffer{glId: dev.genId()}
	dev.framebuffers[fb.glId] = fb
	return fb, nil
}

func (dev *Device) DeleteFramebuffer(fb libgfx.Framebuffer) {
	if fb == nil {
		return
	}
	delete(dev.framebuffers, fb.Id())
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
	f.color = t
	return nil
}

func (dev *Device) CompileProgram(src libgfx.ProgramSource) (libgfx.Program, error) {
	p, err := compile(dev.genId(), src)
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
	delete(dev.programs, p.Id())
	if dev.current != nil && dev.current.glId == p.Id() {
		dev.current = nil
	}
}

func (dev *Device) UseProgram(p libgfx.Program) {
	if p == nil {
		dev.current = nil
		return
	}
	dev.current = dev.programs[p.Id()]
}

func (dev *Device) SetUniform(p libgfx.Program, loc libgfx.UniformLocation, value any) {
	if !loc.Present() || p == nil {
		return
	}
	prog, ok := dev.programs[p.Id()]
	if !ok || int(loc) >= len(prog.uniforms) {
		dev.log.Debug("uniform location out of range", "program", p.Id(), "location", int(loc))
		return
	}
	prog.values[prog.uniforms[loc]] = value
}

func (dev *Device) BindUniformBlock(p libgfx.Program, block, bindPoint uint32) {
	if prog, ok := dev.programs[p.Id()]; ok {
		prog.bindings[block] = bindPoint
	}
}

func (dev *Device) BindTexture(unit int, tex libgfx.Texture) {
	if tex == nil {
		delete(dev.units, unit)
		return
	}
	if t, ok := dev.textures[tex.Id()]; ok {
		dev.units[unit] = t
	}
}

func (dev *Device) CreateUniformBuffer(size int) (libgfx.UniformBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid uniform buffer size %d", size)
	}
	buf := &uniformBuffer{glId: dev.genId(), data: make([]byte, size)}
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
	if offset < 0 || offset+w.Len() > len(b.data) {
		dev.log.Error("uniform buffer write out of range", "buffer", b.glId, "offset", offset, "size", w.Len())
		return
	}
	copy(b.data[offset:], w.Bytes())
}

func (dev *Device) BindUniformBuffer(bindPoint uint32, buf libgfx.UniformBuffer) {
	if buf == nil {
		delete(dev.bindPoints, bindPoint)
		return
	}
	if b, ok := dev.buffers[buf.Id()]; ok {
		dev.bindPoints[bindPoint] = b
	}
}

func (dev *Device) DeleteUniformBuffer(buf libgfx.UniformBuffer) {
	if buf == nil {
		return
	}
	delete(dev.buffers, buf.Id())
	for point, bound := range dev.bindPoints {
		if bound.glId == buf.Id() {
			delete(dev.bindPoints, point)
		}
	}
}

func (dev *Device) Viewport(x, y, width, height int) {
	dev.viewport = [4]int{x, y, width, height}
}

func (dev *Device) DrawQuad(fb libgfx.Framebuffer) {
	dev.draws++
	if dev.current == nil || fb == nil {
		return
	}
	f, ok := dev.framebuffers[fb.Id()]
	if !ok || f.color == nil {
		return
	}

	target := f.color
	pix := target.layers[0]
	vx, vy, vw, vh := dev.viewport[0], dev.viewport[1], dev.viewport[2], dev.viewport[3]
	if vw <= 0 || vh <= 0 {
		return
	}
	ctx := shadeContext{dev: dev, prog: dev.current}
	for y := max(vy, 0); y < min(vy+vh, target.desc.Height); y++ {
		for x := max(vx, 0); x < min(vx+vw, target.desc.Width); x++ {
			uv := mgl32.Vec2{
				(float32(x-vx) + 0.5) / float32(vw),
				(float32(y-vy) + 0.5) / float32(vh),
			}
			target.store(pix, y*target.desc.Width+x, dev.current.kernel.Shade(ctx, uv))
		}
	}
	target.markWritten(0)
}

func (dev *Device) CopyToCubeFace(src libgfx.Framebuffer, dst libgfx.Texture, face libgfx.CubeFace, width, height int) error {
	f, ok := dev.framebuffers[src.Id()]
	if !ok || f.color == nil {
		return fmt.Errorf("read framebuffer has no color attachment")
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
	dstPix, err := t.layer(face)
	if err != nil {
		return err
	}
	srcPix := f.color.layers[0]
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t.store(dstPix, y*t.desc.Width+x, texel(srcPix, f.color.desc.Width, x, y))
		}
	}
	t.markWritten(face)
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

// FaceWrites reports how often each face of tex was written by an upload,
// a draw or a copy. 2d textures count in the first element.
func (dev *Device) FaceWrites(tex libgfx.Texture) [6]int {
	if t, ok := dev.textures[tex.Id()]; ok {
		return t.writes
	}
	return [6]int{}
}

// Alive reports whether p has not been deleted.
func (dev *Device) Alive(p libgfx.Program) bool {
	_, ok := dev.programs[p.Id()]
	return ok
}

func (dev *Device) Draws() int {
	return dev.draws
}
