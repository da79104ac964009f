package libgl

import (
	"fmt"

	"github.com/go-gl/gl/v4.5-core/gl"
)

type framebuffer struct {
	glId  uint32
	color *texture
}

func (fb *framebuffer) Id() uint32 {
	return fb.glId
}

func newFramebuffer() *framebuffer {
	fb := &framebuffer{}
	gl.CreateFramebuffers(1, &fb.glId)
	return fb
}

func (fb *framebuffer) attach(tex *texture) error {
	fb.color = tex
	gl.NamedFramebufferTexture(fb.glId, gl.COLOR_ATTACHMENT0, tex.glId, 0)
	attachment := uint32(gl.COLOR_ATTACHMENT0)
	gl.NamedFramebufferDrawBuffers(fb.glId, 1, &attachment)
	gl.NamedFramebufferReadBuffer(fb.glId, gl.COLOR_ATTACHMENT0)
	return fb.check(gl.DRAW_FRAMEBUFFER)
}

// target must be GL_DRAW_FRAMEBUFFER, GL_READ_FRAMEBUFFER or GL_FRAMEBUFFER
func (fb *framebuffer) check(target uint32) error {
	status := gl.CheckNamedFramebufferStatus(fb.glId, target)
	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return nil
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return fmt.Errorf("an attachment is framebuffer incomplete (GL_FRAMEBUFFER_INCOMPLETE_ATTACHMENT)")
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return fmt.Errorf("the framebuffer has no attachments (GL_FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT)")
	case gl.FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER:
		return fmt.Errorf("the object type of a draw attachment is none (GL_FRAMEBUFFER_INCOMPLETE_DRAW_BUFFER)")
	case gl.FRAMEBUFFER_INCOMPLETE_READ_BUFFER:
		return fmt.Errorf("the object type of the read attachment is none (GL_FRAMEBUFFER_INCOMPLETE_READ_BUFFER)")
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return fmt.Errorf("the combination of internal formats of the attachments is not supported (GL_FRAMEBUFFER_UNSUPPORTED)")
	case gl.FRAMEBUFFER_INCOMPLETE_MULTISAMPLE:
		return fmt.Errorf("the attachments have different sampling (GL_FRAMEBUFFER_INCOMPLETE_MULTISAMPLE)")
	case gl.FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS:
		return fmt.Errorf("FRAMEBUFFER_INCOMPLETE_LAYER_TARGETS")
	}
	return fmt.Errorf("unknown framebuffer status: %X", status)
}

func (fb *framebuffer) delete() {
	gl.DeleteFramebuffers(1, &fb.glId)
	fb.glId = 0
	fb.color = nil
}
