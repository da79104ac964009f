package main

import (
	"fmt"
	"log/slog"
	"runtime"
	"unsafe"

	"envcube/libgfx"
	"envcube/libgl"
	"envcube/libsw"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// openDevice returns the requested device and a function that destroys it.
// OpenGL falls back to the software device when no context can be created.
func openDevice(i impl, log *slog.Logger) (libgfx.Device, func()) {
	switch i {
	case implGl:
		dev, release, err := openGlDevice(log)
		if err == nil {
			if !cargs.quiet {
				fmt.Println("Using OpenGL implementation")
			}
			return dev, release
		}
		softerr(err)
		if !cargs.quiet {
			fmt.Println("Falling back to software implementation")
		}
		fallthrough
	default:
		if !cargs.quiet {
			fmt.Println("Using software implementation")
		}
		return libsw.NewDevice(log), func() {}
	}
}

func openGlDevice(log *slog.Logger) (libgfx.Device, func(), error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("init glfw: %w", err)
	}
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	ctx, err := glfw.CreateWindow(64, 64, "envconv", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("create context: %w", err)
	}
	ctx.MakeContextCurrent()

	err = gl.InitWithProcAddrFunc(func(name string) unsafe.Pointer {
		addr := glfw.GetProcAddress(name)
		if addr == nil {
			return unsafe.Pointer(uintptr(0xffff_ffff_ffff_ffff))
		}
		return addr
	})
	if err != nil {
		ctx.Destroy()
		glfw.Terminate()
		return nil, nil, fmt.Errorf("load opengl: %w", err)
	}

	libgl.EnableDebugOutput(log)
	dev := libgl.NewDevice(log)
	return dev, func() {
		dev.Delete()
		ctx.Destroy()
		glfw.Terminate()
	}, nil
}
