package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"runtime"
	"unsafe"

	"envcube/config"
	"envcube/libgl"
	"envcube/libio"

	"github.com/go-gl/gl/v4.5-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/inkyblackness/imgui-go/v4"
)

var Arguments struct {
	ConfigPath                 string
	Verbose                    bool
	EnableCompatibilityProfile bool
}

func main() {
	flag.StringVar(&Arguments.ConfigPath, "config", "envcube.toml", "configuration file")
	flag.BoolVar(&Arguments.Verbose, "v", false, "debug logging")
	flag.BoolVar(&Arguments.EnableCompatibilityProfile, "enable-compatibility-profile", Arguments.EnableCompatibilityProfile, "")
	flag.Parse()

	cfg, err := config.Load(Arguments.ConfigPath)
	check(err)
	level := cfg.Level()
	if Arguments.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	runtime.LockOSThread()
	err = glfw.Init()
	check(err)
	defer glfw.Terminate()

	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 5)
	glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	if Arguments.EnableCompatibilityProfile {
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCompatProfile)
	} else {
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	}
	ctx, err := glfw.CreateWindow(1600, 900, "Environment", nil, nil)
	check(err)
	ctx.MakeContextCurrent()
	glfw.SwapInterval(1)

	err = gl.InitWithProcAddrFunc(func(name string) unsafe.Pointer {
		addr := glfw.GetProcAddress(name)
		if addr == nil {
			return unsafe.Pointer(uintptr(0xffff_ffff_ffff_ffff))
		}
		return addr
	})
	check(err)

	libgl.EnableDebugOutput(logger)
	dev := libgl.NewDevice(logger)
	defer dev.Delete()

	fetcher := libio.NewDownloader(os.DirFS(cfg.AssetRoot), libio.DownloaderOptions{Logger: logger})
	defer fetcher.Close()

	gui, err := NewImGui(dev, ctx)
	check(err)
	defer gui.Delete()

	app, err := newViewer(cfg, logger, dev, fetcher)
	check(err)
	defer app.Delete()

	ctl := newCameraController(ctx)

	for !ctx.ShouldClose() {
		glfw.PollEvents()
		app.update(ctx, ctl, gui)

		gl.ClearColor(0, 0, 0, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		app.draw(ctx)

		imgui.NewFrame()
		app.panel()
		gui.Draw(ctx)

		ctx.SwapBuffers()
	}
}

func check(err error) {
	if err != nil {
		log.Panic(err)
	}
}
