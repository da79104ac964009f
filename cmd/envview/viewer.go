package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"envcube/config"
	"envcube/envmap"
	"envcube/libgfx"
	"envcube/libio"
	"envcube/libutil"
	"envcube/material"
	"envcube/shader"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/inkyblackness/imgui-go/v4"
)

type viewer struct {
	cfg      *config.Config
	log      *slog.Logger
	dev      libgfx.Device
	fetcher  *libio.Downloader
	programs *shader.Repository
	watcher  *shader.Watcher
	schedule *libutil.Scheduler

	env        *envmap.Environment
	envName    string
	atmosphere *material.AtmosphereMaterial
	blocks     *material.CameraBlocks
	cam        *Camera

	paused       bool
	sunElevation float32
	sunAzimuth   float32
	stats        libgfx.Stats
	swept        int
	shaderErr    error
}

func newViewer(cfg *config.Config, log *slog.Logger, dev libgfx.Device, fetcher *libio.Downloader) (*viewer, error) {
	v := &viewer{
		cfg:          cfg,
		log:          log,
		dev:          dev,
		fetcher:      fetcher,
		programs:     shader.NewRepository(dev, shader.RepositoryOptions{Logger: log}),
		schedule:     libutil.NewScheduler(),
		sunElevation: 0.75,
		sunAzimuth:   1.0,
		cam: &Camera{
			VerticalFov:    75,
			Exposure:       1,
			ClippingPlanes: mgl32.Vec2{0.1, 1000},
		},
	}

	blocks, err := material.NewCameraBlocks(dev)
	if err != nil {
		return nil, err
	}
	v.blocks = blocks
	v.blocks.Bind()

	v.atmosphere = material.NewAtmosphereMaterial(dev)
	v.atmosphere.SunStrength = 50
	if err := material.Compile(v.programs, v.atmosphere); err != nil {
		return nil, fmt.Errorf("compile default atmosphere: %w", err)
	}

	name := cfg.Default
	if _, ok := cfg.Environment(name); !ok && len(cfg.Environments) > 0 {
		name = cfg.Names()[0]
	}
	v.selectEnvironment(name)

	if watcher, err := shader.NewWatcher(log); err != nil {
		log.Warn("shader hot reload unavailable", "error", err)
	} else if err := watcher.Add(filepath.Join(cfg.AssetRoot, cfg.ShaderPath)); err != nil {
		log.Warn("shader hot reload unavailable", "error", err)
		watcher.Close()
	} else {
		v.watcher = watcher
	}
	v.recompile()

	v.schedule.Every(time.Duration(cfg.SweepInterval), func() {
		if n := v.programs.Sweep(); n > 0 {
			v.swept += n
			log.Debug("deleted unused programs", "count", n)
		}
	})
	v.schedule.Every(time.Duration(cfg.StatsInterval), func() {
		v.stats = dev.Stats()
		log.Debug("resources", "stats", v.stats.String(), "programs", v.programs.Len(), "downloads", fetcher.Outstanding())
	})
	v.stats = dev.Stats()
	return v, nil
}

func (v *viewer) selectEnvironment(name string) {
	entry, ok := v.cfg.Environment(name)
	if !ok {
		v.log.Warn("unknown environment", "name", name)
		return
	}
	src, err := entry.Source()
	if err != nil {
		v.log.Error("invalid environment", "name", name, "error", err)
		return
	}
	v.envName = name
	if v.env == nil {
		v.env = envmap.New(v.dev, v.fetcher, v.programs, src, envmap.Options{Size: v.cfg.Size, Logger: v.log})
	} else {
		v.env.SetSource(src)
	}
	material.AttachEnvironment(v.atmosphere, v.env.CubeMap())
}

// recompile downloads the atmosphere shader and swaps it in once it arrives.
func (v *viewer) recompile() {
	v.fetcher.Fetch(v.cfg.ShaderPath, libio.KindText, func(data []byte) {
		if data == nil {
			v.shaderErr = fmt.Errorf("%s is unavailable", v.cfg.ShaderPath)
			return
		}
		v.shaderErr = material.Recompile(v.programs, v.atmosphere, string(data))
		if v.shaderErr != nil {
			v.log.Error("atmosphere shader", "error", v.shaderErr)
			return
		}
		if v.env != nil {
			material.AttachEnvironment(v.atmosphere, v.env.CubeMap())
		}
		v.log.Info("recompiled atmosphere shader")
	})
}

func (v *viewer) update(win *glfw.Window, ctl *cameraController, gui *ImGui) {
	v.fetcher.Poll()
	v.schedule.Tick()
	if v.watcher != nil && len(v.watcher.Drain()) > 0 {
		v.recompile()
	}

	ctl.Update(win, v.cam, !gui.WantsMouse(), !gui.IO.WantCaptureKeyboard())

	fbWidth, fbHeight := win.GetFramebufferSize()
	v.cam.ViewportDimension = mgl32.Vec2{float32(fbWidth), float32(fbHeight)}
	v.cam.UpdateViewMatrix()
	v.cam.UpdateProjectionMatrix()
	v.blocks.Update(v.cam.Blocks())

	if !v.paused {
		v.atmosphere.Time += ctl.TimeDelta()
	}
	v.atmosphere.Resolution = v.cam.ViewportDimension
	v.atmosphere.SunDirection = libutil.SphericalDirection(v.sunElevation, v.sunAzimuth)
}

func (v *viewer) draw(win *glfw.Window) {
	fbWidth, fbHeight := win.GetFramebufferSize()
	v.dev.Viewport(0, 0, fbWidth, fbHeight)
	if err := material.Refresh(v.programs, v.atmosphere); err != nil {
		v.log.Error("could not refresh atmosphere program", "error", err)
	}
	if err := material.Draw(v.dev, v.atmosphere, nil); err != nil {
		v.log.Debug("skipped atmosphere draw", "error", err)
	}
}

func (v *viewer) panel() {
	imgui.SetNextWindowPosV(imgui.Vec2{X: 10, Y: 10}, imgui.ConditionFirstUseEver, imgui.Vec2{})
	imgui.Begin("Environment")
	defer imgui.End()

	if imgui.BeginCombo("Environment", v.envName) {
		for _, name := range v.cfg.Names() {
			if imgui.SelectableV(name, name == v.envName, 0, imgui.Vec2{}) && name != v.envName {
				v.selectEnvironment(name)
			}
		}
		imgui.EndCombo()
	}
	if v.env != nil {
		loaded := "loading"
		if v.env.IsLoaded() {
			loaded = "loaded"
		}
		imgui.Text(fmt.Sprintf("%v (%s)", v.env.Source(), loaded))
	}

	if imgui.Button("Recompile") {
		v.recompile()
	}
	if v.shaderErr != nil {
		imgui.PushTextWrapPos()
		imgui.Text(v.shaderErr.Error())
		imgui.PopTextWrapPos()
	}

	imgui.Checkbox("Render background", &v.atmosphere.RenderBackground)
	imgui.Checkbox("Pause", &v.paused)
	imgui.SliderFloat("Time", &v.atmosphere.Time, 0, 100)

	if imgui.CollapsingHeader("Camera") {
		imgui.SliderFloat("FOV", &v.cam.VerticalFov, 10, 180)
		imgui.SliderFloat("Exposure", &v.cam.Exposure, 0, 2)
	}

	if imgui.CollapsingHeader("Sun") {
		imgui.SliderFloat("Elevation", &v.sunElevation, 0, 3.1415)
		imgui.SliderFloat("Azimuth", &v.sunAzimuth, 0, 2*3.1415)
		imgui.SliderFloat("Strength", &v.atmosphere.SunStrength, 0, 200)
		imgui.ColorEdit3("Color", (*[3]float32)(&v.atmosphere.SunColor))
		imgui.SliderFloat("Scale height", &v.atmosphere.ScaleHeight, 0.01, 0.5)
	}

	if imgui.CollapsingHeader("Info") {
		imgui.Text(v.stats.String())
		imgui.Text(fmt.Sprintf("%d cached programs, %d deleted", v.programs.Len(), v.swept))
		imgui.Text(fmt.Sprintf("%d downloads pending", v.fetcher.Outstanding()))
	}
}

func (v *viewer) Delete() {
	if v.watcher != nil {
		v.watcher.Close()
	}
	if v.env != nil {
		v.env.Release()
	}
	v.programs.Release()
	v.blocks.Delete()
}
