package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/loov/hrtime"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"

	"github.com/vkngwrapper/triangle/render"
	"github.com/vkngwrapper/triangle/report"
)

type application struct {
	cfg    Config
	logger *report.Logger
	window *sdl.Window
}

func (app *application) run() error {
	if err := sdl.Init(sdl.INIT_VIDEO); err != nil {
		return errors.Wrap(err, "init sdl")
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(app.cfg.Title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		int32(app.cfg.Width), int32(app.cfg.Height), sdl.WINDOW_SHOWN|sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	defer window.Destroy()
	app.window = window

	globalDriver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return errors.Wrap(err, "load vulkan")
	}

	shaders, err := loadShaders(app.cfg.VertexShader, app.cfg.FragmentShader)
	if err != nil {
		return err
	}

	instance, err := render.NewInstance(globalDriver, render.InstanceOptions{
		ApplicationName: app.cfg.Title,
		Extensions:      window.VulkanGetInstanceExtensions(),
		Validation:      app.cfg.Validation,
		Sink:            app.logger,
	})
	if err != nil {
		return err
	}
	defer instance.Destroy()

	err = instance.AttachSurface(func(handle core1_0.Instance, surfaces khr_surface.ExtensionDriver) (khr_surface.Surface, error) {
		return vkng_sdl2.CreateSurface(handle, surfaces, window)
	})
	if err != nil {
		return err
	}

	renderer, err := render.NewRenderer(instance, render.Config{
		FramesInFlight:    app.cfg.FramesInFlight,
		FenceTimeout:      app.cfg.FenceTimeout,
		PresentMode:       app.cfg.presentMode(),
		ClearColor:        [4]float32{0, 0, 0, 1},
		PipelineCachePath: app.cfg.PipelineCache,
		Shaders:           shaders,
		Vertices:          render.Triangle,
		Camera:            mgl32.HomogRotate3DZ(mgl32.DegToRad(float32(app.cfg.Rotation))),
	}, app.drawableSize, app.logger)
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	return app.mainLoop(renderer)
}

func (app *application) drawableSize() core1_0.Extent2D {
	if app.window.GetFlags()&sdl.WINDOW_MINIMIZED != 0 {
		return core1_0.Extent2D{}
	}
	w, h := app.window.VulkanGetDrawableSize()
	return core1_0.Extent2D{Width: int(w), Height: int(h)}
}

func (app *application) mainLoop(renderer *render.Renderer) error {
	stats := newFrameStats(app.cfg.StatsInterval, hrtime.Now())

	for {
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch e := event.(type) {
			case *sdl.QuitEvent:
				report.Logf(app.logger, report.Info, "closing after %d frames and %d swapchain builds", renderer.Presented(), renderer.Rebuilds())
				return nil
			case *sdl.WindowEvent:
				switch e.Event {
				case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED,
					sdl.WINDOWEVENT_MINIMIZED, sdl.WINDOWEVENT_RESTORED:
					renderer.Resize()
				}
			}
		}

		start := hrtime.Now()
		err := renderer.DrawFrame()
		if err != nil {
			if !report.Recoverable(err) {
				return err
			}
			report.Logf(app.logger, report.SeverityOf(err), "%v", err)
			continue
		}

		if renderer.Paused() {
			sdl.Delay(16)
			continue
		}

		if summary, ok := stats.observe(hrtime.Now(), hrtime.Since(start)); ok {
			report.Logf(app.logger, report.Info, "%s, %d swapchain builds", summary, renderer.Rebuilds())
		}
	}
}

func main() {
	runtime.LockOSThread()

	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := report.NewLogger(os.Stderr, cfg.logLevel())
	report.Logf(logger, report.Info, "session %s", logger.Session())

	app := &application{cfg: cfg, logger: logger}
	err = app.run()
	if err != nil {
		logger.Log(report.Fatal, fmt.Sprintf("%s: %+v", report.Classify(err), err))
	}
}
