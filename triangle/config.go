package main

import (
	"flag"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/triangle/render"
	"github.com/vkngwrapper/triangle/report"
)

var presentModes = map[string]khr_surface.PresentMode{
	"fifo":      khr_surface.PresentModeFIFO,
	"mailbox":   khr_surface.PresentModeMailbox,
	"immediate": khr_surface.PresentModeImmediate,
}

type Config struct {
	Width  int
	Height int
	Title  string

	FramesInFlight int
	FenceTimeout   time.Duration
	Validation     bool
	PresentMode    string
	Rotation       float64

	VertexShader   string
	FragmentShader string
	PipelineCache  string

	LogLevel      string
	StatsInterval time.Duration
}

func parseConfig(args []string, output io.Writer) (Config, error) {
	var cfg Config

	flags := flag.NewFlagSet("triangle", flag.ContinueOnError)
	flags.SetOutput(output)

	flags.IntVar(&cfg.Width, "width", 800, "window width in pixels")
	flags.IntVar(&cfg.Height, "height", 600, "window height in pixels")
	flags.StringVar(&cfg.Title, "title", "Vulkan Triangle", "window title")
	flags.IntVar(&cfg.FramesInFlight, "frames-in-flight", render.DefaultFramesInFlight, "frames the CPU may prepare ahead of the GPU")
	flags.DurationVar(&cfg.FenceTimeout, "fence-timeout", time.Second, "bound on fence waits and image acquisition, 0 waits forever")
	flags.BoolVar(&cfg.Validation, "validation", true, "enable the Khronos validation layer")
	flags.StringVar(&cfg.PresentMode, "present-mode", "fifo", "preferred present mode: fifo, mailbox or immediate")
	flags.Float64Var(&cfg.Rotation, "rotation", 0, "rotation of the triangle about the view axis, in degrees")
	flags.StringVar(&cfg.VertexShader, "vert", "shaders/vert.spv", "compiled vertex shader")
	flags.StringVar(&cfg.FragmentShader, "frag", "shaders/frag.spv", "compiled fragment shader")
	flags.StringVar(&cfg.PipelineCache, "pipeline-cache", "", "pipeline cache file, empty disables")
	flags.StringVar(&cfg.LogLevel, "log-level", "info", "lowest severity logged: info, warn or error")
	flags.DurationVar(&cfg.StatsInterval, "stats-interval", 5*time.Second, "how often frame statistics are logged, 0 disables")

	if err := flags.Parse(args); err != nil {
		return cfg, err
	}
	if flags.NArg() > 0 {
		return cfg, errors.Newf("unexpected arguments: %v", flags.Args())
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.FramesInFlight < 1 {
		return errors.Newf("frames-in-flight must be at least 1, got %d", c.FramesInFlight)
	}
	if c.FenceTimeout < 0 {
		return errors.Newf("fence-timeout must not be negative, got %s", c.FenceTimeout)
	}
	if _, ok := presentModes[c.PresentMode]; !ok {
		return errors.Newf("unknown present mode %q", c.PresentMode)
	}
	if _, ok := report.ParseSeverity(c.LogLevel); !ok {
		return errors.Newf("unknown log level %q", c.LogLevel)
	}
	if c.StatsInterval < 0 {
		return errors.Newf("stats-interval must not be negative, got %s", c.StatsInterval)
	}
	return nil
}

func (c Config) presentMode() khr_surface.PresentMode {
	return presentModes[c.PresentMode]
}

func (c Config) logLevel() report.Severity {
	severity, _ := report.ParseSeverity(c.LogLevel)
	return severity
}
