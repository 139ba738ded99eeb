package render

import (
	"encoding/binary"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/triangle/report"
)

type Config struct {
	FramesInFlight int
	// FenceTimeout bounds every fence wait and image acquire; zero waits forever.
	FenceTimeout      time.Duration
	PresentMode       khr_surface.PresentMode
	ClearColor        [4]float32
	PipelineCachePath string
	Shaders           ShaderCode
	Vertices          []Vertex
	Camera            mgl32.Mat4
}

// Renderer owns the complete object graph for drawing the scene to a surface.
type Renderer struct {
	instance    Instance
	physical    *PhysicalDevice
	indices     DeviceIndices
	props       DeviceProperties
	memoryTypes []MemoryType
	cfg         Config
	drawable    func() core1_0.Extent2D
	sink        report.Sink

	device    Device
	cache     *PipelineCache
	scene     *Scene
	pool      *CommandPool
	frames    *Frames
	presenter *Presenter
	target    *Target

	// scope holds everything created before the target, in creation order.
	scope Scope

	stale     bool
	paused    bool
	rebuilds  int
	presented int
}

// NewRenderer selects a physical device and builds everything needed to
// draw. drawable reports the window's current size in pixels.
func NewRenderer(instance Instance, cfg Config, drawable func() core1_0.Extent2D, sink report.Sink) (*Renderer, error) {
	r := &Renderer{
		instance: instance,
		cfg:      cfg,
		drawable: drawable,
		sink:     sink,
	}

	var err error
	r.physical, err = SelectPhysicalDevice(instance)
	if err != nil {
		return nil, err
	}

	r.indices, err = ResolveIndices(instance, r.physical, true)
	if err != nil {
		return nil, err
	}

	r.props, err = instance.Properties(r.physical)
	if err != nil {
		return nil, errors.Wrapf(err, "read properties of %s", r.physical.Name)
	}
	r.memoryTypes = instance.MemoryTypes(r.physical)

	report.Logf(sink, report.Info, "using %s (vendor 0x%x, device 0x%x), queues graphics=%s compute=%s present=%s",
		r.physical.Name, r.props.VendorID, r.props.DeviceID,
		r.indices.Graphics, r.indices.Compute, r.indices.Present)

	if size := binary.Size(cfg.Camera); r.props.MaxPushConstantsSize > 0 && size > r.props.MaxPushConstantsSize {
		return nil, report.Capability("%s allows %d bytes of push constants, camera needs %d",
			r.physical.Name, r.props.MaxPushConstantsSize, size)
	}

	err = r.build()
	if err != nil {
		// Nothing was drawn, so the cache on disk is left as it was.
		r.release(false)
		return nil, err
	}

	return r, nil
}

func (r *Renderer) build() error {
	device, err := r.instance.CreateDevice(r.physical, r.indices)
	if err != nil {
		return errors.Wrap(err, "create logical device")
	}
	r.device = Own[Device](&r.scope, device)

	initialCache := LoadPipelineCache(r.cfg.PipelineCachePath, r.props, r.sink)
	r.cache, err = r.device.CreatePipelineCache(initialCache)
	if err != nil && initialCache != nil {
		report.Logf(r.sink, report.Warn, "discarding pipeline cache data: %v", err)
		r.cache, err = r.device.CreatePipelineCache(nil)
	}
	if err != nil {
		return errors.Wrap(err, "create pipeline cache")
	}
	Own(&r.scope, r.cache)

	r.scene, err = NewScene(r.device, r.memoryTypes, r.cfg.Shaders, r.cfg.Vertices, r.cfg.Camera)
	if err != nil {
		return errors.Wrap(err, "build scene")
	}
	Own(&r.scope, r.scene)

	r.pool, err = r.device.CreateCommandPool(r.indices.Graphics.Index)
	if err != nil {
		return errors.Wrap(err, "create command pool")
	}
	Own(&r.scope, r.pool)

	r.frames, err = NewFrames(r.device, r.cfg.FramesInFlight)
	if err != nil {
		return err
	}
	Own(&r.scope, r.frames)

	r.presenter = NewPresenter(r.device,
		r.device.Queue(r.indices.Graphics.Index),
		r.device.Queue(r.indices.Present.Index),
		r.frames, r.cfg.FenceTimeout)

	r.stale = true
	return r.Rebuild()
}

func (r *Renderer) Indices() DeviceIndices {
	return r.indices
}

func (r *Renderer) PhysicalDevice() *PhysicalDevice {
	return r.physical
}

// Target is the current swapchain resource set; nil while paused before the
// first successful build.
func (r *Renderer) Target() *Target {
	return r.target
}

// Paused is true while the drawable has no area.
func (r *Renderer) Paused() bool {
	return r.paused
}

// Rebuilds counts swapchain resource sets built, the first one included.
func (r *Renderer) Rebuilds() int {
	return r.rebuilds
}

// Presented counts frames handed to the presentation engine.
func (r *Renderer) Presented() int {
	return r.presented
}

// Resize marks the swapchain resource set stale; it is rebuilt before the
// next frame.
func (r *Renderer) Resize() {
	r.stale = true
}

// Rebuild replaces the swapchain resource set. The old set is destroyed only
// after its replacement exists. While the drawable has no area nothing is
// built and the renderer stays paused.
func (r *Renderer) Rebuild() error {
	drawable := r.drawable()
	if drawable.Width <= 0 || drawable.Height <= 0 {
		r.pause()
		return nil
	}

	err := r.device.WaitIdle()
	if err != nil {
		return errors.Wrap(err, "wait for device idle before rebuild")
	}

	surface, err := r.instance.SurfaceDetails(r.physical)
	if err != nil {
		return errors.Wrap(err, "query surface")
	}
	if caps := surface.Capabilities; caps != nil && caps.CurrentExtent.Width == 0 && caps.CurrentExtent.Height == 0 {
		r.pause()
		return nil
	}

	target, err := NewTarget(r.device, TargetParams{
		Indices:     r.indices,
		Surface:     surface,
		Drawable:    drawable,
		PresentMode: r.cfg.PresentMode,
		MemoryTypes: r.memoryTypes,
		Scene:       r.scene,
		Cache:       r.cache,
		Pool:        r.pool,
		ClearColor:  r.cfg.ClearColor,
	}, r.target)
	if err != nil {
		return errors.Wrap(err, "build swapchain resources")
	}

	r.target.Destroy()
	r.target = target
	r.presenter.Reset(target.ImageCount())

	r.stale = false
	r.paused = false
	r.rebuilds++

	report.Logf(r.sink, report.Info, "swapchain ready: %d images %dx%d", target.ImageCount(), target.Extent.Width, target.Extent.Height)
	return nil
}

func (r *Renderer) pause() {
	if !r.paused {
		report.Logf(r.sink, report.Info, "drawable has no area, pausing")
	}
	r.paused = true
	r.stale = true
}

// DrawFrame runs one iteration of the presentation loop. A stale swapchain
// is rebuilt in place. A timeout is returned and can be retried; any other
// error is fatal to the renderer.
func (r *Renderer) DrawFrame() error {
	if r.stale {
		if err := r.Rebuild(); err != nil {
			return err
		}
		if r.paused {
			return nil
		}
	}

	err := r.presenter.Draw(r.target)
	switch {
	case err == nil:
		r.presented++
		return nil
	case report.IsStale(err):
		report.Logf(r.sink, report.Info, "swapchain stale: %v", err)
		r.stale = true
		return r.Rebuild()
	default:
		return err
	}
}

// Destroy waits for the device to go idle, writes back the pipeline cache
// and releases everything in reverse order of creation.
func (r *Renderer) Destroy() {
	if r == nil {
		return
	}
	r.release(true)
}

func (r *Renderer) release(saveCache bool) {
	if r.device != nil {
		if err := r.device.WaitIdle(); err != nil {
			report.Logf(r.sink, report.Error, "wait for device idle: %v", err)
		}
	}

	r.target.Destroy()
	r.target = nil

	if saveCache && r.cache != nil && r.cfg.PipelineCachePath != "" {
		data, err := r.device.PipelineCacheData(r.cache)
		if err == nil {
			err = SavePipelineCache(r.cfg.PipelineCachePath, data)
		}
		if err != nil {
			report.Logf(r.sink, report.Warn, "save pipeline cache: %v", err)
		}
	}

	r.scope.Destroy()
	r.cache = nil
	r.device = nil
}
