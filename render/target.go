package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

// DepthFormat is the depth attachment format.
const DepthFormat = core1_0.FormatD32SignedFloat

type TargetParams struct {
	Indices     DeviceIndices
	Surface     SurfaceDetails
	Drawable    core1_0.Extent2D
	PresentMode khr_surface.PresentMode
	MemoryTypes []MemoryType
	Scene       *Scene
	Cache       *PipelineCache
	Pool        *CommandPool
	ClearColor  [4]float32
}

// Target is the swapchain resource set: a swapchain and, per swapchain image,
// one view, one framebuffer and one pre-recorded command buffer. Everything
// that depends on the swapchain's format or extent is rebuilt with it.
type Target struct {
	Swapchain      *Swapchain
	Format         khr_surface.SurfaceFormat
	Extent         core1_0.Extent2D
	Images         []*Image
	Views          []*ImageView
	Depth          *BoundImage
	DepthView      *ImageView
	RenderPass     *RenderPass
	Pipeline       *Pipeline
	Framebuffers   []*Framebuffer
	CommandBuffers []*CommandBuffer

	scope Scope
}

func (t *Target) ImageCount() int {
	if t == nil {
		return 0
	}
	return len(t.Images)
}

func (t *Target) Destroy() {
	if t != nil {
		t.scope.Destroy()
	}
}

// NewTarget builds a complete resource set. When old is given its swapchain
// is handed to the driver for reuse; old stays valid and is the caller's to
// destroy once the new target exists.
func NewTarget(device Device, params TargetParams, old *Target) (*Target, error) {
	if params.Scene == nil || params.Pool == nil {
		return nil, errors.New("target needs a scene and a command pool")
	}

	info, err := NegotiateSwapchain(params.Surface, params.Indices, params.Drawable, params.PresentMode)
	if err != nil {
		return nil, err
	}

	var scope Scope
	defer scope.Destroy()

	var oldSwapchain *Swapchain
	if old != nil {
		oldSwapchain = old.Swapchain
	}

	swapchain, err := device.CreateSwapchain(info, oldSwapchain)
	if err != nil {
		return nil, errors.Wrap(err, "create swapchain")
	}
	Own(&scope, swapchain)

	target := &Target{
		Swapchain: swapchain,
		Format:    info.Format,
		Extent:    info.Extent,
	}

	target.Images, err = device.SwapchainImages(swapchain)
	if err != nil {
		return nil, errors.Wrap(err, "get swapchain images")
	}

	for _, image := range target.Images {
		view, err := device.CreateImageView(image, info.Format.Format, core1_0.ImageAspectColor)
		if err != nil {
			return nil, errors.Wrap(err, "create swapchain image view")
		}
		target.Views = append(target.Views, Own(&scope, view))
	}

	target.Depth, err = NewBoundImage(device, params.MemoryTypes, ImageInfo{
		Width:  info.Extent.Width,
		Height: info.Extent.Height,
		Format: DepthFormat,
		Tiling: core1_0.ImageTilingOptimal,
		Usage:  core1_0.ImageUsageDepthStencilAttachment,
	}, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, errors.Wrap(err, "depth image")
	}
	Own(&scope, target.Depth)

	target.DepthView, err = device.CreateImageView(target.Depth.Image, DepthFormat, core1_0.ImageAspectDepth)
	if err != nil {
		return nil, errors.Wrap(err, "create depth image view")
	}
	Own(&scope, target.DepthView)

	target.RenderPass, err = device.CreateRenderPass(RenderPassInfo{
		ColorFormat: info.Format.Format,
		DepthFormat: DepthFormat,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create render pass")
	}
	Own(&scope, target.RenderPass)

	target.Pipeline, err = device.CreateGraphicsPipeline(PipelineInfo{
		Vertex:     params.Scene.Vertex,
		Fragment:   params.Scene.Fragment,
		Layout:     params.Scene.Layout,
		RenderPass: target.RenderPass,
		Cache:      params.Cache,
		Extent:     info.Extent,
		Bindings:   VertexBindings(),
		Attributes: VertexAttributes(),
		DepthTest:  true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create graphics pipeline")
	}
	Own(&scope, target.Pipeline)

	for _, view := range target.Views {
		framebuffer, err := device.CreateFramebuffer(target.RenderPass, []*ImageView{view, target.DepthView}, info.Extent)
		if err != nil {
			return nil, errors.Wrap(err, "create framebuffer")
		}
		target.Framebuffers = append(target.Framebuffers, Own(&scope, framebuffer))
	}

	target.CommandBuffers, err = device.AllocateCommandBuffers(params.Pool, len(target.Framebuffers))
	if err != nil {
		return nil, errors.Wrap(err, "allocate command buffers")
	}
	for _, buffer := range target.CommandBuffers {
		Own(&scope, buffer)
	}

	pushConstants, err := params.Scene.PushConstants()
	if err != nil {
		return nil, err
	}

	for idx, buffer := range target.CommandBuffers {
		err = device.RecordDraw(buffer, DrawInfo{
			RenderPass:    target.RenderPass,
			Framebuffer:   target.Framebuffers[idx],
			Pipeline:      target.Pipeline,
			Layout:        params.Scene.Layout,
			Extent:        info.Extent,
			ClearColor:    params.ClearColor,
			VertexBuffer:  params.Scene.Vertices.Buffer,
			VertexCount:   params.Scene.VertexCount,
			PushConstants: pushConstants,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "record command buffer %d", idx)
		}
	}

	target.scope = scope.Move()
	return target, nil
}
