package render

import (
	"time"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/triangle/report"
)

// check turns a driver result into an error, marking the kinds callers
// branch on.
func check(op string, res common.VkResult, err error) error {
	switch res {
	case core1_0.VKErrorOutOfHostMemory, core1_0.VKErrorOutOfDeviceMemory:
		return report.Allocation(report.Native(op, int(res), err))
	case khr_swapchain.VKErrorOutOfDate:
		return report.Stale(report.Native(op, int(res), err))
	}
	return report.Native(op, int(res), err)
}

func driverTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return common.NoTimeout
	}
	return timeout
}

type vulkanDevice struct {
	driver     core1_0.CoreDeviceDriver
	swapchains khr_swapchain.ExtensionDriver
	surface    khr_surface.Surface
	queues     map[int]*Queue
}

var _ Device = (*vulkanDevice)(nil)

func newVulkanDevice(driver core1_0.CoreDeviceDriver, surface khr_surface.Surface, indices DeviceIndices) *vulkanDevice {
	device := &vulkanDevice{
		driver:     driver,
		swapchains: khr_swapchain.CreateExtensionDriverFromCoreDriver(driver),
		surface:    surface,
		queues:     map[int]*Queue{},
	}
	for _, family := range indices.Unique() {
		device.queues[family] = &Queue{Family: family, handle: driver.GetQueue(family, 0)}
	}
	return device
}

func (d *vulkanDevice) Queue(family int) *Queue {
	return d.queues[family]
}

func (d *vulkanDevice) WaitIdle() error {
	res, err := d.driver.DeviceWaitIdle()
	return check("wait for device idle", res, err)
}

func (d *vulkanDevice) Destroy() {
	if d.driver != nil {
		d.driver.DestroyDevice(nil)
		d.driver = nil
	}
}

func (d *vulkanDevice) CreateSwapchain(info SwapchainInfo, old *Swapchain) (*Swapchain, error) {
	createInfo := khr_swapchain.SwapchainCreateInfo{
		Surface: d.surface,

		MinImageCount:    info.MinImageCount,
		ImageFormat:      info.Format.Format,
		ImageColorSpace:  info.Format.ColorSpace,
		ImageExtent:      info.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   info.SharingMode,
		QueueFamilyIndices: info.QueueFamilyIndices,

		PreTransform:   info.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    info.PresentMode,
		Clipped:        true,
	}
	if old != nil && old.live() {
		createInfo.OldSwapchain = old.handle
	}

	handle, res, err := d.swapchains.CreateSwapchain(nil, createInfo)
	if err := check("create swapchain", res, err); err != nil {
		return nil, err
	}

	return &Swapchain{
		owner:  owner{release: func() { d.swapchains.DestroySwapchain(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) SwapchainImages(swapchain *Swapchain) ([]*Image, error) {
	handles, res, err := d.swapchains.GetSwapchainImages(swapchain.handle)
	if err := check("get swapchain images", res, err); err != nil {
		return nil, err
	}

	images := make([]*Image, 0, len(handles))
	for _, handle := range handles {
		images = append(images, &Image{handle: handle})
	}
	return images, nil
}

func (d *vulkanDevice) CreateImage(info ImageInfo) (*Image, error) {
	handle, res, err := d.driver.CreateImage(nil, core1_0.ImageCreateInfo{
		ImageType: core1_0.ImageType2D,
		Extent: core1_0.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Format:        info.Format,
		Tiling:        info.Tiling,
		InitialLayout: core1_0.ImageLayoutUndefined,
		Usage:         info.Usage,
		SharingMode:   core1_0.SharingModeExclusive,
		Samples:       core1_0.Samples1,
	})
	if err := check("create image", res, err); err != nil {
		return nil, err
	}

	return &Image{
		owner:  owner{release: func() { d.driver.DestroyImage(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) ImageMemoryRequirements(image *Image) MemoryRequirements {
	reqs := d.driver.GetImageMemoryRequirements(image.handle)
	return MemoryRequirements{Size: reqs.Size, MemoryTypeBits: reqs.MemoryTypeBits}
}

func (d *vulkanDevice) BindImageMemory(image *Image, memory *Memory) error {
	res, err := d.driver.BindImageMemory(image.handle, memory.handle, 0)
	return check("bind image memory", res, err)
}

func (d *vulkanDevice) CreateImageView(image *Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (*ImageView, error) {
	handle, res, err := d.driver.CreateImageView(nil, core1_0.ImageViewCreateInfo{
		Image:    image.handle,
		ViewType: core1_0.ImageViewType2D,
		Format:   format,
		SubresourceRange: core1_0.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	})
	if err := check("create image view", res, err); err != nil {
		return nil, err
	}

	return &ImageView{
		owner:  owner{release: func() { d.driver.DestroyImageView(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) CreateBuffer(size int, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	handle, res, err := d.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err := check("create buffer", res, err); err != nil {
		return nil, err
	}

	return &Buffer{
		owner:  owner{release: func() { d.driver.DestroyBuffer(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) BufferMemoryRequirements(buffer *Buffer) MemoryRequirements {
	reqs := d.driver.GetBufferMemoryRequirements(buffer.handle)
	return MemoryRequirements{Size: reqs.Size, MemoryTypeBits: reqs.MemoryTypeBits}
}

func (d *vulkanDevice) BindBufferMemory(buffer *Buffer, memory *Memory) error {
	res, err := d.driver.BindBufferMemory(buffer.handle, memory.handle, 0)
	return check("bind buffer memory", res, err)
}

func (d *vulkanDevice) AllocateMemory(size int, typeIndex int) (*Memory, error) {
	handle, res, err := d.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  size,
		MemoryTypeIndex: typeIndex,
	})
	if err := check("allocate memory", res, err); err != nil {
		return nil, err
	}

	return &Memory{
		owner:  owner{release: func() { d.driver.FreeMemory(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) WriteMemory(memory *Memory, offset int, data []byte) error {
	ptr, res, err := d.driver.MapMemory(memory.handle, offset, len(data), 0)
	if err := check("map memory", res, err); err != nil {
		return err
	}
	defer d.driver.UnmapMemory(memory.handle)

	copy(unsafe.Slice((*byte)(ptr), len(data)), data)
	return nil
}

func (d *vulkanDevice) CreateShaderModule(code []uint32) (*ShaderModule, error) {
	handle, res, err := d.driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err := check("create shader module", res, err); err != nil {
		return nil, err
	}

	return &ShaderModule{
		owner:  owner{release: func() { d.driver.DestroyShaderModule(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) CreateRenderPass(info RenderPassInfo) (*RenderPass, error) {
	attachments := []core1_0.AttachmentDescription{
		{
			Format:         info.ColorFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpStore,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
		},
	}

	subpass := core1_0.SubpassDescription{
		PipelineBindPoint: core1_0.PipelineBindPointGraphics,
		ColorAttachments: []core1_0.AttachmentReference{
			{
				Attachment: 0,
				Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
			},
		},
	}

	stages := core1_0.PipelineStageColorAttachmentOutput
	access := core1_0.AccessColorAttachmentWrite

	if info.DepthFormat != core1_0.FormatUndefined {
		attachments = append(attachments, core1_0.AttachmentDescription{
			Format:         info.DepthFormat,
			Samples:        core1_0.Samples1,
			LoadOp:         core1_0.AttachmentLoadOpClear,
			StoreOp:        core1_0.AttachmentStoreOpDontCare,
			StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
			StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
			InitialLayout:  core1_0.ImageLayoutUndefined,
			FinalLayout:    core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.DepthStencilAttachment = &core1_0.AttachmentReference{
			Attachment: 1,
			Layout:     core1_0.ImageLayoutDepthStencilAttachmentOptimal,
		}
		stages |= core1_0.PipelineStageEarlyFragmentTests
		access |= core1_0.AccessDepthStencilAttachmentWrite
	}

	handle, res, err := d.driver.CreateRenderPass(nil, core1_0.RenderPassCreateInfo{
		Attachments: attachments,
		Subpasses:   []core1_0.SubpassDescription{subpass},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  stages,
				SrcAccessMask: 0,

				DstStageMask:  stages,
				DstAccessMask: access,
			},
		},
	})
	if err := check("create render pass", res, err); err != nil {
		return nil, err
	}

	return &RenderPass{
		owner:  owner{release: func() { d.driver.DestroyRenderPass(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) CreatePipelineLayout(pushConstantSize int) (*PipelineLayout, error) {
	var createInfo core1_0.PipelineLayoutCreateInfo
	if pushConstantSize > 0 {
		createInfo.PushConstantRanges = []core1_0.PushConstantRange{
			{
				Stages: core1_0.StageVertex,
				Offset: 0,
				Size:   pushConstantSize,
			},
		}
	}

	handle, res, err := d.driver.CreatePipelineLayout(nil, createInfo)
	if err := check("create pipeline layout", res, err); err != nil {
		return nil, err
	}

	return &PipelineLayout{
		owner:  owner{release: func() { d.driver.DestroyPipelineLayout(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) CreatePipelineCache(initialData []byte) (*PipelineCache, error) {
	handle, res, err := d.driver.CreatePipelineCache(nil, core1_0.PipelineCacheCreateInfo{
		InitialData: initialData,
	})
	if err := check("create pipeline cache", res, err); err != nil {
		return nil, err
	}

	return &PipelineCache{
		owner:  owner{release: func() { d.driver.DestroyPipelineCache(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) PipelineCacheData(cache *PipelineCache) ([]byte, error) {
	data, res, err := d.driver.GetPipelineCacheData(cache.handle)
	if err := check("get pipeline cache data", res, err); err != nil {
		return nil, err
	}
	return data, nil
}

func (d *vulkanDevice) CreateGraphicsPipeline(info PipelineInfo) (*Pipeline, error) {
	var depthStencil *core1_0.PipelineDepthStencilStateCreateInfo
	if info.DepthTest {
		depthStencil = &core1_0.PipelineDepthStencilStateCreateInfo{
			DepthTestEnable:  true,
			DepthWriteEnable: true,
			DepthCompareOp:   core1_0.CompareOpLess,
		}
	}

	var cache *core1_0.PipelineCache
	if info.Cache != nil {
		cache = &info.Cache.handle
	}

	pipelines, res, err := d.driver.CreateGraphicsPipelines(cache, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				{
					Stage:  core1_0.StageVertex,
					Module: info.Vertex.handle,
					Name:   "main",
				},
				{
					Stage:  core1_0.StageFragment,
					Module: info.Fragment.handle,
					Name:   "main",
				},
			},
			VertexInputState: &core1_0.PipelineVertexInputStateCreateInfo{
				VertexBindingDescriptions:   info.Bindings,
				VertexAttributeDescriptions: info.Attributes,
			},
			InputAssemblyState: &core1_0.PipelineInputAssemblyStateCreateInfo{
				Topology:               core1_0.PrimitiveTopologyTriangleList,
				PrimitiveRestartEnable: false,
			},
			ViewportState: &core1_0.PipelineViewportStateCreateInfo{
				Viewports: []core1_0.Viewport{
					{
						X:        0,
						Y:        0,
						Width:    float32(info.Extent.Width),
						Height:   float32(info.Extent.Height),
						MinDepth: 0,
						MaxDepth: 1,
					},
				},
				Scissors: []core1_0.Rect2D{
					{
						Offset: core1_0.Offset2D{X: 0, Y: 0},
						Extent: info.Extent,
					},
				},
			},
			RasterizationState: &core1_0.PipelineRasterizationStateCreateInfo{
				DepthClampEnable:        false,
				RasterizerDiscardEnable: false,

				PolygonMode: core1_0.PolygonModeFill,
				CullMode:    core1_0.CullModeNone,
				FrontFace:   core1_0.FrontFaceClockwise,

				DepthBiasEnable: false,

				LineWidth: 1.0,
			},
			MultisampleState: &core1_0.PipelineMultisampleStateCreateInfo{
				SampleShadingEnable:  false,
				RasterizationSamples: core1_0.Samples1,
				MinSampleShading:     1.0,
			},
			DepthStencilState: depthStencil,
			ColorBlendState: &core1_0.PipelineColorBlendStateCreateInfo{
				LogicOpEnabled: false,
				LogicOp:        core1_0.LogicOpCopy,

				BlendConstants: [4]float32{0, 0, 0, 0},
				Attachments: []core1_0.PipelineColorBlendAttachmentState{
					{
						BlendEnabled:   false,
						ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
					},
				},
			},
			Layout:            info.Layout.handle,
			RenderPass:        info.RenderPass.handle,
			Subpass:           0,
			BasePipelineIndex: -1,
		},
	)
	if err := check("create graphics pipeline", res, err); err != nil {
		return nil, err
	}

	handle := pipelines[0]
	return &Pipeline{
		owner:  owner{release: func() { d.driver.DestroyPipeline(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) CreateFramebuffer(renderPass *RenderPass, attachments []*ImageView, extent core1_0.Extent2D) (*Framebuffer, error) {
	views := make([]core1_0.ImageView, 0, len(attachments))
	for _, view := range attachments {
		views = append(views, view.handle)
	}

	handle, res, err := d.driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
		RenderPass:  renderPass.handle,
		Layers:      1,
		Attachments: views,
		Width:       extent.Width,
		Height:      extent.Height,
	})
	if err := check("create framebuffer", res, err); err != nil {
		return nil, err
	}

	return &Framebuffer{
		owner:  owner{release: func() { d.driver.DestroyFramebuffer(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) CreateCommandPool(family int) (*CommandPool, error) {
	handle, res, err := d.driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: family,
	})
	if err := check("create command pool", res, err); err != nil {
		return nil, err
	}

	return &CommandPool{
		owner:  owner{release: func() { d.driver.DestroyCommandPool(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) AllocateCommandBuffers(pool *CommandPool, count int) ([]*CommandBuffer, error) {
	handles, res, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool.handle,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	if err := check("allocate command buffers", res, err); err != nil {
		return nil, err
	}

	buffers := make([]*CommandBuffer, 0, len(handles))
	for _, handle := range handles {
		handle := handle
		buffers = append(buffers, &CommandBuffer{
			owner:  owner{release: func() { d.driver.FreeCommandBuffers(handle) }},
			handle: handle,
		})
	}
	return buffers, nil
}

func (d *vulkanDevice) RecordDraw(buffer *CommandBuffer, draw DrawInfo) error {
	cb := buffer.handle

	res, err := d.driver.BeginCommandBuffer(cb, core1_0.CommandBufferBeginInfo{})
	if err := check("begin command buffer", res, err); err != nil {
		return err
	}

	err = d.driver.CmdBeginRenderPass(cb, core1_0.SubpassContentsInline,
		core1_0.RenderPassBeginInfo{
			RenderPass:  draw.RenderPass.handle,
			Framebuffer: draw.Framebuffer.handle,
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: draw.Extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat(draw.ClearColor),
				core1_0.ClearValueDepthStencil{Depth: 1.0, Stencil: 0},
			},
		})
	if err != nil {
		return errors.Wrap(err, "begin render pass")
	}

	d.driver.CmdBindPipeline(cb, core1_0.PipelineBindPointGraphics, draw.Pipeline.handle)
	d.driver.CmdBindVertexBuffers(cb, 0, []core1_0.Buffer{draw.VertexBuffer.handle}, []int{0})
	if len(draw.PushConstants) > 0 {
		d.driver.CmdPushConstants(cb, draw.Layout.handle, core1_0.StageVertex, 0, draw.PushConstants)
	}
	d.driver.CmdDraw(cb, draw.VertexCount, 1, 0, 0)
	d.driver.CmdEndRenderPass(cb)

	res, err = d.driver.EndCommandBuffer(cb)
	return check("end command buffer", res, err)
}

func (d *vulkanDevice) CreateSemaphore() (*Semaphore, error) {
	handle, res, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	if err := check("create semaphore", res, err); err != nil {
		return nil, err
	}

	return &Semaphore{
		owner:  owner{release: func() { d.driver.DestroySemaphore(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) CreateFence(signaled bool) (*Fence, error) {
	var createInfo core1_0.FenceCreateInfo
	if signaled {
		createInfo.Flags = core1_0.FenceCreateSignaled
	}

	handle, res, err := d.driver.CreateFence(nil, createInfo)
	if err := check("create fence", res, err); err != nil {
		return nil, err
	}

	return &Fence{
		owner:  owner{release: func() { d.driver.DestroyFence(handle, nil) }},
		handle: handle,
	}, nil
}

func (d *vulkanDevice) WaitForFence(fence *Fence, timeout time.Duration) error {
	res, err := d.driver.WaitForFences(true, driverTimeout(timeout), fence.handle)
	if res == core1_0.VKTimeout {
		return report.Timeout("wait for fence")
	}
	return check("wait for fence", res, err)
}

func (d *vulkanDevice) AcquireNextImage(swapchain *Swapchain, timeout time.Duration, signal *Semaphore) (int, error) {
	semaphore := signal.handle
	imageIndex, res, err := d.swapchains.AcquireNextImage(swapchain.handle, driverTimeout(timeout), &semaphore, nil)
	switch res {
	case core1_0.VKTimeout, core1_0.VKNotReady:
		return 0, report.Timeout("acquire next image")
	case khr_swapchain.VKSuboptimal:
		// The image is still presentable; present will report the mismatch.
		return imageIndex, nil
	}
	if err := check("acquire next image", res, err); err != nil {
		return 0, err
	}
	return imageIndex, nil
}

func (d *vulkanDevice) Submit(queue *Queue, buffer *CommandBuffer, wait, signal *Semaphore, fence *Fence) error {
	res, err := d.driver.ResetFences(fence.handle)
	if err := check("reset fence", res, err); err != nil {
		return err
	}

	res, err = d.driver.QueueSubmit(queue.handle, &fence.handle,
		core1_0.SubmitInfo{
			WaitSemaphores:   []core1_0.Semaphore{wait.handle},
			WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
			CommandBuffers:   []core1_0.CommandBuffer{buffer.handle},
			SignalSemaphores: []core1_0.Semaphore{signal.handle},
		},
	)
	return check("queue submit", res, err)
}

func (d *vulkanDevice) Present(queue *Queue, swapchain *Swapchain, image int, wait *Semaphore) error {
	res, err := d.swapchains.QueuePresent(queue.handle, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{wait.handle},
		Swapchains:     []khr_swapchain.Swapchain{swapchain.handle},
		ImageIndices:   []int{image},
	})
	if res == khr_swapchain.VKSuboptimal {
		return report.Stale(errors.New("present: swapchain suboptimal"))
	}
	return check("queue present", res, err)
}
