package render

import (
	"time"

	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
)

type QueueFamily struct {
	Flags      core1_0.QueueFlags
	QueueCount int
}

type MemoryType struct {
	PropertyFlags core1_0.MemoryPropertyFlags
}

type MemoryRequirements struct {
	Size           int
	MemoryTypeBits uint32
}

type DeviceProperties struct {
	Name                 string
	VendorID             uint32
	DeviceID             uint32
	PipelineCacheUUID    uuid.UUID
	MaxPushConstantsSize int
}

// SurfaceDetails is what the presentation surface offers a physical device.
type SurfaceDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// Instance is the instance-level half of the graphics API: physical device
// and presentation surface queries.
type Instance interface {
	PhysicalDevices() ([]*PhysicalDevice, error)
	QueueFamilies(device *PhysicalDevice) []QueueFamily
	SupportsPresent(device *PhysicalDevice, family int) (bool, error)
	SurfaceDetails(device *PhysicalDevice) (SurfaceDetails, error)
	MemoryTypes(device *PhysicalDevice) []MemoryType
	Properties(device *PhysicalDevice) (DeviceProperties, error)
	CreateDevice(device *PhysicalDevice, indices DeviceIndices) (Device, error)
}

type SwapchainInfo struct {
	MinImageCount      int
	Format             khr_surface.SurfaceFormat
	Extent             core1_0.Extent2D
	SharingMode        core1_0.SharingMode
	QueueFamilyIndices []int
	Capabilities       *khr_surface.SurfaceCapabilities
	PresentMode        khr_surface.PresentMode
}

type ImageInfo struct {
	Width, Height int
	Format        core1_0.Format
	Tiling        core1_0.ImageTiling
	Usage         core1_0.ImageUsageFlags
}

type RenderPassInfo struct {
	ColorFormat core1_0.Format
	// DepthFormat is FormatUndefined for a color-only pass.
	DepthFormat core1_0.Format
}

type PipelineInfo struct {
	Vertex     *ShaderModule
	Fragment   *ShaderModule
	Layout     *PipelineLayout
	RenderPass *RenderPass
	Cache      *PipelineCache
	Extent     core1_0.Extent2D
	Bindings   []core1_0.VertexInputBindingDescription
	Attributes []core1_0.VertexInputAttributeDescription
	DepthTest  bool
}

type DrawInfo struct {
	RenderPass    *RenderPass
	Framebuffer   *Framebuffer
	Pipeline      *Pipeline
	Layout        *PipelineLayout
	Extent        core1_0.Extent2D
	ClearColor    [4]float32
	VertexBuffer  *Buffer
	VertexCount   int
	PushConstants []byte
}

// Device is a logical device. Every Create* result owns its native object and
// releases it through its own Destroy; a failed Create* leaves nothing live.
//
// A timeout of zero or less means wait forever.
type Device interface {
	Queue(family int) *Queue
	WaitIdle() error
	Destroy()

	CreateSwapchain(info SwapchainInfo, old *Swapchain) (*Swapchain, error)
	SwapchainImages(swapchain *Swapchain) ([]*Image, error)

	CreateImage(info ImageInfo) (*Image, error)
	ImageMemoryRequirements(image *Image) MemoryRequirements
	BindImageMemory(image *Image, memory *Memory) error
	CreateImageView(image *Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (*ImageView, error)

	CreateBuffer(size int, usage core1_0.BufferUsageFlags) (*Buffer, error)
	BufferMemoryRequirements(buffer *Buffer) MemoryRequirements
	BindBufferMemory(buffer *Buffer, memory *Memory) error

	AllocateMemory(size int, typeIndex int) (*Memory, error)
	WriteMemory(memory *Memory, offset int, data []byte) error

	CreateShaderModule(code []uint32) (*ShaderModule, error)
	CreateRenderPass(info RenderPassInfo) (*RenderPass, error)
	CreatePipelineLayout(pushConstantSize int) (*PipelineLayout, error)
	CreatePipelineCache(initialData []byte) (*PipelineCache, error)
	PipelineCacheData(cache *PipelineCache) ([]byte, error)
	CreateGraphicsPipeline(info PipelineInfo) (*Pipeline, error)
	CreateFramebuffer(renderPass *RenderPass, attachments []*ImageView, extent core1_0.Extent2D) (*Framebuffer, error)

	CreateCommandPool(family int) (*CommandPool, error)
	AllocateCommandBuffers(pool *CommandPool, count int) ([]*CommandBuffer, error)
	RecordDraw(buffer *CommandBuffer, draw DrawInfo) error

	CreateSemaphore() (*Semaphore, error)
	CreateFence(signaled bool) (*Fence, error)

	WaitForFence(fence *Fence, timeout time.Duration) error
	AcquireNextImage(swapchain *Swapchain, timeout time.Duration, signal *Semaphore) (int, error)
	// Submit resets fence, then submits buffer so that it waits on wait
	// and signals both signal and fence on completion.
	Submit(queue *Queue, buffer *CommandBuffer, wait, signal *Semaphore, fence *Fence) error
	Present(queue *Queue, swapchain *Swapchain, image int, wait *Semaphore) error
}
