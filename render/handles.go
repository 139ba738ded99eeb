package render

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// owner releases a native object at most once.
type owner struct {
	release func()
}

func (o *owner) destroy() {
	if o.release == nil {
		return
	}
	release := o.release
	o.release = nil
	release()
}

func (o *owner) live() bool {
	return o.release != nil
}

type PhysicalDevice struct {
	Name   string
	handle core1_0.PhysicalDevice
}

type Queue struct {
	Family int
	handle core1_0.Queue
}

type Fence struct {
	owner
	handle core1_0.Fence
}

func (f *Fence) Destroy() {
	if f != nil {
		f.destroy()
	}
}

type Semaphore struct {
	owner
	handle core1_0.Semaphore
}

func (s *Semaphore) Destroy() {
	if s != nil {
		s.destroy()
	}
}

type Swapchain struct {
	owner
	handle khr_swapchain.Swapchain
}

func (s *Swapchain) Destroy() {
	if s != nil {
		s.destroy()
	}
}

// Image is either a standalone image or one owned by a swapchain. Swapchain
// images have nothing to release and go away with their swapchain.
type Image struct {
	owner
	handle core1_0.Image
}

func (i *Image) Destroy() {
	if i != nil {
		i.destroy()
	}
}

type ImageView struct {
	owner
	handle core1_0.ImageView
}

func (v *ImageView) Destroy() {
	if v != nil {
		v.destroy()
	}
}

type Buffer struct {
	owner
	handle core1_0.Buffer
}

func (b *Buffer) Destroy() {
	if b != nil {
		b.destroy()
	}
}

type Memory struct {
	owner
	handle core1_0.DeviceMemory
}

func (m *Memory) Destroy() {
	if m != nil {
		m.destroy()
	}
}

type ShaderModule struct {
	owner
	handle core1_0.ShaderModule
}

func (m *ShaderModule) Destroy() {
	if m != nil {
		m.destroy()
	}
}

type RenderPass struct {
	owner
	handle core1_0.RenderPass
}

func (p *RenderPass) Destroy() {
	if p != nil {
		p.destroy()
	}
}

type PipelineLayout struct {
	owner
	handle core1_0.PipelineLayout
}

func (l *PipelineLayout) Destroy() {
	if l != nil {
		l.destroy()
	}
}

type PipelineCache struct {
	owner
	handle core1_0.PipelineCache
}

func (c *PipelineCache) Destroy() {
	if c != nil {
		c.destroy()
	}
}

type Pipeline struct {
	owner
	handle core1_0.Pipeline
}

func (p *Pipeline) Destroy() {
	if p != nil {
		p.destroy()
	}
}

type Framebuffer struct {
	owner
	handle core1_0.Framebuffer
}

func (f *Framebuffer) Destroy() {
	if f != nil {
		f.destroy()
	}
}

type CommandPool struct {
	owner
	handle core1_0.CommandPool
}

func (p *CommandPool) Destroy() {
	if p != nil {
		p.destroy()
	}
}

type CommandBuffer struct {
	owner
	handle core1_0.CommandBuffer
}

func (b *CommandBuffer) Destroy() {
	if b != nil {
		b.destroy()
	}
}
