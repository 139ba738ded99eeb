package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/triangle/report"
)

type fakeInstance struct {
	devices      []*PhysicalDevice
	enumerateErr error
	families     map[*PhysicalDevice][]QueueFamily
	present      map[*PhysicalDevice]map[int]bool
	surface      SurfaceDetails
	memoryTypes  []MemoryType
	props        DeviceProperties

	device    *fakeDevice
	createErr error
}

var _ Instance = (*fakeInstance)(nil)

// newFakeInstance has one GPU with a single family that does everything.
func newFakeInstance() *fakeInstance {
	gpu := &PhysicalDevice{Name: "gpu"}
	return &fakeInstance{
		devices: []*PhysicalDevice{gpu},
		families: map[*PhysicalDevice][]QueueFamily{
			gpu: {{Flags: core1_0.QueueGraphics | core1_0.QueueCompute, QueueCount: 1}},
		},
		present: map[*PhysicalDevice]map[int]bool{gpu: {0: true}},
		surface: SurfaceDetails{
			Capabilities: &khr_surface.SurfaceCapabilities{
				MinImageCount: 2,
				MaxImageCount: 3,
				CurrentExtent: core1_0.Extent2D{Width: 800, Height: 600},
			},
			Formats: []khr_surface.SurfaceFormat{
				{Format: core1_0.FormatB8G8R8A8SRGB, ColorSpace: khr_surface.ColorSpaceSRGBNonlinear},
			},
			PresentModes: []khr_surface.PresentMode{khr_surface.PresentModeFIFO},
		},
		memoryTypes: []MemoryType{
			{PropertyFlags: core1_0.MemoryPropertyDeviceLocal},
			{PropertyFlags: core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent},
		},
		props: DeviceProperties{Name: "gpu", VendorID: 0x10de, DeviceID: 0x1234, MaxPushConstantsSize: 128},
		device: newFakeDevice(),
	}
}

func (f *fakeInstance) PhysicalDevices() ([]*PhysicalDevice, error) {
	return f.devices, f.enumerateErr
}

func (f *fakeInstance) QueueFamilies(device *PhysicalDevice) []QueueFamily {
	return f.families[device]
}

func (f *fakeInstance) SupportsPresent(device *PhysicalDevice, family int) (bool, error) {
	return f.present[device][family], nil
}

func (f *fakeInstance) SurfaceDetails(device *PhysicalDevice) (SurfaceDetails, error) {
	return f.surface, nil
}

func (f *fakeInstance) MemoryTypes(device *PhysicalDevice) []MemoryType {
	return f.memoryTypes
}

func (f *fakeInstance) Properties(device *PhysicalDevice) (DeviceProperties, error) {
	return f.props, nil
}

func (f *fakeInstance) CreateDevice(device *PhysicalDevice, indices DeviceIndices) (Device, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.device.indices = indices
	return f.device, nil
}

// fakeDevice records every call as a line of text naming the objects
// involved, e.g. "submit command-buffer#1 wait=semaphore#1".
type fakeDevice struct {
	calls  []string
	labels map[any]string
	counts map[string]int
	live   int

	// fail makes the named operation return its error.
	fail map[string]error

	indices    DeviceIndices
	queues     map[int]*Queue
	swapchains []SwapchainInfo
	olds       []*Swapchain
	written    map[*Memory][]byte
	acquired   int
	acquireErr error
	presentErr error
	waitErr    error
	timeouts   []time.Duration
	cacheData  []byte
	destroyed  bool
}

var _ Device = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		labels:  map[any]string{},
		counts:  map[string]int{},
		fail:    map[string]error{},
		queues:  map[int]*Queue{},
		written: map[*Memory][]byte{},
	}
}

func (d *fakeDevice) record(format string, args ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

// track labels obj as kind#n and returns the release closure for it.
func (d *fakeDevice) track(kind string, obj any) owner {
	d.counts[kind]++
	label := fmt.Sprintf("%s#%d", kind, d.counts[kind])
	d.labels[obj] = label
	d.live++
	d.record("create %s", label)
	return owner{release: func() {
		d.live--
		d.record("destroy %s", label)
	}}
}

func (d *fakeDevice) label(obj any) string {
	if label, ok := d.labels[obj]; ok {
		return label
	}
	return "?"
}

// callsWith returns the recorded calls that start with prefix.
func (d *fakeDevice) callsWith(prefix string) []string {
	var out []string
	for _, call := range d.calls {
		if strings.HasPrefix(call, prefix) {
			out = append(out, call)
		}
	}
	return out
}

func (d *fakeDevice) Queue(family int) *Queue {
	if q, ok := d.queues[family]; ok {
		return q
	}
	q := &Queue{Family: family}
	d.queues[family] = q
	return q
}

func (d *fakeDevice) WaitIdle() error {
	d.record("wait-idle")
	return d.fail["wait-idle"]
}

func (d *fakeDevice) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true
	d.record("destroy device")
}

func (d *fakeDevice) CreateSwapchain(info SwapchainInfo, old *Swapchain) (*Swapchain, error) {
	if err := d.fail["swapchain"]; err != nil {
		return nil, err
	}
	d.swapchains = append(d.swapchains, info)
	d.olds = append(d.olds, old)
	s := &Swapchain{}
	s.owner = d.track("swapchain", s)
	return s, nil
}

func (d *fakeDevice) SwapchainImages(swapchain *Swapchain) ([]*Image, error) {
	count := d.swapchains[len(d.swapchains)-1].MinImageCount
	images := make([]*Image, count)
	for i := range images {
		images[i] = &Image{}
	}
	return images, nil
}

func (d *fakeDevice) CreateImage(info ImageInfo) (*Image, error) {
	if err := d.fail["image"]; err != nil {
		return nil, err
	}
	i := &Image{}
	i.owner = d.track("image", i)
	return i, nil
}

func (d *fakeDevice) ImageMemoryRequirements(image *Image) MemoryRequirements {
	return MemoryRequirements{Size: 1024, MemoryTypeBits: 0b01}
}

func (d *fakeDevice) BindImageMemory(image *Image, memory *Memory) error {
	d.record("bind %s %s", d.label(image), d.label(memory))
	return d.fail["bind-image"]
}

func (d *fakeDevice) CreateImageView(image *Image, format core1_0.Format, aspect core1_0.ImageAspectFlags) (*ImageView, error) {
	if err := d.fail["image-view"]; err != nil {
		return nil, err
	}
	v := &ImageView{}
	v.owner = d.track("image-view", v)
	return v, nil
}

func (d *fakeDevice) CreateBuffer(size int, usage core1_0.BufferUsageFlags) (*Buffer, error) {
	if err := d.fail["buffer"]; err != nil {
		return nil, err
	}
	b := &Buffer{}
	b.owner = d.track("buffer", b)
	return b, nil
}

func (d *fakeDevice) BufferMemoryRequirements(buffer *Buffer) MemoryRequirements {
	return MemoryRequirements{Size: 256, MemoryTypeBits: 0b11}
}

func (d *fakeDevice) BindBufferMemory(buffer *Buffer, memory *Memory) error {
	d.record("bind %s %s", d.label(buffer), d.label(memory))
	return d.fail["bind-buffer"]
}

func (d *fakeDevice) AllocateMemory(size int, typeIndex int) (*Memory, error) {
	if err := d.fail["memory"]; err != nil {
		return nil, err
	}
	m := &Memory{}
	m.owner = d.track("memory", m)
	return m, nil
}

func (d *fakeDevice) WriteMemory(memory *Memory, offset int, data []byte) error {
	d.written[memory] = append([]byte{}, data...)
	return d.fail["write"]
}

func (d *fakeDevice) CreateShaderModule(code []uint32) (*ShaderModule, error) {
	if err := d.fail["shader"]; err != nil {
		return nil, err
	}
	m := &ShaderModule{}
	m.owner = d.track("shader", m)
	return m, nil
}

func (d *fakeDevice) CreateRenderPass(info RenderPassInfo) (*RenderPass, error) {
	if err := d.fail["render-pass"]; err != nil {
		return nil, err
	}
	p := &RenderPass{}
	p.owner = d.track("render-pass", p)
	return p, nil
}

func (d *fakeDevice) CreatePipelineLayout(pushConstantSize int) (*PipelineLayout, error) {
	if err := d.fail["layout"]; err != nil {
		return nil, err
	}
	l := &PipelineLayout{}
	l.owner = d.track("layout", l)
	return l, nil
}

func (d *fakeDevice) CreatePipelineCache(initialData []byte) (*PipelineCache, error) {
	if err := d.fail["cache"]; err != nil && initialData != nil {
		return nil, err
	}
	c := &PipelineCache{}
	c.owner = d.track("cache", c)
	return c, nil
}

func (d *fakeDevice) PipelineCacheData(cache *PipelineCache) ([]byte, error) {
	return d.cacheData, nil
}

func (d *fakeDevice) CreateGraphicsPipeline(info PipelineInfo) (*Pipeline, error) {
	if err := d.fail["pipeline"]; err != nil {
		return nil, err
	}
	p := &Pipeline{}
	p.owner = d.track("pipeline", p)
	return p, nil
}

func (d *fakeDevice) CreateFramebuffer(renderPass *RenderPass, attachments []*ImageView, extent core1_0.Extent2D) (*Framebuffer, error) {
	if err := d.fail["framebuffer"]; err != nil {
		return nil, err
	}
	f := &Framebuffer{}
	f.owner = d.track("framebuffer", f)
	return f, nil
}

func (d *fakeDevice) CreateCommandPool(family int) (*CommandPool, error) {
	if err := d.fail["pool"]; err != nil {
		return nil, err
	}
	p := &CommandPool{}
	p.owner = d.track("pool", p)
	return p, nil
}

func (d *fakeDevice) AllocateCommandBuffers(pool *CommandPool, count int) ([]*CommandBuffer, error) {
	if err := d.fail["command-buffers"]; err != nil {
		return nil, err
	}
	buffers := make([]*CommandBuffer, count)
	for i := range buffers {
		b := &CommandBuffer{}
		b.owner = d.track("command-buffer", b)
		buffers[i] = b
	}
	return buffers, nil
}

func (d *fakeDevice) RecordDraw(buffer *CommandBuffer, draw DrawInfo) error {
	d.record("record %s %s", d.label(buffer), d.label(draw.Framebuffer))
	return d.fail["record"]
}

func (d *fakeDevice) CreateSemaphore() (*Semaphore, error) {
	if err := d.fail["semaphore"]; err != nil {
		return nil, err
	}
	s := &Semaphore{}
	s.owner = d.track("semaphore", s)
	return s, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (*Fence, error) {
	if err := d.fail["fence"]; err != nil {
		return nil, err
	}
	f := &Fence{}
	f.owner = d.track("fence", f)
	return f, nil
}

func (d *fakeDevice) WaitForFence(fence *Fence, timeout time.Duration) error {
	label := d.label(fence)
	d.record("wait-fence %s", label)
	d.timeouts = append(d.timeouts, timeout)
	err := d.fail["wait-fence "+label]
	if err == nil {
		err = d.waitErr
	}
	// An unbounded wait never reports a timeout.
	if timeout <= 0 && report.IsTimeout(err) {
		return nil
	}
	return err
}

func (d *fakeDevice) AcquireNextImage(swapchain *Swapchain, timeout time.Duration, signal *Semaphore) (int, error) {
	d.record("acquire signal=%s", d.label(signal))
	if d.acquireErr != nil {
		return 0, d.acquireErr
	}
	count := d.swapchains[len(d.swapchains)-1].MinImageCount
	image := d.acquired % count
	d.acquired++
	return image, nil
}

func (d *fakeDevice) Submit(queue *Queue, buffer *CommandBuffer, wait, signal *Semaphore, fence *Fence) error {
	d.record("submit %s wait=%s signal=%s fence=%s", d.label(buffer), d.label(wait), d.label(signal), d.label(fence))
	return d.fail["submit"]
}

func (d *fakeDevice) Present(queue *Queue, swapchain *Swapchain, image int, wait *Semaphore) error {
	d.record("present image=%d wait=%s", image, d.label(wait))
	return d.presentErr
}

// testSPIRV is the smallest buffer BytesToBytecode accepts.
func testSPIRV() []byte {
	return []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}
}
