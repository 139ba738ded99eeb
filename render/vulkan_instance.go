package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	"github.com/vkngwrapper/triangle/report"
)

const ValidationLayer = "VK_LAYER_KHRONOS_validation"

var deviceExtensions = []string{khr_swapchain.ExtensionName}

type InstanceOptions struct {
	ApplicationName string
	// Extensions are required by the window system; all must be present.
	Extensions []string
	Validation bool
	Sink       report.Sink
}

// SurfaceFactory creates the presentation surface for a window.
type SurfaceFactory func(instance core1_0.Instance, surfaces khr_surface.ExtensionDriver) (khr_surface.Surface, error)

// VulkanInstance implements Instance on a live Vulkan instance. The debug
// messenger's extension driver is resolved once here and kept for teardown.
type VulkanInstance struct {
	driver core1_0.CoreInstanceDriver
	sink   report.Sink

	debug     ext_debug_utils.ExtensionDriver
	messenger ext_debug_utils.DebugUtilsMessenger

	surfaces khr_surface.ExtensionDriver
	surface  khr_surface.Surface
}

var _ Instance = (*VulkanInstance)(nil)

func NewInstance(global core1_0.GlobalDriver, opts InstanceOptions) (*VulkanInstance, error) {
	createInfo := core1_0.InstanceCreateInfo{
		ApplicationName:    opts.ApplicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "No Engine",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, res, err := global.AvailableExtensions()
	if err := report.Native("enumerate instance extensions", int(res), err); err != nil {
		return nil, err
	}

	required := append([]string{}, opts.Extensions...)
	if opts.Validation {
		required = append(required, ext_debug_utils.ExtensionName)
	}
	for _, ext := range required {
		if _, ok := extensions[ext]; !ok {
			return nil, report.Capability("missing instance extension %s", ext)
		}
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, ext)
	}

	if _, ok := extensions[khr_portability_enumeration.ExtensionName]; ok {
		createInfo.EnabledExtensionNames = append(createInfo.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		createInfo.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	messengerInfo := ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: DebugSeverities,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    debugForwarder(opts.Sink),
	}

	if opts.Validation {
		layers, res, err := global.AvailableLayers()
		if err := report.Native("enumerate instance layers", int(res), err); err != nil {
			return nil, err
		}
		if _, ok := layers[ValidationLayer]; !ok {
			return nil, errors.WithHint(
				report.Capability("validation layer %s not available", ValidationLayer),
				"install the LunarG Vulkan SDK or run with -validation=false")
		}
		createInfo.EnabledLayerNames = append(createInfo.EnabledLayerNames, ValidationLayer)

		// Also covers instance creation and destruction.
		createInfo.Next = messengerInfo
	}

	driver, res, err := global.CreateInstance(nil, createInfo)
	if err := report.Native("create instance", int(res), err); err != nil {
		return nil, err
	}

	instance := &VulkanInstance{
		driver:   driver,
		sink:     opts.Sink,
		surfaces: khr_surface.CreateExtensionDriverFromCoreDriver(driver),
	}

	if opts.Validation {
		instance.debug = ext_debug_utils.CreateExtensionDriverFromCoreDriver(driver)
		instance.messenger, res, err = instance.debug.CreateDebugUtilsMessenger(nil, messengerInfo)
		if err := report.Native("create debug messenger", int(res), err); err != nil {
			instance.Destroy()
			return nil, err
		}
	}

	return instance, nil
}

// AttachSurface creates the presentation surface all surface queries run against.
func (i *VulkanInstance) AttachSurface(create SurfaceFactory) error {
	if i.surface.Initialized() {
		return errors.New("surface already attached")
	}

	surface, err := create(i.driver.Instance(), i.surfaces)
	if err != nil {
		return errors.Wrap(err, "create surface")
	}
	i.surface = surface
	return nil
}

// Destroy releases the surface, the debug messenger and the instance. Every
// device created from this instance must already be destroyed.
func (i *VulkanInstance) Destroy() {
	if i == nil || i.driver == nil {
		return
	}

	if i.surface.Initialized() {
		i.surfaces.DestroySurface(i.surface, nil)
		i.surface = khr_surface.Surface{}
	}

	if i.messenger.Initialized() {
		i.debug.DestroyDebugUtilsMessenger(i.messenger, nil)
		i.messenger = ext_debug_utils.DebugUtilsMessenger{}
	}

	i.driver.DestroyInstance(nil)
	i.driver = nil
}

func (i *VulkanInstance) PhysicalDevices() ([]*PhysicalDevice, error) {
	handles, res, err := i.driver.EnumeratePhysicalDevices()
	if err := report.Native("enumerate physical devices", int(res), err); err != nil {
		return nil, err
	}

	devices := make([]*PhysicalDevice, 0, len(handles))
	for _, handle := range handles {
		device := &PhysicalDevice{handle: handle}
		props, err := i.driver.GetPhysicalDeviceProperties(handle)
		if err == nil {
			device.Name = props.DeviceName
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func (i *VulkanInstance) QueueFamilies(device *PhysicalDevice) []QueueFamily {
	var families []QueueFamily
	for _, props := range i.driver.GetPhysicalDeviceQueueFamilyProperties(device.handle) {
		families = append(families, QueueFamily{
			Flags:      props.QueueFlags,
			QueueCount: props.QueueCount,
		})
	}
	return families
}

func (i *VulkanInstance) SupportsPresent(device *PhysicalDevice, family int) (bool, error) {
	if !i.surface.Initialized() {
		return false, errors.New("no surface attached")
	}

	supported, res, err := i.surfaces.GetPhysicalDeviceSurfaceSupport(i.surface, device.handle, family)
	if err := report.Native("query surface support", int(res), err); err != nil {
		return false, err
	}
	return supported, nil
}

func (i *VulkanInstance) SurfaceDetails(device *PhysicalDevice) (SurfaceDetails, error) {
	var details SurfaceDetails
	if !i.surface.Initialized() {
		return details, errors.New("no surface attached")
	}

	var res common.VkResult
	var err error

	details.Capabilities, res, err = i.surfaces.GetPhysicalDeviceSurfaceCapabilities(i.surface, device.handle)
	if err := report.Native("query surface capabilities", int(res), err); err != nil {
		return details, err
	}

	details.Formats, res, err = i.surfaces.GetPhysicalDeviceSurfaceFormats(i.surface, device.handle)
	if err := report.Native("query surface formats", int(res), err); err != nil {
		return details, err
	}

	details.PresentModes, res, err = i.surfaces.GetPhysicalDeviceSurfacePresentModes(i.surface, device.handle)
	if err := report.Native("query present modes", int(res), err); err != nil {
		return details, err
	}

	return details, nil
}

func (i *VulkanInstance) MemoryTypes(device *PhysicalDevice) []MemoryType {
	var types []MemoryType
	for _, memoryType := range i.driver.GetPhysicalDeviceMemoryProperties(device.handle).MemoryTypes {
		types = append(types, MemoryType{PropertyFlags: memoryType.PropertyFlags})
	}
	return types
}

func (i *VulkanInstance) Properties(device *PhysicalDevice) (DeviceProperties, error) {
	props, err := i.driver.GetPhysicalDeviceProperties(device.handle)
	if err != nil {
		return DeviceProperties{}, err
	}

	return DeviceProperties{
		Name:                 props.DeviceName,
		VendorID:             props.VendorID,
		DeviceID:             props.DeviceID,
		PipelineCacheUUID:    props.PipelineCacheUUID,
		MaxPushConstantsSize: props.Limits.MaxPushConstantsSize,
	}, nil
}

// CreateDevice opens one queue on each distinct family in indices and enables
// the swapchain extension.
func (i *VulkanInstance) CreateDevice(device *PhysicalDevice, indices DeviceIndices) (Device, error) {
	if !indices.Presentable() {
		return nil, errors.New("device indices lack a graphics or present family")
	}

	available, res, err := i.driver.EnumerateDeviceExtensionProperties(device.handle)
	if err := report.Native("enumerate device extensions", int(res), err); err != nil {
		return nil, err
	}

	var extensionNames []string
	for _, ext := range deviceExtensions {
		if _, ok := available[ext]; !ok {
			return nil, report.Capability("%s lacks device extension %s", device.Name, ext)
		}
		extensionNames = append(extensionNames, ext)
	}

	// Required wherever the driver offers it, e.g. MoltenVK.
	if _, ok := available[khr_portability_subset.ExtensionName]; ok {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	var queueInfos []core1_0.DeviceQueueCreateInfo
	for _, family := range indices.Unique() {
		queueInfos = append(queueInfos, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: family,
			QueuePriorities:  []float32{1.0},
		})
	}

	driver, res, err := i.driver.CreateDevice(device.handle, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueInfos,
		EnabledExtensionNames: extensionNames,
	})
	if err := check("create device", res, err); err != nil {
		return nil, err
	}

	return newVulkanDevice(driver, i.surface, indices), nil
}
