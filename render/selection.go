package render

import (
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/triangle/report"
)

// QueueIndex is a queue family index that is only meaningful when Valid.
type QueueIndex struct {
	Index int
	Valid bool
}

func (q QueueIndex) String() string {
	if !q.Valid {
		return "none"
	}
	return strconv.Itoa(q.Index)
}

type DeviceIndices struct {
	Graphics QueueIndex
	Compute  QueueIndex
	Present  QueueIndex
}

// Presentable reports whether the device can both render and present.
func (d DeviceIndices) Presentable() bool {
	return d.Graphics.Valid && d.Present.Valid
}

// Unique lists the distinct valid graphics and present families, graphics first.
func (d DeviceIndices) Unique() []int {
	var families []int
	if d.Graphics.Valid {
		families = append(families, d.Graphics.Index)
	}
	if d.Present.Valid && (!d.Graphics.Valid || d.Present.Index != d.Graphics.Index) {
		families = append(families, d.Present.Index)
	}
	return families
}

// FindQueueFamily returns the first family with at least one queue that has
// every bit of flags.
func FindQueueFamily(instance Instance, device *PhysicalDevice, flags core1_0.QueueFlags) (int, bool) {
	for idx, family := range instance.QueueFamilies(device) {
		if family.QueueCount > 0 && family.Flags&flags == flags {
			return idx, true
		}
	}
	return 0, false
}

// SelectPhysicalDevice picks the first device with a combined graphics and
// compute queue family.
func SelectPhysicalDevice(instance Instance) (*PhysicalDevice, error) {
	devices, err := instance.PhysicalDevices()
	if err != nil {
		return nil, errors.Wrap(err, "enumerate physical devices")
	}

	if len(devices) == 0 {
		return nil, report.Capability("no Vulkan capable device found")
	}

	for _, device := range devices {
		if _, ok := FindQueueFamily(instance, device, core1_0.QueueGraphics|core1_0.QueueCompute); ok {
			return device, nil
		}
	}

	return nil, report.Capability("no device among %d offers a graphics and compute queue family", len(devices))
}

// FindPresentQueueFamily returns the first family that can present to the
// instance's surface.
func FindPresentQueueFamily(instance Instance, device *PhysicalDevice) (int, error) {
	for idx := range instance.QueueFamilies(device) {
		supported, err := instance.SupportsPresent(device, idx)
		if err != nil {
			return 0, errors.Wrapf(err, "query present support for family %d", idx)
		}

		if supported {
			return idx, nil
		}
	}

	return 0, report.Capability("no present queue on %s", device.Name)
}

// ResolveIndices fills in the graphics, compute and, when withPresent is set,
// present families. Graphics and present are required.
func ResolveIndices(instance Instance, device *PhysicalDevice, withPresent bool) (DeviceIndices, error) {
	var indices DeviceIndices

	if idx, ok := FindQueueFamily(instance, device, core1_0.QueueGraphics); ok {
		indices.Graphics = QueueIndex{Index: idx, Valid: true}
	} else {
		return indices, report.Capability("no graphics queue on %s", device.Name)
	}

	if idx, ok := FindQueueFamily(instance, device, core1_0.QueueCompute); ok {
		indices.Compute = QueueIndex{Index: idx, Valid: true}
	}

	if withPresent {
		idx, err := FindPresentQueueFamily(instance, device)
		if err != nil {
			return indices, err
		}
		indices.Present = QueueIndex{Index: idx, Valid: true}
	}

	return indices, nil
}
