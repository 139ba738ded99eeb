package render

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/triangle/report"
)

// MinSwapchainImages is double buffering.
const MinSwapchainImages = 2

func ChooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	count := capabilities.MinImageCount
	if count < MinSwapchainImages {
		count = MinSwapchainImages
	}
	if capabilities.MaxImageCount > 0 && count > capabilities.MaxImageCount {
		count = capabilities.MaxImageCount
	}
	return count
}

// ChooseSurfaceFormat returns the first format that is not undefined, or the
// first enumerated format when every entry is undefined.
func ChooseSurfaceFormat(formats []khr_surface.SurfaceFormat) (khr_surface.SurfaceFormat, error) {
	if len(formats) == 0 {
		return khr_surface.SurfaceFormat{}, report.Capability("surface offers no formats")
	}

	for _, format := range formats {
		if format.Format != core1_0.FormatUndefined {
			return format, nil
		}
	}

	return formats[0], nil
}

// ChoosePresentMode falls back to FIFO, which every surface supports.
func ChoosePresentMode(available []khr_surface.PresentMode, preferred khr_surface.PresentMode) khr_surface.PresentMode {
	for _, mode := range available {
		if mode == preferred {
			return mode
		}
	}
	return khr_surface.PresentModeFIFO
}

// ChooseExtent uses the surface's current extent unless the surface lets the
// swapchain decide, in which case the drawable size is clamped to its limits.
func ChooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawable core1_0.Extent2D) core1_0.Extent2D {
	if capabilities.CurrentExtent.Width != -1 {
		return capabilities.CurrentExtent
	}

	width := clamp(drawable.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	height := clamp(drawable.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)
	return core1_0.Extent2D{Width: width, Height: height}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// sharingFor picks concurrent sharing across [graphics, present] when both
// families are resolved and differ, and exclusive sharing with no families
// otherwise.
func sharingFor(indices DeviceIndices) (core1_0.SharingMode, []int) {
	if indices.Presentable() && indices.Graphics.Index != indices.Present.Index {
		return core1_0.SharingModeConcurrent, []int{indices.Graphics.Index, indices.Present.Index}
	}
	return core1_0.SharingModeExclusive, nil
}

// NegotiateSwapchain turns what the surface offers into creation parameters.
func NegotiateSwapchain(surface SurfaceDetails, indices DeviceIndices, drawable core1_0.Extent2D, preferred khr_surface.PresentMode) (SwapchainInfo, error) {
	if !indices.Presentable() {
		return SwapchainInfo{}, report.Capability("device cannot both render and present")
	}
	if surface.Capabilities == nil {
		return SwapchainInfo{}, report.Capability("surface capabilities unavailable")
	}

	format, err := ChooseSurfaceFormat(surface.Formats)
	if err != nil {
		return SwapchainInfo{}, err
	}

	sharing, families := sharingFor(indices)

	return SwapchainInfo{
		MinImageCount:      ChooseImageCount(surface.Capabilities),
		Format:             format,
		Extent:             ChooseExtent(surface.Capabilities, drawable),
		SharingMode:        sharing,
		QueueFamilyIndices: families,
		Capabilities:       surface.Capabilities,
		PresentMode:        ChoosePresentMode(surface.PresentModes, preferred),
	}, nil
}
