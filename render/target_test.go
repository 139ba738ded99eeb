package render

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"

	"github.com/vkngwrapper/triangle/report"
)

func targetFixture(t *testing.T) (*fakeInstance, TargetParams) {
	t.Helper()

	inst := newFakeInstance()
	device := inst.device

	scene, err := NewScene(device, inst.memoryTypes, ShaderCode{Vertex: testSPIRV(), Fragment: testSPIRV()}, Triangle, mgl32.Ident4())
	require.NoError(t, err)
	pool, err := device.CreateCommandPool(0)
	require.NoError(t, err)

	device.calls = nil
	return inst, TargetParams{
		Indices:     indices(0, 0),
		Surface:     inst.surface,
		Drawable:    core1_0.Extent2D{Width: 800, Height: 600},
		PresentMode: khr_surface.PresentModeFIFO,
		MemoryTypes: inst.memoryTypes,
		Scene:       scene,
		Pool:        pool,
	}
}

func TestNewTarget(t *testing.T) {
	inst, params := targetFixture(t)
	device := inst.device
	before := device.live

	target, err := NewTarget(device, params, nil)
	require.NoError(t, err)

	require.Equal(t, 2, target.ImageCount())
	require.Len(t, target.Views, 2)
	require.Len(t, target.Framebuffers, 2)
	require.Len(t, target.CommandBuffers, 2)
	require.Equal(t, core1_0.Extent2D{Width: 800, Height: 600}, target.Extent)
	require.Equal(t, []string{
		"record command-buffer#1 framebuffer#1",
		"record command-buffer#2 framebuffer#2",
	}, device.callsWith("record"))
	require.Nil(t, device.olds[0])

	device.calls = nil
	target.Destroy()
	require.Equal(t, before, device.live)
	require.Equal(t, []string{
		"destroy command-buffer#2",
		"destroy command-buffer#1",
		"destroy framebuffer#2",
		"destroy framebuffer#1",
		"destroy pipeline#1",
		"destroy render-pass#1",
		"destroy image-view#3",
		"destroy memory#2",
		"destroy image#1",
		"destroy image-view#2",
		"destroy image-view#1",
		"destroy swapchain#1",
	}, device.calls)
}

func TestNewTargetReusesOldSwapchain(t *testing.T) {
	inst, params := targetFixture(t)
	device := inst.device

	first, err := NewTarget(device, params, nil)
	require.NoError(t, err)

	second, err := NewTarget(device, params, first)
	require.NoError(t, err)
	require.Same(t, first.Swapchain, device.olds[1])
	require.True(t, first.Swapchain.live())

	first.Destroy()
	second.Destroy()
}

func TestNewTargetRollsBack(t *testing.T) {
	for _, op := range []string{"swapchain", "image-view", "image", "render-pass", "pipeline", "framebuffer", "command-buffers", "record"} {
		t.Run(op, func(t *testing.T) {
			inst, params := targetFixture(t)
			device := inst.device
			before := device.live
			device.fail[op] = report.Native(op, -1, nil)

			target, err := NewTarget(device, params, nil)
			require.Error(t, err)
			require.Nil(t, target)
			require.Equal(t, before, device.live)
		})
	}
}
