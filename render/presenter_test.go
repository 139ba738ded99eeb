package render

import (
	"fmt"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/triangle/report"
)

func presenterFixture(t *testing.T, images int) (*fakeDevice, *Presenter, *Target) {
	t.Helper()

	device := newFakeDevice()
	frames, err := NewFrames(device, 2)
	require.NoError(t, err)

	device.swapchains = append(device.swapchains, SwapchainInfo{MinImageCount: images})
	target := &Target{Swapchain: &Swapchain{}, Images: make([]*Image, images)}
	for i := 0; i < images; i++ {
		buffer := &CommandBuffer{}
		buffer.owner = device.track("command-buffer", buffer)
		target.CommandBuffers = append(target.CommandBuffers, buffer)
	}

	device.calls = nil
	return device, NewPresenter(device, device.Queue(0), device.Queue(0), frames, time.Second), target
}

func TestPresenterCallOrder(t *testing.T) {
	device, presenter, target := presenterFixture(t, 3)

	var slots []int
	for frame := 0; frame < 3; frame++ {
		slots = append(slots, presenter.Frames().Current())
		require.NoError(t, presenter.Draw(target))
	}

	require.Equal(t, []int{0, 1, 0}, slots)
	require.Equal(t, 1, presenter.Frames().Current())

	// Slot 0 owns semaphore#1, semaphore#2 and fence#1; slot 1 the next three.
	frame := func(fence, available, finished string, image int) []string {
		return []string{
			"wait-fence " + fence,
			"acquire signal=" + available,
			fmt.Sprintf("submit command-buffer#%d wait=%s signal=%s fence=%s", image+1, available, finished, fence),
			fmt.Sprintf("present image=%d wait=%s", image, finished),
		}
	}

	var expected []string
	expected = append(expected, frame("fence#1", "semaphore#1", "semaphore#2", 0)...)
	expected = append(expected, frame("fence#2", "semaphore#3", "semaphore#4", 1)...)
	expected = append(expected, frame("fence#1", "semaphore#1", "semaphore#2", 2)...)
	require.Equal(t, expected, device.calls)
}

func TestPresenterWaitsForImageInFlight(t *testing.T) {
	device, presenter, target := presenterFixture(t, 1)

	require.NoError(t, presenter.Draw(target))
	device.calls = nil
	require.NoError(t, presenter.Draw(target))

	require.Equal(t, []string{
		"wait-fence fence#2",
		"acquire signal=semaphore#3",
		"wait-fence fence#1",
		"submit command-buffer#1 wait=semaphore#3 signal=semaphore#4 fence=fence#2",
		"present image=0 wait=semaphore#4",
	}, device.calls)
}

func TestPresenterImageInFlightWaitIsUnbounded(t *testing.T) {
	device, presenter, target := presenterFixture(t, 1)

	require.NoError(t, presenter.Draw(target))
	device.calls = nil
	device.timeouts = nil
	device.fail["wait-fence fence#1"] = report.Timeout("wait for fence")

	require.NoError(t, presenter.Draw(target))
	require.Equal(t, []time.Duration{time.Second, 0}, device.timeouts)
	require.Len(t, device.callsWith("acquire"), 1)
	require.Equal(t, []string{
		"present image=0 wait=semaphore#4",
	}, device.callsWith("present"))
}

func TestPresenterStaleAcquire(t *testing.T) {
	device, presenter, target := presenterFixture(t, 2)
	device.acquireErr = report.Stale(nil)

	err := presenter.Draw(target)
	require.True(t, report.IsStale(err))
	require.Equal(t, 0, presenter.Frames().Current())
	require.Empty(t, device.callsWith("submit"))
	require.Empty(t, device.callsWith("present"))
}

func TestPresenterStalePresent(t *testing.T) {
	device, presenter, target := presenterFixture(t, 2)
	device.presentErr = report.Stale(errors.New("suboptimal"))

	err := presenter.Draw(target)
	require.True(t, report.IsStale(err))
	require.Equal(t, 1, presenter.Frames().Current())
	require.Len(t, device.callsWith("submit"), 1)
}

func TestPresenterTimeout(t *testing.T) {
	device, presenter, target := presenterFixture(t, 2)
	device.waitErr = report.Timeout("wait for fence")

	err := presenter.Draw(target)
	require.True(t, report.Recoverable(err))
	require.Equal(t, []string{"wait-fence fence#1"}, device.calls)
	require.Equal(t, 0, presenter.Frames().Current())
}

func TestPresenterSubmitFailureIsFatal(t *testing.T) {
	device, presenter, target := presenterFixture(t, 2)
	device.fail["submit"] = report.Native("queue submit", -4, nil)

	err := presenter.Draw(target)
	require.Error(t, err)
	require.False(t, report.Recoverable(err))
	require.Equal(t, report.KindNative, report.Classify(err))
	require.Empty(t, device.callsWith("present"))
}

func TestNewFrames(t *testing.T) {
	device := newFakeDevice()

	_, err := NewFrames(device, 0)
	require.Error(t, err)

	frames, err := NewFrames(device, 3)
	require.NoError(t, err)
	require.Equal(t, 3, frames.Len())
	require.Equal(t, 9, device.live)

	frames.Destroy()
	require.Equal(t, 0, device.live)
}

func TestNewFramesRollsBack(t *testing.T) {
	device := newFakeDevice()
	device.fail["fence"] = report.Allocation(errors.New("out of host memory"))

	_, err := NewFrames(device, 2)
	require.Equal(t, report.KindAllocation, report.Classify(err))
	require.Equal(t, 0, device.live)
	require.Equal(t, []string{"destroy semaphore#2", "destroy semaphore#1"}, device.callsWith("destroy"))
}
