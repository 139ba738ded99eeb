package render

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Presenter runs the per-frame acquire/submit/present cycle against a
// Target using the frame-in-flight slots in Frames.
type Presenter struct {
	device   Device
	graphics *Queue
	present  *Queue
	frames   *Frames
	timeout  time.Duration

	// imagesInFlight is the fence of the last submission that used each
	// swapchain image's command buffer.
	imagesInFlight []*Fence
}

func NewPresenter(device Device, graphics, present *Queue, frames *Frames, timeout time.Duration) *Presenter {
	return &Presenter{
		device:   device,
		graphics: graphics,
		present:  present,
		frames:   frames,
		timeout:  timeout,
	}
}

func (p *Presenter) Frames() *Frames {
	return p.frames
}

// Reset forgets per-image bookkeeping after the target is rebuilt.
func (p *Presenter) Reset(imageCount int) {
	p.imagesInFlight = make([]*Fence, imageCount)
}

// Draw presents one frame. A stale error means target must be rebuilt before
// the next call. A timeout can only come from the slot fence or from acquire,
// before any image is held, so the call can simply be repeated.
func (p *Presenter) Draw(target *Target) error {
	if len(p.imagesInFlight) != target.ImageCount() {
		p.Reset(target.ImageCount())
	}

	slot := p.frames.Slot()

	err := p.device.WaitForFence(slot.InFlight, p.timeout)
	if err != nil {
		return errors.Wrapf(err, "frame %d: wait for in flight fence", p.frames.Current())
	}

	imageIndex, err := p.device.AcquireNextImage(target.Swapchain, p.timeout, slot.ImageAvailable)
	if err != nil {
		return errors.Wrapf(err, "frame %d: acquire swapchain image", p.frames.Current())
	}

	if imageIndex < 0 || imageIndex >= len(target.CommandBuffers) {
		return errors.Newf("frame %d: driver returned image %d of %d", p.frames.Current(), imageIndex, len(target.CommandBuffers))
	}

	// A command buffer may still be pending from another slot's submission.
	// The image is already acquired here, so this wait is unbounded: giving
	// up would strand the image and leave ImageAvailable with a pending signal.
	if previous := p.imagesInFlight[imageIndex]; previous != nil && previous != slot.InFlight {
		err = p.device.WaitForFence(previous, 0)
		if err != nil {
			return errors.Wrapf(err, "image %d: wait for previous submission", imageIndex)
		}
	}
	p.imagesInFlight[imageIndex] = slot.InFlight

	err = p.device.Submit(p.graphics, target.CommandBuffers[imageIndex], slot.ImageAvailable, slot.RenderFinished, slot.InFlight)
	if err != nil {
		return errors.Wrapf(err, "frame %d: submit image %d", p.frames.Current(), imageIndex)
	}

	err = p.device.Present(p.present, target.Swapchain, imageIndex, slot.RenderFinished)
	p.frames.advance()
	if err != nil {
		return errors.Wrapf(err, "present image %d", imageIndex)
	}

	return nil
}
