package render

import (
	"github.com/cockroachdb/errors"
)

// DefaultFramesInFlight lets the CPU prepare one frame while the GPU draws another.
const DefaultFramesInFlight = 2

// FrameSync is one frame-in-flight slot. InFlight guards reuse of the slot:
// it is created signaled and must be signaled again before the slot's
// semaphores or its last command buffer are touched.
type FrameSync struct {
	InFlight       *Fence
	ImageAvailable *Semaphore
	RenderFinished *Semaphore
}

// Frames is the rotating set of frame-in-flight slots.
type Frames struct {
	slots   []FrameSync
	current int
	scope   Scope
}

func NewFrames(device Device, count int) (*Frames, error) {
	if count < 1 {
		return nil, errors.Newf("need at least one frame in flight, got %d", count)
	}

	var scope Scope
	defer scope.Destroy()

	frames := &Frames{}
	for i := 0; i < count; i++ {
		var slot FrameSync
		var err error

		slot.ImageAvailable, err = device.CreateSemaphore()
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d: create image available semaphore", i)
		}
		Own(&scope, slot.ImageAvailable)

		slot.RenderFinished, err = device.CreateSemaphore()
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d: create render finished semaphore", i)
		}
		Own(&scope, slot.RenderFinished)

		slot.InFlight, err = device.CreateFence(true)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d: create in flight fence", i)
		}
		Own(&scope, slot.InFlight)

		frames.slots = append(frames.slots, slot)
	}

	frames.scope = scope.Move()
	return frames, nil
}

func (f *Frames) Len() int {
	return len(f.slots)
}

// Current is the index of the slot the next frame uses.
func (f *Frames) Current() int {
	return f.current
}

func (f *Frames) Slot() FrameSync {
	return f.slots[f.current]
}

func (f *Frames) advance() {
	f.current = (f.current + 1) % len(f.slots)
}

func (f *Frames) Destroy() {
	if f != nil {
		f.scope.Destroy()
		f.slots = nil
	}
}
