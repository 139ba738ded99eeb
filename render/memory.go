package render

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"

	"github.com/vkngwrapper/triangle/report"
)

// FindMemoryType returns the first memory type allowed by typeBits that has
// every flag in properties.
func FindMemoryType(types []MemoryType, typeBits uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, memoryType := range types {
		typeBit := uint32(1) << uint(i)
		if typeBits&typeBit != 0 && memoryType.PropertyFlags&properties == properties {
			return i, nil
		}
	}
	return 0, report.Capability("no memory type in mask %#x has properties %s", typeBits, properties)
}

// BoundBuffer is a buffer together with the memory bound to it.
type BoundBuffer struct {
	Buffer *Buffer
	Memory *Memory
	Size   int
	scope  Scope
}

func (b *BoundBuffer) Destroy() {
	if b != nil {
		b.scope.Destroy()
	}
}

func NewBoundBuffer(device Device, types []MemoryType, size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*BoundBuffer, error) {
	var scope Scope
	defer scope.Destroy()

	buffer, err := device.CreateBuffer(size, usage)
	if err != nil {
		return nil, errors.Wrap(err, "create buffer")
	}
	Own(&scope, buffer)

	reqs := device.BufferMemoryRequirements(buffer)
	memory, err := allocate(device, types, reqs, properties)
	if err != nil {
		return nil, err
	}
	Own(&scope, memory)

	if err := device.BindBufferMemory(buffer, memory); err != nil {
		return nil, errors.Wrap(err, "bind buffer memory")
	}

	return &BoundBuffer{Buffer: buffer, Memory: memory, Size: size, scope: scope.Move()}, nil
}

// Write copies data to the start of the buffer's memory. The memory must be
// host visible.
func (b *BoundBuffer) Write(device Device, data []byte) error {
	if len(data) > b.Size {
		return errors.Newf("write of %d bytes overflows %d byte buffer", len(data), b.Size)
	}
	return device.WriteMemory(b.Memory, 0, data)
}

// BoundImage is an image together with the memory bound to it.
type BoundImage struct {
	Image  *Image
	Memory *Memory
	scope  Scope
}

func (b *BoundImage) Destroy() {
	if b != nil {
		b.scope.Destroy()
	}
}

func NewBoundImage(device Device, types []MemoryType, info ImageInfo, properties core1_0.MemoryPropertyFlags) (*BoundImage, error) {
	var scope Scope
	defer scope.Destroy()

	image, err := device.CreateImage(info)
	if err != nil {
		return nil, errors.Wrap(err, "create image")
	}
	Own(&scope, image)

	reqs := device.ImageMemoryRequirements(image)
	memory, err := allocate(device, types, reqs, properties)
	if err != nil {
		return nil, err
	}
	Own(&scope, memory)

	if err := device.BindImageMemory(image, memory); err != nil {
		return nil, errors.Wrap(err, "bind image memory")
	}

	return &BoundImage{Image: image, Memory: memory, scope: scope.Move()}, nil
}

func allocate(device Device, types []MemoryType, reqs MemoryRequirements, properties core1_0.MemoryPropertyFlags) (*Memory, error) {
	typeIndex, err := FindMemoryType(types, reqs.MemoryTypeBits, properties)
	if err != nil {
		return nil, err
	}

	memory, err := device.AllocateMemory(reqs.Size, typeIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "allocate %d bytes from memory type %d", reqs.Size, typeIndex)
	}
	return memory, nil
}
