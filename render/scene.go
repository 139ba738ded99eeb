package render

import (
	"bytes"
	"encoding/binary"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

const spirvMagic = 0x07230203

type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

// Triangle is the default scene: one triangle with a red, green and blue corner.
var Triangle = []Vertex{
	{Position: mgl32.Vec3{0, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}},
	{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 1, 0}},
	{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}},
}

func VertexBindings() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func VertexAttributes() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
	}
}

// ShaderCode holds compiled SPIR-V for the two pipeline stages.
type ShaderCode struct {
	Vertex   []byte
	Fragment []byte
}

// BytesToBytecode reinterprets a SPIR-V file as 32-bit words.
func BytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("spir-v length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	if byteCode[0] != spirvMagic {
		return nil, errors.Newf("bad spir-v magic %#08x", byteCode[0])
	}

	return byteCode, nil
}

// Scene is everything the draw needs that survives a swapchain rebuild.
type Scene struct {
	Vertex      *ShaderModule
	Fragment    *ShaderModule
	Layout      *PipelineLayout
	Vertices    *BoundBuffer
	VertexCount int
	Camera      mgl32.Mat4

	scope Scope
}

func (s *Scene) Destroy() {
	if s != nil {
		s.scope.Destroy()
	}
}

func NewScene(device Device, types []MemoryType, shaders ShaderCode, vertices []Vertex, camera mgl32.Mat4) (*Scene, error) {
	if len(vertices) == 0 {
		return nil, errors.New("scene has no vertices")
	}

	var scope Scope
	defer scope.Destroy()

	vertexShader, err := shaderModule(device, shaders.Vertex)
	if err != nil {
		return nil, errors.Wrap(err, "vertex shader")
	}
	Own(&scope, vertexShader)

	fragmentShader, err := shaderModule(device, shaders.Fragment)
	if err != nil {
		return nil, errors.Wrap(err, "fragment shader")
	}
	Own(&scope, fragmentShader)

	layout, err := device.CreatePipelineLayout(binary.Size(camera))
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	Own(&scope, layout)

	vertexData, err := encode(vertices)
	if err != nil {
		return nil, err
	}

	buffer, err := NewBoundBuffer(device, types, len(vertexData),
		core1_0.BufferUsageVertexBuffer,
		core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffer")
	}
	Own(&scope, buffer)

	if err := buffer.Write(device, vertexData); err != nil {
		return nil, errors.Wrap(err, "upload vertices")
	}

	return &Scene{
		Vertex:      vertexShader,
		Fragment:    fragmentShader,
		Layout:      layout,
		Vertices:    buffer,
		VertexCount: len(vertices),
		Camera:      camera,
		scope:       scope.Move(),
	}, nil
}

// PushConstants is the camera transform as the vertex stage reads it.
func (s *Scene) PushConstants() ([]byte, error) {
	return encode(s.Camera)
}

func shaderModule(device Device, spirv []byte) (*ShaderModule, error) {
	code, err := BytesToBytecode(spirv)
	if err != nil {
		return nil, err
	}
	return device.CreateShaderModule(code)
}

func encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := binary.Write(buf, common.ByteOrder, data); err != nil {
		return nil, errors.Wrap(err, "encode")
	}
	return buf.Bytes(), nil
}
