package main

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/vkngwrapper/triangle/render"
)

//go:generate glslc shaders/shader.vert -o shaders/vert.spv
//go:generate glslc shaders/shader.frag -o shaders/frag.spv

// loadShaders reads both SPIR-V files concurrently. The bytes are handed to
// the renderer as-is.
func loadShaders(vertexPath, fragmentPath string) (render.ShaderCode, error) {
	var code render.ShaderCode
	var group errgroup.Group

	group.Go(func() error {
		data, err := os.ReadFile(vertexPath)
		if err != nil {
			return errors.Wrap(err, "load vertex shader")
		}
		code.Vertex = data
		return nil
	})

	group.Go(func() error {
		data, err := os.ReadFile(fragmentPath)
		if err != nil {
			return errors.Wrap(err, "load fragment shader")
		}
		code.Fragment = data
		return nil
	})

	return code, group.Wait()
}
