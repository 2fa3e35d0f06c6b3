// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"strconv"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/pkg/errors"
)

// parseShapes parses a ";" separated list of float32 shapes, each with its dimensions separated by "x".
// A "?" dimension is dynamic, and "scalar" is a shape without dimensions. Example: "2x?x4;1x1x4;scalar".
func parseShapes(list string) ([]shapes.Shape, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}
	var result []shapes.Shape
	for _, part := range strings.Split(list, ";") {
		part = strings.TrimSpace(part)
		if part == "scalar" {
			result = append(result, shapes.Make(dtypes.Float32))
			continue
		}
		if part == "" {
			return nil, errors.Errorf("empty shape in %q, use \"scalar\" for shapes without dimensions", list)
		}
		var dims []int
		for _, dimStr := range strings.Split(part, "x") {
			dimStr = strings.TrimSpace(dimStr)
			if dimStr == "?" {
				dims = append(dims, shapes.DynamicDim)
				continue
			}
			dim, err := strconv.Atoi(dimStr)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid dimension %q in shape %q", dimStr, part)
			}
			if dim < 0 {
				return nil, errors.Errorf("negative dimension %d in shape %q, use \"?\" for dynamic dimensions", dim, part)
			}
			dims = append(dims, dim)
		}
		result = append(result, shapes.Make(dtypes.Float32, dims...))
	}
	return result, nil
}

// resolveShape replaces the dynamic dimensions of a shape by the given value.
func resolveShape(s shapes.Shape, dynamicValue int) shapes.Shape {
	s = s.Clone()
	for axis, dim := range s.Dimensions {
		if dim == shapes.DynamicDim {
			s.Dimensions[axis] = dynamicValue
		}
	}
	return s
}
