// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/gomlx/snippets/pkg/snippets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShapes(t *testing.T) {
	list, err := parseShapes("2x?x4; 1x1x4;scalar")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{2, shapes.DynamicDim, 4}, list[0].Dimensions)
	assert.Equal(t, []int{1, 1, 4}, list[1].Dimensions)
	assert.Equal(t, 0, list[2].Rank())
	assert.Equal(t, []int{2, 3, 4}, resolveShape(list[0], 3).Dimensions)
	assert.Equal(t, shapes.DynamicDim, list[0].Dimensions[1])

	list, err = parseShapes("")
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, bad := range []string{"2x;3", "2xa", "2x-3", "4;;4"} {
		_, err = parseShapes(bad)
		require.Error(t, err, "shapes %q", bad)
	}
}

func TestBuildProgram(t *testing.T) {
	program, err := buildProgram("max", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, program.NumInputs())
	assert.Equal(t, 2, program.NumOutputs())
	assert.Equal(t, []float32{5, 6}, program.Eval(1, 5, -2))

	_, err = buildProgram("cos", 2, 1)
	require.Error(t, err)
	_, err = buildProgram("add", 0, 1)
	require.Error(t, err)
}

func TestPlanSections(t *testing.T) {
	program, err := buildProgram("add", 2, 1)
	require.NoError(t, err)
	list, err := parseShapes("4x16;4x1")
	require.NoError(t, err)
	out, err := parseShapes("4x16")
	require.NoError(t, err)
	opts := snippets.DefaultOptions()
	opts.NumWorkers = 1
	sg, err := snippets.New(program, list, out, opts)
	require.NoError(t, err)

	sections := planSections(program, sg, opts)
	require.Len(t, sections, 3)
	operands := sections[2]
	require.Len(t, operands.rows, 3)
	// Only input #1 broadcasts on the innermost axis.
	assert.False(t, operands.highlight(operands.rows[0]))
	assert.True(t, operands.highlight(operands.rows[1]))
	assert.False(t, operands.highlight(operands.rows[2]))
	assert.Contains(t, sections[1].render(), "Execution Domain")
	assert.Contains(t, operands.render(), "input #1")
}
