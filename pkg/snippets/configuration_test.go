// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"testing"

	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStatic(t *testing.T, inputs, outputs []shapes.Shape, workers int) *Configuration {
	normInputs, normOutputs, master, err := Canonicalize(inputs, outputs, TensorRank(inputs, outputs))
	require.NoError(t, err)
	cfg, err := BuildConfiguration(normInputs, normOutputs, master, BuildParams{
		MinimalConcurrency:   workers,
		MinimalJitWorkAmount: DefaultMinimalJitWorkAmount,
		Lanes:                DefaultLanes,
	})
	require.NoError(t, err)
	return cfg
}

func TestBuildConfiguration(t *testing.T) {
	t.Run("no collapsing", func(t *testing.T) {
		cfg := buildStatic(t, []shapes.Shape{f32(2, 4, 1024), f32(2, 4, 1024)}, []shapes.Shape{f32(2, 4, 1024)}, 4)
		assert.Equal(t, 1, cfg.TileRank)
		assert.Equal(t, []int{1, 1, 1, 2, 4, 1024}, cfg.CollapsedMaster)
		assert.Equal(t, []int{1, 1, 1, 2, 4, 1}, cfg.ExecDomain)
		assert.Equal(t, [kernel.MaxTileRank]int64{1, 1024}, cfg.SchedulerWorkAmounts)
		assert.Equal(t, 8*1024, cfg.FullWorkAmount)
		assert.Equal(t, 8, cfg.HarnessWorkAmount)
		assert.Equal(t, 5, cfg.HarnessRank())
		assert.Equal(t, 4, cfg.DataSize)
		assert.False(t, cfg.HasBroadcast())
	})

	t.Run("2D tile", func(t *testing.T) {
		cfg := buildStatic(t, []shapes.Shape{f32(1, 3, 8, 8), f32(1, 3, 1, 8)}, []shapes.Shape{f32(1, 3, 8, 8)}, 1)
		assert.Equal(t, 2, cfg.TileRank)
		assert.Equal(t, []int{1, 1, 1, 3, 1, 1}, cfg.ExecDomain)
		assert.Equal(t, [kernel.MaxTileRank]int64{8, 8}, cfg.SchedulerWorkAmounts)
		assert.Equal(t, 3, cfg.HarnessWorkAmount)
		assert.Equal(t, 4, cfg.HarnessRank())
		// Normalized shapes are kept as they were before collapsing.
		assert.Equal(t, []int{1, 1, 1, 3, 1, 8}, cfg.Inputs[1].Dimensions)
		assert.Contains(t, cfg.String(), "tile rank: 2")

		args := cfg.CompileArgs()
		assert.Equal(t, cfg.CollapsedMaster, args.MasterShape)
		assert.Equal(t, cfg.DataOffsets, args.DataOffsets)
		assert.Equal(t, cfg.SchedulerWorkAmounts, args.SchedulerWorkAmounts)
		assert.Equal(t, DefaultLanes, args.Lanes)
	})

	t.Run("collapsed", func(t *testing.T) {
		cfg := buildStatic(t, []shapes.Shape{f32(2, 2, 2, 2, 2, 64)}, []shapes.Shape{f32(2, 2, 2, 2, 2, 64)}, 4)
		assert.Equal(t, []int{1, 1, 2, 2, 2, 256}, cfg.CollapsedMaster)
		assert.Equal(t, []int{1, 1, 2, 2, 2, 256}, cfg.CollapsedInputs[0])
		assert.Equal(t, []int{1, 1, 2, 2, 2, 1}, cfg.ExecDomain)
		assert.Equal(t, 8, cfg.HarnessWorkAmount)
		// The master before collapsing is kept.
		assert.Equal(t, []int{2, 2, 2, 2, 2, 64}, cfg.Master.Dimensions)
	})

	t.Run("dynamic master is rejected", func(t *testing.T) {
		_, err := BuildConfiguration(nil, nil, f32(1, 1, 1, 1, shapes.DynamicDim, 8), BuildParams{MinimalConcurrency: 1})
		require.ErrorIs(t, err, ErrShapeMismatch)
	})
}

// Building twice from the same static shapes yields identical tables.
func TestBuildConfigurationIsDeterministic(t *testing.T) {
	inputs := []shapes.Shape{f32(5, 1, 7), f32(6, 1), f32(1)}
	outputs := []shapes.Shape{f32(5, 6, 7), f32(5, 6, 7)}
	for _, workers := range []int{1, 3, 16} {
		first := buildStatic(t, inputs, outputs, workers)
		second := buildStatic(t, inputs, outputs, workers)
		assert.Equal(t, first.DataOffsets, second.DataOffsets)
		assert.Equal(t, first.SchedulerOffsets, second.SchedulerOffsets)
		assert.Equal(t, first.SchedulerWorkAmounts, second.SchedulerWorkAmounts)
		assert.Equal(t, first.HarnessWorkAmount, second.HarnessWorkAmount)
		assert.Equal(t, first, second)
	}
}
