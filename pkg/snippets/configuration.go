// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/pkg/errors"
)

// Configuration is the execution domain derived for one set of operand shapes. It is immutable once built:
// a shape change builds a new Configuration.
type Configuration struct {
	// TensorRank of all normalized shapes.
	TensorRank int

	// Dynamic is set if the configuration is for a shape-agnostic kernel.
	Dynamic bool

	// Inputs and Outputs are the normalized (left-padded) operand shapes, before collapsing.
	Inputs, Outputs []shapes.Shape

	// Master is the normalized broadcast merge of the operand shapes, before collapsing.
	Master shapes.Shape

	// CollapsedInputs, CollapsedOutputs and CollapsedMaster are the dimensions after the domain optimizer.
	CollapsedInputs, CollapsedOutputs [][]int
	CollapsedMaster                   []int

	// ExecDomain is CollapsedMaster with the tiled (innermost TileRank) dimensions set to 1.
	ExecDomain []int

	// TileRank is the number of innermost dimensions looped over by the kernel.
	TileRank int

	// FullWorkAmount is the number of elements of the master shape.
	FullWorkAmount int

	// HarnessWorkAmount is the number of kernel calls to cover the domain: FullWorkAmount divided by the
	// tiled dimensions.
	HarnessWorkAmount int

	// SchedulerWorkAmounts are the tile extents, in the kernel's loop order: rows, elements per row.
	SchedulerWorkAmounts [kernel.MaxTileRank]int64

	JITParams

	// DataSize is the element size in bytes.
	DataSize int

	// Lanes is the vector width used to compute the tile increments.
	Lanes int
}

// BuildParams are the parameters of BuildConfiguration.
type BuildParams struct {
	// MinimalConcurrency is the number of workers the outer loops should keep busy.
	MinimalConcurrency int

	// MinimalJitWorkAmount is the innermost work amount the domain optimizer aims for.
	MinimalJitWorkAmount int

	// Lanes is the kernel vector width, in elements.
	Lanes int

	// Dynamic builds the tables for a shape-agnostic kernel.
	Dynamic bool
}

// BuildConfiguration derives the execution domain for static normalized operand shapes and their master
// shape: it runs the domain optimizer on copies of the shapes, computes the kernel tables and moves the
// innermost TileRank dimensions to the scheduler work amounts.
func BuildConfiguration(inputs, outputs []shapes.Shape, master shapes.Shape, params BuildParams) (*Configuration, error) {
	if master.IsDynamic() {
		return nil, errors.Wrapf(ErrShapeMismatch, "can't build a configuration for dynamic master shape %s", master)
	}
	rank := master.Rank()
	cfg := &Configuration{
		TensorRank:     rank,
		Dynamic:        params.Dynamic,
		Inputs:         inputs,
		Outputs:        outputs,
		Master:         master,
		FullWorkAmount: master.Size(),
		DataSize:       int(master.DType.Memory()),
		Lanes:          params.Lanes,
	}
	cfg.CollapsedInputs = make([][]int, len(inputs))
	for ii, s := range inputs {
		if s.Rank() != rank || s.IsDynamic() {
			return nil, errors.Wrapf(ErrShapeMismatch, "input #%d %s must be static and of rank %d", ii, s, rank)
		}
		cfg.CollapsedInputs[ii] = slices.Clone(s.Dimensions)
	}
	cfg.CollapsedOutputs = make([][]int, len(outputs))
	for ii, s := range outputs {
		if s.Rank() != rank || s.IsDynamic() {
			return nil, errors.Wrapf(ErrShapeMismatch, "output #%d %s must be static and of rank %d", ii, s, rank)
		}
		cfg.CollapsedOutputs[ii] = slices.Clone(s.Dimensions)
	}
	cfg.CollapsedMaster = slices.Clone(master.Dimensions)

	cfg.TileRank = OptimizeExecDomain(cfg.CollapsedInputs, cfg.CollapsedOutputs, cfg.CollapsedMaster,
		params.MinimalConcurrency, params.MinimalJitWorkAmount)
	cfg.JITParams = CalcJITParams(cfg.CollapsedInputs, cfg.CollapsedOutputs, cfg.CollapsedMaster,
		cfg.TileRank, cfg.DataSize, params.Lanes, params.Dynamic)

	cfg.ExecDomain = slices.Clone(cfg.CollapsedMaster)
	for ii := range cfg.SchedulerWorkAmounts {
		cfg.SchedulerWorkAmounts[ii] = 1
	}
	cfg.HarnessWorkAmount = cfg.FullWorkAmount
	for ii := range cfg.TileRank {
		axis := rank - 1 - ii
		extent := cfg.ExecDomain[axis]
		if extent != 0 {
			cfg.HarnessWorkAmount /= extent
		}
		cfg.SchedulerWorkAmounts[kernel.MaxTileRank-1-ii] = int64(extent)
		cfg.ExecDomain[axis] = 1
	}
	if cfg.FullWorkAmount == 0 {
		cfg.HarnessWorkAmount = product(cfg.ExecDomain)
	}
	return cfg, nil
}

// HarnessRank is the number of outer dimensions the scheduler iterates over, not counting the tiled ones.
func (cfg *Configuration) HarnessRank() int {
	return len(cfg.ExecDomain) - cfg.TileRank
}

// HasBroadcast returns whether any operand is broadcast on the innermost dimension.
func (cfg *Configuration) HasBroadcast() bool {
	return slices.Contains(cfg.BroadcastMask, true)
}

// NumOperands is the number of inputs plus outputs.
func (cfg *Configuration) NumOperands() int {
	return len(cfg.Inputs) + len(cfg.Outputs)
}

// CompileArgs returns the tables baked into a static kernel.
func (cfg *Configuration) CompileArgs() *kernel.CompileArgs {
	return &kernel.CompileArgs{
		MasterShape:          slices.Clone(cfg.CollapsedMaster),
		DataOffsets:          slices.Clone(cfg.DataOffsets),
		SchedulerOffsets:     slices.Clone(cfg.SchedulerOffsets),
		SchedulerWorkAmounts: cfg.SchedulerWorkAmounts,
		BroadcastMask:        slices.Clone(cfg.BroadcastMask),
		Lanes:                cfg.Lanes,
		DataSize:             cfg.DataSize,
	}
}

// fillCallArgs copies the tables read by shape-agnostic kernels into args.
func (cfg *Configuration) fillCallArgs(args *kernel.CallArgs) {
	copy(args.DataOffsets[:], cfg.DataOffsets)
	copy(args.SchedulerOffsets[:], cfg.SchedulerOffsets)
	args.SchedulerWorkAmounts = cfg.SchedulerWorkAmounts
	copy(args.VectorTileIncrements[:], cfg.VectorTileIncrements)
	copy(args.ScalarTileIncrements[:], cfg.ScalarTileIncrements)
	copy(args.BroadcastMask[:], cfg.BroadcastMask)
}

// String returns a multi-line summary of the configuration.
func (cfg *Configuration) String() string {
	var sb strings.Builder
	w := func(format string, args ...any) { _, _ = fmt.Fprintf(&sb, format, args...) }
	w("Configuration(rank=%d, dynamic=%v):\n", cfg.TensorRank, cfg.Dynamic)
	w("\tmaster: %s -> %v\n", cfg.Master, cfg.CollapsedMaster)
	for ii, s := range cfg.Inputs {
		w("\tinput #%d: %s -> %v\n", ii, s, cfg.CollapsedInputs[ii])
	}
	for ii, s := range cfg.Outputs {
		w("\toutput #%d: %s -> %v\n", ii, s, cfg.CollapsedOutputs[ii])
	}
	w("\ttile rank: %d, exec domain: %v\n", cfg.TileRank, cfg.ExecDomain)
	w("\twork: full=%d, harness=%d, tile=%v\n", cfg.FullWorkAmount, cfg.HarnessWorkAmount, cfg.SchedulerWorkAmounts)
	w("\tbroadcast mask: %v\n", cfg.BroadcastMask)
	w("\tdata offsets: %v\n", cfg.DataOffsets)
	w("\tscheduler offsets: %v\n", cfg.SchedulerOffsets)
	return sb.String()
}
