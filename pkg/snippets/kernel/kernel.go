// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package kernel defines the contract between the subgraph scheduler and a kernel code generator.
//
// A Generator compiles an ops.Program into a Kernel. The scheduler calls the Kernel once per harness index
// tuple (the outer loop indices), and the Kernel processes the inner tile: SchedulerWorkAmounts[0] rows of
// SchedulerWorkAmounts[1] elements each.
//
// For operand p (inputs first, then outputs) the tile starts at
//
//	ptr[p] = base[p] + Σ_d indices[d] * DataOffsets[p*len(indices) + d]
//
// and within the tile:
//
//   - Each row is processed in vector steps of the generator's lane width, followed by a scalar tail.
//     After each step the pointer of operand p advances by VectorTileIncrements[p] (resp. ScalarTileIncrements[p])
//     bytes. Broadcast operands (BroadcastMask[p]) have zero increments and read one scalar.
//   - After each row the pointer advances by SchedulerOffsets[p] bytes.
//
// Static kernels get all tables at compile time (CompileArgs), while shape-agnostic (dynamic) kernels read
// them from CallArgs on every call.
package kernel

import (
	"fmt"
	"unsafe"

	"github.com/gomlx/snippets/pkg/snippets/ops"
	"github.com/google/uuid"
)

const (
	// MaxTensorRank is the maximum rank of the normalized operand shapes.
	MaxTensorRank = 8

	// MaxNumOperands is the maximum number of inputs, and separately of outputs, of a subgraph.
	MaxNumOperands = 16

	// MaxTileRank is the maximum number of innermost dimensions processed by one kernel call.
	MaxTileRank = 2

	// Rank6D is the tensor rank the 6-D schedulers work on: 5 harness dimensions plus the innermost tile.
	Rank6D = 6

	// MaxHarnessDims is the maximum number of outer (harness) dimensions a kernel accepts.
	MaxHarnessDims = 5

	// MaxOffsets is the capacity of the data offsets table.
	MaxOffsets = 2 * MaxNumOperands * (MaxTensorRank - 1)
)

// CompileArgs holds the tables baked into a static kernel.
type CompileArgs struct {
	// MasterShape is the collapsed execution domain before the tile dimensions are moved to the
	// scheduler work amounts.
	MasterShape []int

	// DataOffsets in bytes, laid out operand*(rank-1) + dim.
	DataOffsets []int64

	// SchedulerOffsets in bytes, one per operand.
	SchedulerOffsets []int64

	// SchedulerWorkAmounts are the tile extents: rows, elements per row.
	SchedulerWorkAmounts [MaxTileRank]int64

	// BroadcastMask, one per operand: operand's innermost extent is 1 while the master's is not.
	BroadcastMask []bool

	// Lanes is the vector width in elements.
	Lanes int

	// DataSize is the element size in bytes.
	DataSize int
}

// CallArgs are the per-call arguments of a Kernel.
//
// Pointers are already advanced by the operands' leading padding. For static kernels only the pointers are
// filled in, the other fields are only read by shape-agnostic kernels.
type CallArgs struct {
	SrcPtrs [MaxNumOperands]unsafe.Pointer
	DstPtrs [MaxNumOperands]unsafe.Pointer

	DataOffsets          [MaxOffsets]int64
	SchedulerOffsets     [2 * MaxNumOperands]int64
	SchedulerWorkAmounts [MaxTileRank]int64
	VectorTileIncrements [2 * MaxNumOperands]int64
	ScalarTileIncrements [2 * MaxNumOperands]int64
	BroadcastMask        [2 * MaxNumOperands]bool

	// Scratch is used by shape-agnostic kernels to materialize broadcast inputs: Lanes values per input.
	// Each concurrently running kernel call must own its Scratch.
	Scratch []float32
}

// Kernel processes one tile of the execution domain. indices has one entry per harness dimension
// (tensor rank - 1).
type Kernel func(indices []int64, args *CallArgs)

// Capabilities describes what a Generator supports.
type Capabilities struct {
	// ShapeAgnostic indicates the generator can produce kernels for dynamic shapes (Generate with nil
	// CompileArgs).
	ShapeAgnostic bool

	// Lanes is the vector width in elements of the generated code.
	Lanes int
}

// Generator compiles a Program into a Kernel.
type Generator interface {
	// Generate a kernel for the program. If args is nil, it must generate a shape-agnostic kernel that reads
	// its tables from CallArgs.
	Generate(program *ops.Program, args *CompileArgs) (Kernel, error)

	// Capabilities of the generator.
	Capabilities() Capabilities
}

// Schedule is a generated Kernel plus the harness metadata needed to dispatch it.
type Schedule struct {
	// ID is used to correlate log messages of a schedule.
	ID uuid.UUID

	Kernel Kernel

	// HarnessWorkAmount is the number of kernel calls needed to cover the execution domain.
	HarnessWorkAmount int

	// ExecDomain with the tile dimensions set to 1.
	ExecDomain []int

	// Dynamic is set when Kernel is shape-agnostic.
	Dynamic bool
}

// NewSchedule returns a Schedule with a fresh ID.
func NewSchedule(k Kernel, dynamic bool) *Schedule {
	return &Schedule{ID: uuid.New(), Kernel: k, Dynamic: dynamic}
}

// String implements fmt.Stringer.
func (s *Schedule) String() string {
	if s == nil {
		return "Schedule(nil)"
	}
	return fmt.Sprintf("Schedule(id=%s, dynamic=%v, domain=%v, harness=%d)",
		s.ID, s.Dynamic, s.ExecDomain, s.HarnessWorkAmount)
}
