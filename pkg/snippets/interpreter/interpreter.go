// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package interpreter implements a portable kernel.Generator: instead of emitting machine code, it compiles an
// ops.Program into a list of instructions evaluated over blocks of up to Lanes elements.
//
// It honors the full kernel.CallArgs contract (data offsets, scheduler offsets, tile increments, broadcast
// mask and the broadcast scratch of shape-agnostic kernels), so it can run any configuration the subgraph
// scheduler produces.
package interpreter

import (
	"sync"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/gomlx/snippets/pkg/snippets/ops"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultLanes is the vector width used by New when lanes <= 0.
const DefaultLanes = 8

// float32Size in bytes, the only supported element type.
const float32Size = 4

// Generator implements kernel.Generator.
type Generator struct {
	lanes int
}

var _ kernel.Generator = (*Generator)(nil)

// New returns a Generator with the given vector width, in elements.
func New(lanes int) *Generator {
	if lanes <= 0 {
		lanes = DefaultLanes
	}
	return &Generator{lanes: lanes}
}

// Capabilities implements kernel.Generator.
func (g *Generator) Capabilities() kernel.Capabilities {
	return kernel.Capabilities{ShapeAgnostic: true, Lanes: g.lanes}
}

// Generate implements kernel.Generator. If args is nil it returns a shape-agnostic kernel.
func (g *Generator) Generate(program *ops.Program, args *kernel.CompileArgs) (kernel.Kernel, error) {
	if err := program.Validate(program.NumInputs(), program.NumOutputs()); err != nil {
		return nil, errors.WithMessage(err, "interpreter.Generate")
	}
	numInputs, numOutputs := program.NumInputs(), program.NumOutputs()
	if numInputs > kernel.MaxNumOperands || numOutputs > kernel.MaxNumOperands {
		return nil, errors.Errorf("interpreter.Generate: program %q has %d inputs and %d outputs, at most %d of each are supported",
			program.Name(), numInputs, numOutputs, kernel.MaxNumOperands)
	}
	c := &compiled{
		name:       program.Name(),
		numInputs:  numInputs,
		numOutputs: numOutputs,
		lanes:      g.lanes,
	}
	c.instructions = compileInstructions(program)
	c.outputs = make([]int, numOutputs)
	for ii, v := range program.Outputs() {
		c.outputs[ii] = int(v)
	}
	c.frames.New = func() any {
		numOperands := c.numInputs + c.numOutputs
		return &frame{
			registers: make([]float32, len(c.instructions)*c.lanes),
			positions: make([]int64, numOperands),
		}
	}

	if args == nil {
		klog.V(2).Infof("interpreter: generated shape-agnostic kernel for %q (%d ops)", c.name, len(c.instructions))
		return c.dynamicKernel, nil
	}
	if err := c.setStaticTables(args); err != nil {
		return nil, err
	}
	klog.V(2).Infof("interpreter: generated static kernel for %q (%d ops, master=%v)", c.name, len(c.instructions), args.MasterShape)
	return c.staticKernel, nil
}

// tables are the offset tables read by a kernel call, baked in or taken from kernel.CallArgs.
type tables struct {
	dataOffsets          []int64
	schedulerOffsets     []int64
	schedulerWorkAmounts [kernel.MaxTileRank]int64
	vectorIncrements     []int64
	scalarIncrements     []int64
	broadcastMask        []bool
}

// compiled program.
type compiled struct {
	name                  string
	numInputs, numOutputs int
	lanes                 int
	instructions          []instruction
	outputs               []int

	// Static kernels only.
	static      tables
	harnessRank int

	frames sync.Pool
}

// frame is the per-call working memory, pooled.
type frame struct {
	// registers holds lanes values per instruction.
	registers []float32

	// positions are the current byte offsets of each operand from its base pointer.
	positions []int64
}

func (c *compiled) setStaticTables(args *kernel.CompileArgs) error {
	numOperands := c.numInputs + c.numOutputs
	rank := len(args.MasterShape)
	if rank < 2 || rank > kernel.MaxTensorRank {
		return errors.Errorf("interpreter.Generate: invalid master shape %v for %q", args.MasterShape, c.name)
	}
	if args.DataSize != float32Size {
		return errors.Errorf("interpreter.Generate: only float32 is supported, got data size %d", args.DataSize)
	}
	if args.Lanes != 0 && args.Lanes != c.lanes {
		return errors.Errorf("interpreter.Generate: compiled for %d lanes, generator uses %d", args.Lanes, c.lanes)
	}
	if len(args.DataOffsets) != numOperands*(rank-1) {
		return errors.Errorf("interpreter.Generate: %d data offsets given, %d operands of rank %d require %d",
			len(args.DataOffsets), numOperands, rank, numOperands*(rank-1))
	}
	if len(args.SchedulerOffsets) != numOperands || len(args.BroadcastMask) != numOperands {
		return errors.Errorf("interpreter.Generate: scheduler offsets (%d) and broadcast mask (%d) must have one entry per operand (%d)",
			len(args.SchedulerOffsets), len(args.BroadcastMask), numOperands)
	}
	c.harnessRank = rank - 1
	t := &c.static
	t.dataOffsets = append([]int64(nil), args.DataOffsets...)
	t.schedulerOffsets = append([]int64(nil), args.SchedulerOffsets...)
	t.schedulerWorkAmounts = args.SchedulerWorkAmounts
	t.broadcastMask = append([]bool(nil), args.BroadcastMask...)
	t.vectorIncrements = make([]int64, numOperands)
	t.scalarIncrements = make([]int64, numOperands)
	for p, isBroadcast := range t.broadcastMask {
		if !isBroadcast {
			t.vectorIncrements[p] = int64(c.lanes * float32Size)
			t.scalarIncrements[p] = float32Size
		}
	}
	return nil
}

func (c *compiled) staticKernel(indices []int64, args *kernel.CallArgs) {
	if len(indices) != c.harnessRank {
		exceptions.Panicf("kernel %q: got %d harness indices, compiled for %d", c.name, len(indices), c.harnessRank)
	}
	c.run(indices, args, &c.static, false)
}

func (c *compiled) dynamicKernel(indices []int64, args *kernel.CallArgs) {
	t := tables{
		dataOffsets:          args.DataOffsets[:],
		schedulerOffsets:     args.SchedulerOffsets[:],
		schedulerWorkAmounts: args.SchedulerWorkAmounts,
		vectorIncrements:     args.VectorTileIncrements[:],
		scalarIncrements:     args.ScalarTileIncrements[:],
		broadcastMask:        args.BroadcastMask[:],
	}
	c.run(indices, args, &t, true)
}

// run processes one tile.
func (c *compiled) run(indices []int64, args *kernel.CallArgs, t *tables, useScratch bool) {
	f := c.frames.Get().(*frame)
	defer c.frames.Put(f)

	numOperands := c.numInputs + c.numOutputs
	stride := len(indices)
	for p := range numOperands {
		var pos int64
		offsets := t.dataOffsets[p*stride : (p+1)*stride]
		for d, idx := range indices {
			pos += idx * offsets[d]
		}
		f.positions[p] = pos
	}

	var scratch []float32
	if useScratch && len(args.Scratch) >= c.numInputs*c.lanes {
		scratch = args.Scratch
	}
	rows, cols := t.schedulerWorkAmounts[0], t.schedulerWorkAmounts[1]
	lanes := int64(c.lanes)
	for range rows {
		col := int64(0)
		for ; col+lanes <= cols; col += lanes {
			c.step(f, args, t, scratch, c.lanes)
			for p := range numOperands {
				f.positions[p] += t.vectorIncrements[p]
			}
		}
		for ; col < cols; col++ {
			c.step(f, args, t, scratch, 1)
			for p := range numOperands {
				f.positions[p] += t.scalarIncrements[p]
			}
		}
		for p := range numOperands {
			f.positions[p] += t.schedulerOffsets[p]
		}
	}
}

// step evaluates the program on n consecutive elements at the current positions.
func (c *compiled) step(f *frame, args *kernel.CallArgs, t *tables, scratch []float32, n int) {
	for ii := range c.instructions {
		inst := &c.instructions[ii]
		dst := f.registers[ii*c.lanes : ii*c.lanes+n]
		switch inst.kind {
		case instParameter:
			p := inst.param
			src := unsafe.Add(args.SrcPtrs[p], f.positions[p])
			if t.broadcastMask[p] {
				v := *(*float32)(src)
				if scratch != nil {
					// Physically broadcast into the scratch lanes of this input.
					lane := scratch[p*c.lanes : p*c.lanes+n]
					for l := range lane {
						lane[l] = v
					}
					copy(dst, lane)
				} else {
					for l := range dst {
						dst[l] = v
					}
				}
			} else {
				copy(dst, unsafe.Slice((*float32)(src), n))
			}
		case instConstant:
			for l := range dst {
				dst[l] = inst.constant
			}
		case instUnary:
			a := f.registers[inst.a*c.lanes:]
			for l := range dst {
				dst[l] = inst.unary(a[l])
			}
		case instBinary:
			a, b := f.registers[inst.a*c.lanes:], f.registers[inst.b*c.lanes:]
			for l := range dst {
				dst[l] = inst.binary(a[l], b[l])
			}
		case instTernary:
			a, b, cc := f.registers[inst.a*c.lanes:], f.registers[inst.b*c.lanes:], f.registers[inst.c*c.lanes:]
			for l := range dst {
				dst[l] = inst.ternary(a[l], b[l], cc[l])
			}
		}
	}
	for jj, v := range c.outputs {
		p := c.numInputs + jj
		out := unsafe.Slice((*float32)(unsafe.Add(args.DstPtrs[jj], f.positions[p])), n)
		copy(out, f.registers[v*c.lanes:v*c.lanes+n])
	}
}
