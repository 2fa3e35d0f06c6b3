// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package snippets plans and executes fused subgraphs of elementwise float32 operations.
//
// A Subgraph takes an ops.Program and the shapes of its operands, and:
//
//  1. Canonicalizes the shapes: left-pads them to a common rank (at least 6) and merges them into the
//     broadcast "master" shape.
//  2. Optimizes the execution domain: collapses trailing dimensions so each kernel call gets enough
//     contiguous work, while keeping enough outer work to feed all workers (OptimizeExecDomain).
//  3. Computes the per-operand byte offsets and broadcast flags read by the kernel (CalcJITParams).
//  4. Obtains a kernel.Kernel from a kernel.Generator: once for static shapes, or a single shape-agnostic
//     kernel for dynamic shapes.
//  5. Dispatches the kernel over the execution domain with one of the Strategy values.
//
// For dynamic shapes (shapes.DynamicDim) steps 1 to 3 run again on every call with the runtime shapes,
// see Subgraph.Run.
//
// Example:
//
//	p := ops.NewProgram("add")
//	p.Return(p.Add(p.Parameter(), p.Parameter()))
//	sg, err := snippets.New(p, []shapes.Shape{xShape, yShape}, []shapes.Shape{outShape}, snippets.DefaultOptions())
//	...
//	err = sg.Run([]*snippets.Buffer{x, y}, []*snippets.Buffer{out})
package snippets

import (
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/snippets/internal/workerspool"
	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/gomlx/snippets/pkg/snippets/interpreter"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/gomlx/snippets/pkg/snippets/ops"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Subgraph is a fused subgraph ready to be executed.
//
// It is safe for concurrent use: configurations are immutable and swapped atomically, and the rebuild and
// execution of dynamic configurations is serialized.
type Subgraph struct {
	program *ops.Program
	opts    Options

	pool      *workerspool.Pool
	binder    *binder
	scheduler *scheduler

	// Declared shapes, and their normalized versions.
	inputShapes, outputShapes []shapes.Shape
	normInputs, normOutputs   []shapes.Shape
	master                    shapes.Shape
	tensorRank                int
	isDynamic                 bool

	// mu serializes (re)building configurations and the execution of dynamic ones.
	mu    sync.Mutex
	bound atomic.Pointer[boundConfiguration]
}

// boundConfiguration is a Configuration plus its schedule, swapped atomically.
type boundConfiguration struct {
	cfg      *Configuration
	schedule *kernel.Schedule
	strategy Strategy

	// disabled is set, with the reason, if the optimized path can't be used for this configuration.
	disabled error
}

// New creates a Subgraph for the program, with the given declared input and output shapes.
//
// Shapes may have different ranks, and may include shapes.DynamicDim dimensions. For static shapes the
// kernel is generated immediately. For dynamic shapes the shape-agnostic kernel is generated, and each call
// must be preceded by PrepareParams (Run does that).
func New(program *ops.Program, inputShapes, outputShapes []shapes.Shape, opts Options) (*Subgraph, error) {
	if err := program.Validate(len(inputShapes), len(outputShapes)); err != nil {
		return nil, err
	}
	if opts.Lanes <= 0 {
		opts.Lanes = DefaultLanes
	}
	if opts.MinimalJitWorkAmount <= 0 {
		opts.MinimalJitWorkAmount = DefaultMinimalJitWorkAmount
	}
	if opts.Generator == nil {
		opts.Generator = interpreter.New(opts.Lanes)
	}
	if lanes := opts.Generator.Capabilities().Lanes; lanes != 0 && lanes != opts.Lanes {
		return nil, errors.Errorf("kernel generator %T uses %d lanes, but Options.Lanes=%d", opts.Generator, lanes, opts.Lanes)
	}

	sg := &Subgraph{
		program:      program,
		opts:         opts,
		pool:         workerspool.NewWithParallelism(opts.NumWorkers),
		inputShapes:  cloneShapes(inputShapes),
		outputShapes: cloneShapes(outputShapes),
	}
	sg.binder = newBinder(opts.Generator, program)
	sg.scheduler = newScheduler(sg.pool, opts.Partitioning, opts.Lanes)
	sg.tensorRank = TensorRank(inputShapes, outputShapes)
	var err error
	sg.normInputs, sg.normOutputs, sg.master, err = Canonicalize(inputShapes, outputShapes, sg.tensorRank)
	if err != nil {
		return nil, errors.WithMessagef(err, "program %q", program.Name())
	}
	for _, s := range append(sg.normInputs, sg.normOutputs...) {
		sg.isDynamic = sg.isDynamic || s.IsDynamic()
	}

	if sg.isDynamic {
		if sg.tensorRank != kernel.Rank6D {
			return nil, errors.Wrapf(ErrRankLimit, "program %q: dynamic shapes support only rank up to %d, got %d",
				program.Name(), kernel.Rank6D, sg.tensorRank)
		}
		if err := sg.binder.generateShapeAgnostic(); err != nil {
			return nil, err
		}
		klog.V(1).Infof("snippets: program %q: dynamic subgraph, master shape %s", program.Name(), sg.master)
		return sg, nil
	}
	if err := sg.PrepareParams(nil); err != nil {
		return nil, err
	}
	return sg, nil
}

func cloneShapes(list []shapes.Shape) []shapes.Shape {
	cloned := make([]shapes.Shape, len(list))
	for ii, s := range list {
		cloned[ii] = s.Clone()
	}
	return cloned
}

// IsDynamic returns whether any declared shape has dynamic dimensions.
func (sg *Subgraph) IsDynamic() bool { return sg.isDynamic }

// TensorRank is the rank all shapes are normalized to.
func (sg *Subgraph) TensorRank() int { return sg.tensorRank }

// MasterShape returns the normalized master shape of the declared shapes. It may have dynamic dimensions.
func (sg *Subgraph) MasterShape() shapes.Shape { return sg.master.Clone() }

// NumWorkers used by the schedulers.
func (sg *Subgraph) NumWorkers() int { return sg.pool.NumWorkers() }

// Configuration returns the current configuration, or nil if none was prepared yet.
func (sg *Subgraph) Configuration() *Configuration {
	if b := sg.bound.Load(); b != nil {
		return b.cfg
	}
	return nil
}

// Schedule returns the current schedule, or nil if none is bound.
func (sg *Subgraph) Schedule() *kernel.Schedule {
	if b := sg.bound.Load(); b != nil {
		return b.schedule
	}
	return nil
}

// Strategy returns the strategy the current configuration executes with.
func (sg *Subgraph) Strategy() (Strategy, error) {
	b := sg.bound.Load()
	if b == nil {
		return StrategyParallel6D, errors.Wrap(ErrExecutionPrecondition, "no configuration prepared")
	}
	return b.strategy, b.disabled
}

// CanUseOptimizedImpl returns false if the current configuration can't be executed, because its execution
// domain is not supported by the kernels.
func (sg *Subgraph) CanUseOptimizedImpl() bool {
	b := sg.bound.Load()
	return b == nil || b.disabled == nil
}

// NeedsRebuild returns whether PrepareParams must be called before Execute: either no kernel is bound
// yet, or the subgraph is dynamic.
func (sg *Subgraph) NeedsRebuild() bool {
	b := sg.bound.Load()
	return sg.isDynamic || b == nil || b.schedule == nil
}

// PrepareParams builds the configuration and binds its kernel.
//
// For dynamic subgraphs inputShapes are the runtime shapes of the inputs. For static subgraphs they are
// ignored (they may be nil) and the declared shapes are used.
//
// If the execution domain is not supported by the kernels, it doesn't fail: the optimized path is disabled
// for the configuration (see CanUseOptimizedImpl) and Execute will fail.
func (sg *Subgraph) PrepareParams(inputShapes []shapes.Shape) error {
	sg.mu.Lock()
	defer sg.mu.Unlock()
	return sg.prepareParamsLocked(inputShapes)
}

func (sg *Subgraph) prepareParamsLocked(inputShapes []shapes.Shape) error {
	normInputs, normOutputs, master := sg.normInputs, sg.normOutputs, sg.master
	if sg.isDynamic {
		if len(inputShapes) != len(sg.inputShapes) {
			return errors.Errorf("program %q: got %d runtime input shapes, expected %d", sg.program.Name(),
				len(inputShapes), len(sg.inputShapes))
		}
		for ii, s := range inputShapes {
			declared := sg.normInputs[ii]
			if s.Rank() > sg.tensorRank {
				return errors.Wrapf(ErrRankLimit, "runtime shape of input #%d %s has rank larger than %d", ii, s, sg.tensorRank)
			}
			normalized := s.PrependOnes(sg.tensorRank)
			for axis, dim := range declared.Dimensions {
				if dim != shapes.DynamicDim && dim != normalized.Dimensions[axis] {
					return errors.Wrapf(ErrShapeMismatch, "runtime shape of input #%d %s doesn't match declared shape %s",
						ii, s, sg.inputShapes[ii])
				}
			}
		}
		var err error
		normInputs, normOutputs, master, err = MergeRuntimeShapes(sg.normOutputs, inputShapes, sg.tensorRank)
		if err != nil {
			return errors.WithMessagef(err, "program %q", sg.program.Name())
		}
	}

	cfg, err := BuildConfiguration(normInputs, normOutputs, master, BuildParams{
		MinimalConcurrency:   sg.pool.NumWorkers(),
		MinimalJitWorkAmount: sg.opts.MinimalJitWorkAmount,
		Lanes:                sg.opts.Lanes,
		Dynamic:              sg.isDynamic,
	})
	if err != nil {
		return errors.WithMessagef(err, "program %q", sg.program.Name())
	}
	b := &boundConfiguration{cfg: cfg}
	b.strategy, err = selectStrategy(cfg, sg.opts.ForceFlattened)
	if err != nil {
		return errors.WithMessagef(err, "program %q", sg.program.Name())
	}
	b.schedule, err = sg.binder.Bind(cfg)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedDomain) {
			return err
		}
		klog.Warningf("snippets: program %q: optimized implementation disabled: %v", sg.program.Name(), err)
		b.disabled = err
	}
	if sg.isDynamic {
		klog.V(2).Infof("snippets: program %q: dynamic rebuild, master %s -> exec domain %v, tile rank %d",
			sg.program.Name(), master, cfg.ExecDomain, cfg.TileRank)
	} else {
		klog.V(1).Infof("snippets: program %q: %s elements, strategy %s\n%s",
			sg.program.Name(), humanize.Comma(int64(cfg.FullWorkAmount)), b.strategy, cfg)
	}
	sg.bound.Store(b)
	return nil
}

// preconditionError is returned by Execute when it can't run. It matches ErrExecutionPrecondition and
// its cause with errors.Is.
type preconditionError struct {
	cause error
}

func (e *preconditionError) Error() string {
	return ErrExecutionPrecondition.Error() + ": " + e.cause.Error()
}

func (e *preconditionError) Is(target error) bool { return target == ErrExecutionPrecondition }

func (e *preconditionError) Unwrap() error { return e.cause }

// Cause is used by github.com/pkg/errors.Cause.
func (e *preconditionError) Cause() error { return e.cause }

// Execute runs the bound kernel over the buffers.
//
// It fails with ErrExecutionPrecondition if no kernel is bound or the optimized path is disabled. Buffer
// shapes must match the declared shapes (static) or the shapes given to the last PrepareParams (dynamic).
func (sg *Subgraph) Execute(inputs, outputs []*Buffer) error {
	if sg.isDynamic {
		sg.mu.Lock()
		defer sg.mu.Unlock()
	}
	return sg.execute(inputs, outputs)
}

func (sg *Subgraph) execute(inputs, outputs []*Buffer) error {
	b := sg.bound.Load()
	switch {
	case b == nil:
		return &preconditionError{errors.Errorf("program %q has no configuration prepared", sg.program.Name())}
	case b.disabled != nil:
		return &preconditionError{b.disabled}
	case b.schedule == nil || b.schedule.Kernel == nil:
		return &preconditionError{errors.Errorf("program %q has no kernel", sg.program.Name())}
	}
	cfg := b.cfg
	if len(inputs) != len(cfg.Inputs) || len(outputs) != len(cfg.Outputs) {
		return errors.Errorf("program %q: got %d inputs and %d outputs, expected %d and %d", sg.program.Name(),
			len(inputs), len(outputs), len(cfg.Inputs), len(cfg.Outputs))
	}

	var args kernel.CallArgs
	for ii, buf := range inputs {
		if err := sg.checkBuffer(buf, cfg.Inputs[ii], "input", ii); err != nil {
			return err
		}
		args.SrcPtrs[ii] = buf.basePointer()
	}
	for ii, buf := range outputs {
		if err := sg.checkBuffer(buf, cfg.Outputs[ii], "output", ii); err != nil {
			return err
		}
		args.DstPtrs[ii] = buf.basePointer()
	}
	if cfg.Dynamic {
		cfg.fillCallArgs(&args)
	}
	return sg.scheduler.run(b.strategy, b.schedule, cfg, &args)
}

// checkBuffer validates a buffer against the normalized shape of its operand.
func (sg *Subgraph) checkBuffer(buf *Buffer, normalized shapes.Shape, kind string, idx int) error {
	if err := buf.check(); err != nil {
		return errors.WithMessagef(err, "program %q: %s #%d", sg.program.Name(), kind, idx)
	}
	if buf.Shape.Rank() > sg.tensorRank || !buf.Shape.PrependOnes(sg.tensorRank).EqualDimensions(normalized) {
		return errors.Wrapf(ErrShapeMismatch, "program %q: %s #%d buffer has shape %s, expected %s",
			sg.program.Name(), kind, idx, buf.Shape, normalized)
	}
	return nil
}

// Run executes the subgraph on the buffers, first preparing the configuration if NeedsRebuild: for
// dynamic subgraphs the runtime shapes are taken from the input buffers.
func (sg *Subgraph) Run(inputs, outputs []*Buffer) error {
	if !sg.NeedsRebuild() {
		return sg.execute(inputs, outputs)
	}
	if !sg.isDynamic && !sg.CanUseOptimizedImpl() {
		// Disabled static configurations stay disabled: don't rebuild them.
		return sg.execute(inputs, outputs)
	}
	sg.mu.Lock()
	defer sg.mu.Unlock()
	if sg.isDynamic {
		runtimeShapes := make([]shapes.Shape, len(inputs))
		for ii, buf := range inputs {
			if buf == nil {
				return errors.Errorf("program %q: input #%d is nil", sg.program.Name(), ii)
			}
			runtimeShapes[ii] = buf.Shape
		}
		if err := sg.prepareParamsLocked(runtimeShapes); err != nil {
			return err
		}
	} else if err := sg.prepareParamsLocked(nil); err != nil {
		return err
	}
	return sg.execute(inputs, outputs)
}

// OutputShapes returns the output shapes of the current configuration, in their declared rank.
// For dynamic subgraphs it reflects the last PrepareParams.
func (sg *Subgraph) OutputShapes() []shapes.Shape {
	b := sg.bound.Load()
	if b == nil {
		return cloneShapes(sg.outputShapes)
	}
	outputShapes := make([]shapes.Shape, len(sg.outputShapes))
	for ii, declared := range sg.outputShapes {
		normalized := b.cfg.Outputs[ii]
		outputShapes[ii] = shapes.Make(declared.DType, normalized.Dimensions[sg.tensorRank-declared.Rank():]...)
	}
	return outputShapes
}
