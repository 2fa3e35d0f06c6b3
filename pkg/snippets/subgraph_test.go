// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"fmt"
	"sync"
	"testing"

	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/gomlx/snippets/pkg/snippets/interpreter"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/gomlx/snippets/pkg/snippets/ops"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testProgram returns x*y+0.5 and x-y.
func testProgram() *ops.Program {
	p := ops.NewProgram("mul_add_sub")
	x, y := p.Parameter(), p.Parameter()
	p.Return(p.Add(p.Mul(x, y), p.Constant(0.5)), p.Sub(x, y))
	return p
}

// iotaBuffer returns a buffer filled with a deterministic, input dependent, pattern.
func iotaBuffer(shape shapes.Shape, seed int) *Buffer {
	buf := NewBuffer(shape)
	for ii := range buf.Flat {
		buf.Flat[ii] = float32((ii*(seed+3))%17)*0.5 - 3
	}
	return buf
}

// reference evaluates the program element by element, with explicit broadcasting.
func reference(program *ops.Program, inputs []*Buffer, outputShape shapes.Shape) [][]float32 {
	inputShapes := make([]shapes.Shape, len(inputs))
	for ii, in := range inputs {
		inputShapes[ii] = in.Shape
	}
	rank := TensorRank(inputShapes, []shapes.Shape{outputShape})
	master := outputShape.PrependOnes(rank).Dimensions
	size := product(master)
	results := make([][]float32, program.NumOutputs())
	for ii := range results {
		results[ii] = make([]float32, size)
	}
	indices := make([]int, rank)
	values := make([]float32, len(inputs))
	for flat := range size {
		tmp := flat
		for axis := rank - 1; axis >= 0; axis-- {
			indices[axis] = tmp % master[axis]
			tmp /= master[axis]
		}
		for ii, in := range inputs {
			normalized := inputShapes[ii].PrependOnes(rank)
			pos := 0
			for axis, stride := range normalized.Strides() {
				if normalized.Dimensions[axis] != 1 {
					pos += indices[axis] * stride
				}
			}
			values[ii] = in.Data()[pos]
		}
		for ii, v := range program.Eval(values...) {
			results[ii][flat] = v
		}
	}
	return results
}

// countingGenerator records every index tuple the kernels it generates are called with.
type countingGenerator struct {
	kernel.Generator

	mu    sync.Mutex
	calls map[string]int
}

func newCountingGenerator(lanes int) *countingGenerator {
	return &countingGenerator{Generator: interpreter.New(lanes), calls: make(map[string]int)}
}

func (g *countingGenerator) Generate(program *ops.Program, args *kernel.CompileArgs) (kernel.Kernel, error) {
	k, err := g.Generator.Generate(program, args)
	if err != nil {
		return nil, err
	}
	return func(indices []int64, callArgs *kernel.CallArgs) {
		key := fmt.Sprint(indices)
		g.mu.Lock()
		g.calls[key]++
		g.mu.Unlock()
		k(indices, callArgs)
	}, nil
}

// staticOnlyGenerator can't generate shape-agnostic kernels.
type staticOnlyGenerator struct {
	*interpreter.Generator
}

func (g staticOnlyGenerator) Capabilities() kernel.Capabilities {
	caps := g.Generator.Capabilities()
	caps.ShapeAgnostic = false
	return caps
}

// panickingGenerator generates kernels that panic on the last harness index.
type panickingGenerator struct {
	*interpreter.Generator
}

func (g panickingGenerator) Generate(program *ops.Program, args *kernel.CompileArgs) (kernel.Kernel, error) {
	return func(indices []int64, _ *kernel.CallArgs) {
		if indices[len(indices)-1] == 1 {
			panic(errors.New("boom"))
		}
	}, nil
}

func testOptions(workers, lanes int) Options {
	opts := DefaultOptions()
	opts.NumWorkers = workers
	opts.Lanes = lanes
	return opts
}

func runAndCompare(t *testing.T, program *ops.Program, inputs []shapes.Shape, output shapes.Shape, opts Options) *Subgraph {
	outputs := make([]shapes.Shape, program.NumOutputs())
	for ii := range outputs {
		outputs[ii] = output
	}
	sg, err := New(program, inputs, outputs, opts)
	require.NoError(t, err)
	require.True(t, sg.CanUseOptimizedImpl())

	inBufs := make([]*Buffer, len(inputs))
	for ii, s := range inputs {
		inBufs[ii] = iotaBuffer(s, ii)
	}
	outBufs := make([]*Buffer, len(outputs))
	for ii, s := range outputs {
		outBufs[ii] = NewBuffer(s)
	}
	require.NoError(t, sg.Run(inBufs, outBufs))
	want := reference(program, inBufs, output)
	for ii, buf := range outBufs {
		assert.InDeltaSlice(t, want[ii], buf.Data(), 1e-5, "output #%d", ii)
	}
	return sg
}

func TestSubgraphStatic(t *testing.T) {
	testCases := []struct {
		name   string
		inputs []shapes.Shape
		output shapes.Shape
	}{
		{"same shape", []shapes.Shape{f32(2, 4, 1024), f32(2, 4, 1024)}, f32(2, 4, 1024)},
		{"collapsed", []shapes.Shape{f32(2, 2, 2, 2, 2, 64), f32(2, 2, 2, 2, 2, 64)}, f32(2, 2, 2, 2, 2, 64)},
		{"row broadcast", []shapes.Shape{f32(1, 3, 8, 8), f32(1, 3, 1, 8)}, f32(1, 3, 8, 8)},
		{"innermost broadcast", []shapes.Shape{f32(4, 16), f32(4, 1)}, f32(4, 16)},
		{"both broadcast", []shapes.Shape{f32(5, 1, 7), f32(6, 1)}, f32(5, 6, 7)},
		{"scalar", []shapes.Shape{f32(3, 5, 7), f32()}, f32(3, 5, 7)},
		{"odd sizes", []shapes.Shape{f32(3, 1, 13), f32(1, 5, 13)}, f32(3, 5, 13)},
		{"rank 7", []shapes.Shape{f32(2, 1, 2, 1, 2, 3, 5), f32(2, 1, 2, 1, 2, 1, 5)}, f32(2, 1, 2, 1, 2, 3, 5)},
		{"empty", []shapes.Shape{f32(0, 4), f32(1, 4)}, f32(0, 4)},
		{"column and scalar", []shapes.Shape{f32(8, 1), f32()}, f32(8, 1)},
		{"column and single element", []shapes.Shape{f32(8, 1), f32(1, 1)}, f32(8, 1)},
	}
	for _, tc := range testCases {
		for _, workers := range []int{1, 3} {
			for _, lanes := range []int{4, 8} {
				for _, flattened := range []bool{false, true} {
					name := fmt.Sprintf("%s/workers=%d/lanes=%d/flattened=%v", tc.name, workers, lanes, flattened)
					t.Run(name, func(t *testing.T) {
						opts := testOptions(workers, lanes)
						opts.ForceFlattened = flattened
						sg := runAndCompare(t, testProgram(), tc.inputs, tc.output, opts)
						strategy, err := sg.Strategy()
						require.NoError(t, err)
						if sg.TensorRank() == 6 && !flattened {
							assert.Equal(t, StrategyParallel6D, strategy)
						} else {
							assert.Equal(t, StrategyFlattenedND, strategy)
						}
						assert.False(t, sg.NeedsRebuild())
					})
				}
			}
		}
	}
}

func TestSubgraphVisitsDomainOnce(t *testing.T) {
	inputs := []shapes.Shape{f32(2, 3, 4, 5, 6, 7), f32(2, 1, 4, 1, 6, 7)}
	output := f32(2, 3, 4, 5, 6, 7)
	for _, flattened := range []bool{false, true} {
		for _, partitioning := range PartitioningValues() {
			t.Run(fmt.Sprintf("flattened=%v/%s", flattened, partitioning), func(t *testing.T) {
				generator := newCountingGenerator(DefaultLanes)
				opts := testOptions(3, DefaultLanes)
				opts.MinimalJitWorkAmount = 1
				opts.ForceFlattened = flattened
				opts.Partitioning = partitioning
				opts.Generator = generator
				sg := runAndCompare(t, testProgram(), inputs, output, opts)
				cfg := sg.Configuration()
				assert.Equal(t, 1, cfg.TileRank)
				assert.Equal(t, 720, cfg.HarnessWorkAmount)
				assert.Len(t, generator.calls, cfg.HarnessWorkAmount)
				for key, count := range generator.calls {
					require.Equal(t, 1, count, "index tuple %s", key)
				}
			})
		}
	}
}

// Broadcast inputs of a domain whose rows have a single element must be read in place: the storage
// after them is filled with values that would show up in the results.
func TestSubgraphColumnBroadcast(t *testing.T) {
	program := testProgram()
	column := f32(8, 1)
	newScalar := func(shape shapes.Shape) *Buffer {
		flat := make([]float32, 16)
		for ii := range flat {
			flat[ii] = 1000
		}
		flat[0] = 2
		return &Buffer{Shape: shape, Flat: flat}
	}
	check := func(t *testing.T, sg *Subgraph, y *Buffer) {
		x := iotaBuffer(column, 0)
		outputs := []*Buffer{NewBuffer(column), NewBuffer(column)}
		require.NoError(t, sg.Run([]*Buffer{x, y}, outputs))
		require.Equal(t, 2, sg.Configuration().TileRank)
		want := reference(program, []*Buffer{x, y}, column)
		for ii, out := range outputs {
			assert.InDeltaSlice(t, want[ii], out.Data(), 1e-5, "output #%d", ii)
		}
	}

	for _, flattened := range []bool{false, true} {
		t.Run(fmt.Sprintf("static/flattened=%v", flattened), func(t *testing.T) {
			opts := testOptions(1, 4)
			opts.ForceFlattened = flattened
			for _, yShape := range []shapes.Shape{f32(), f32(1, 1)} {
				sg, err := New(program, []shapes.Shape{column, yShape}, []shapes.Shape{column, column}, opts)
				require.NoError(t, err)
				check(t, sg, newScalar(yShape))
			}
		})
	}

	t.Run("dynamic", func(t *testing.T) {
		declared := f32(shapes.DynamicDim, 1)
		sg, err := New(program, []shapes.Shape{declared, f32(1, 1)}, []shapes.Shape{declared, declared}, testOptions(1, 4))
		require.NoError(t, err)
		check(t, sg, newScalar(f32(1, 1)))
	})
}

func TestSubgraphOffsetPadding(t *testing.T) {
	program := testProgram()
	shape := f32(3, 10)
	sg, err := New(program, []shapes.Shape{shape, f32(1, 10)}, []shapes.Shape{shape, shape}, testOptions(2, 4))
	require.NoError(t, err)

	x := iotaBuffer(shape, 0)
	y := iotaBuffer(f32(1, 10), 1)
	paddedX := &Buffer{Shape: shape, Flat: append([]float32{99, 99, 99}, x.Flat...), OffsetPadding: 3}
	outputs := []*Buffer{
		{Shape: shape, Flat: make([]float32, 2+shape.Size()), OffsetPadding: 2},
		NewBuffer(shape),
	}
	outputs[0].Flat[0], outputs[0].Flat[1] = -7, -7
	require.NoError(t, sg.Execute([]*Buffer{paddedX, y}, outputs))

	want := reference(program, []*Buffer{x, y}, shape)
	assert.InDeltaSlice(t, want[0], outputs[0].Data(), 1e-5)
	assert.InDeltaSlice(t, want[1], outputs[1].Data(), 1e-5)
	assert.Equal(t, []float32{-7, -7}, outputs[0].Flat[:2])
	assert.Equal(t, []float32{99, 99, 99}, paddedX.Flat[:3])

	// Too short storage for the padding.
	paddedX.OffsetPadding = 4
	require.Error(t, sg.Execute([]*Buffer{paddedX, y}, outputs))
}

func TestSubgraphBufferMismatch(t *testing.T) {
	sg, err := New(testProgram(), []shapes.Shape{f32(4, 8), f32(4, 8)}, []shapes.Shape{f32(4, 8), f32(4, 8)}, testOptions(1, 8))
	require.NoError(t, err)
	good := func() *Buffer { return NewBuffer(f32(4, 8)) }

	err = sg.Execute([]*Buffer{good(), NewBuffer(f32(4, 7))}, []*Buffer{good(), good()})
	require.ErrorIs(t, err, ErrShapeMismatch)

	// Extra leading 1s are fine.
	require.NoError(t, sg.Execute([]*Buffer{good(), NewBuffer(f32(1, 4, 8))}, []*Buffer{good(), good()}))

	require.Error(t, sg.Execute([]*Buffer{good()}, []*Buffer{good(), good()}))
	require.Error(t, sg.Execute([]*Buffer{good(), nil}, []*Buffer{good(), good()}))
}

func TestSubgraphUnsupportedDomain(t *testing.T) {
	shape := f32(2, 2, 2, 2, 2, 2, 2, 2)
	sg, err := New(testProgram(), []shapes.Shape{shape, shape}, []shapes.Shape{shape, shape}, testOptions(1, 8))
	require.NoError(t, err)
	assert.Equal(t, 8, sg.TensorRank())
	assert.False(t, sg.CanUseOptimizedImpl())
	require.NotNil(t, sg.Configuration())
	assert.Nil(t, sg.Schedule())
	_, err = sg.Strategy()
	require.ErrorIs(t, err, ErrUnsupportedDomain)

	buffers := func() []*Buffer { return []*Buffer{NewBuffer(shape), NewBuffer(shape)} }
	err = sg.Execute(buffers(), buffers())
	require.ErrorIs(t, err, ErrExecutionPrecondition)
	require.ErrorIs(t, err, ErrUnsupportedDomain)

	cfg := sg.Configuration()
	for range 2 {
		err = sg.Run(buffers(), buffers())
		require.ErrorIs(t, err, ErrExecutionPrecondition)
		require.ErrorIs(t, err, ErrUnsupportedDomain)
	}
	// The disabled configuration is not rebuilt.
	assert.Same(t, cfg, sg.Configuration())

	// Ranks above the maximum fail right away.
	shape = f32(1, 1, 1, 1, 1, 1, 1, 1, 2)
	_, err = New(testProgram(), []shapes.Shape{shape, shape}, []shapes.Shape{shape, shape}, testOptions(1, 8))
	require.ErrorIs(t, err, ErrRankLimit)
}

func TestSubgraphKernelPanic(t *testing.T) {
	shape := f32(4, 3, 64)
	opts := testOptions(3, DefaultLanes)
	opts.Generator = panickingGenerator{interpreter.New(DefaultLanes)}
	for _, flattened := range []bool{false, true} {
		opts.ForceFlattened = flattened
		sg, err := New(testProgram(), []shapes.Shape{shape, shape}, []shapes.Shape{shape, shape}, opts)
		require.NoError(t, err)
		err = sg.Run([]*Buffer{NewBuffer(shape), NewBuffer(shape)}, []*Buffer{NewBuffer(shape), NewBuffer(shape)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	}
}

func TestSubgraphDynamic(t *testing.T) {
	program := testProgram()
	declaredX, declaredY := f32(shapes.DynamicDim, 8), f32(1, 8)
	declaredOut := f32(shapes.DynamicDim, 8)
	sg, err := New(program, []shapes.Shape{declaredX, declaredY}, []shapes.Shape{declaredOut, declaredOut}, testOptions(1, 4))
	require.NoError(t, err)
	assert.True(t, sg.IsDynamic())
	assert.True(t, sg.NeedsRebuild())
	assert.Nil(t, sg.Configuration())
	assert.Equal(t, []int{1, 1, 1, 1, shapes.DynamicDim, 8}, sg.MasterShape().Dimensions)

	// Execute without PrepareParams.
	err = sg.Execute([]*Buffer{NewBuffer(f32(1, 8)), NewBuffer(f32(1, 8))}, []*Buffer{NewBuffer(f32(1, 8)), NewBuffer(f32(1, 8))})
	require.ErrorIs(t, err, ErrExecutionPrecondition)

	run := func(rows int) *Configuration {
		x, y := iotaBuffer(f32(rows, 8), 0), iotaBuffer(f32(1, 8), 1)
		outputs := []*Buffer{NewBuffer(f32(rows, 8)), NewBuffer(f32(rows, 8))}
		require.NoError(t, sg.Run([]*Buffer{x, y}, outputs))
		want := reference(program, []*Buffer{x, y}, f32(rows, 8))
		for ii, out := range outputs {
			assert.InDeltaSlice(t, want[ii], out.Data(), 1e-5, "rows=%d, output #%d", rows, ii)
		}
		for _, s := range sg.OutputShapes() {
			assert.Equal(t, []int{rows, 8}, s.Dimensions)
		}
		return sg.Configuration()
	}

	cfg := run(1)
	assert.Equal(t, []int{1, 1, 1, 1, 1, 8}, cfg.CollapsedMaster)
	assert.Equal(t, 1, cfg.TileRank)
	assert.Equal(t, int64(0), cfg.DataOffsets[4])
	schedule := sg.Schedule()
	require.NotNil(t, schedule)
	assert.True(t, schedule.Dynamic)

	cfg = run(4)
	assert.Equal(t, []int{1, 1, 1, 1, 4, 8}, cfg.CollapsedMaster)
	assert.Equal(t, 2, cfg.TileRank)
	assert.Equal(t, int64(32), cfg.DataOffsets[4])
	assert.Equal(t, int64(-32), cfg.SchedulerOffsets[1])
	// The shape-agnostic kernel is generated only once.
	assert.Equal(t, schedule.ID, sg.Schedule().ID)
	assert.Equal(t, 1, sg.binder.numGenerated)

	cfg = run(3)
	assert.Equal(t, 2, cfg.TileRank)

	// Runtime shapes must match the static dimensions declared.
	err = sg.PrepareParams([]shapes.Shape{f32(2, 8), f32(2, 8)})
	require.ErrorIs(t, err, ErrShapeMismatch)
	err = sg.PrepareParams([]shapes.Shape{f32(2, 7), f32(1, 8)})
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSubgraphDynamicScratch(t *testing.T) {
	program := testProgram()
	declaredX, declaredY := f32(shapes.DynamicDim, 16), f32(shapes.DynamicDim, 1)
	declaredOut := f32(shapes.DynamicDim, 16)
	sg, err := New(program, []shapes.Shape{declaredX, declaredY}, []shapes.Shape{declaredOut, declaredOut}, testOptions(3, 4))
	require.NoError(t, err)

	var scratch *float32
	var workerArgs *kernel.CallArgs
	for _, dims := range [][2]int{{4, 4}, {2, 2}, {3, 1}, {8, 8}} {
		x, y := iotaBuffer(f32(dims[0], 16), 0), iotaBuffer(f32(dims[1], 1), 1)
		outputs := []*Buffer{NewBuffer(f32(dims[0], 16)), NewBuffer(f32(dims[0], 16))}
		require.NoError(t, sg.Run([]*Buffer{x, y}, outputs))
		want := reference(program, []*Buffer{x, y}, f32(dims[0], 16))
		for ii, out := range outputs {
			assert.InDeltaSlice(t, want[ii], out.Data(), 1e-5, "dims=%v, output #%d", dims, ii)
		}

		strategy, err := sg.Strategy()
		require.NoError(t, err)
		assert.Equal(t, StrategyParallel6DScratch, strategy)
		assert.Equal(t, []bool{false, true, false, false}, sg.Configuration().BroadcastMask)

		// Scratch and per-worker arguments are allocated on the first call only.
		require.Len(t, sg.scheduler.scratch, 3*4*2)
		require.Len(t, sg.scheduler.workerArgs, 3)
		if scratch == nil {
			scratch = &sg.scheduler.scratch[0]
			workerArgs = &sg.scheduler.workerArgs[0]
		} else {
			assert.Same(t, scratch, &sg.scheduler.scratch[0])
			assert.Same(t, workerArgs, &sg.scheduler.workerArgs[0])
		}
	}
}

func TestSubgraphDynamicErrors(t *testing.T) {
	program := testProgram()
	dynamic := f32(shapes.DynamicDim, 8)

	opts := testOptions(1, DefaultLanes)
	opts.Generator = staticOnlyGenerator{interpreter.New(DefaultLanes)}
	_, err := New(program, []shapes.Shape{dynamic, dynamic}, []shapes.Shape{dynamic, dynamic}, opts)
	require.ErrorIs(t, err, ErrUnsupportedDomain)

	// The same generator works for static shapes.
	static := f32(2, 8)
	_, err = New(program, []shapes.Shape{static, static}, []shapes.Shape{static, static}, opts)
	require.NoError(t, err)

	rank7 := f32(shapes.DynamicDim, 1, 1, 1, 1, 1, 8)
	_, err = New(program, []shapes.Shape{rank7, rank7}, []shapes.Shape{rank7, rank7}, testOptions(1, DefaultLanes))
	require.ErrorIs(t, err, ErrRankLimit)

	// Generator lanes must match the options.
	opts = testOptions(1, 8)
	opts.Generator = interpreter.New(4)
	_, err = New(program, []shapes.Shape{static, static}, []shapes.Shape{static, static}, opts)
	require.Error(t, err)

	// Wrong number of operands for the program.
	_, err = New(program, []shapes.Shape{static}, []shapes.Shape{static, static}, testOptions(1, 8))
	require.Error(t, err)
}
