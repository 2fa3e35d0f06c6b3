// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/pkg/errors"
)

// TensorRank returns the rank all operands are normalized to: the largest rank among the given shapes, but
// never less than kernel.Rank6D.
func TensorRank(shapeLists ...[]shapes.Shape) int {
	rank := kernel.Rank6D
	for _, list := range shapeLists {
		for _, s := range list {
			rank = max(rank, s.Rank())
		}
	}
	return rank
}

// Canonicalize left-pads all operand shapes with 1s up to rank, and computes the master shape: their
// broadcast merge.
//
// Inputs must be broadcastable to the master, and outputs must match it on every static dimension, otherwise
// it returns an error wrapping ErrShapeMismatch. Dynamic dimensions (shapes.DynamicDim) are accepted, and the
// master keeps them dynamic where no operand resolves them.
func Canonicalize(inputs, outputs []shapes.Shape, rank int) (normInputs, normOutputs []shapes.Shape, master shapes.Shape, err error) {
	if rank > kernel.MaxTensorRank {
		err = errors.Wrapf(ErrRankLimit, "tensor rank %d is larger than the maximum %d", rank, kernel.MaxTensorRank)
		return
	}
	if len(outputs) == 0 {
		err = errors.Wrap(ErrShapeMismatch, "subgraph has no outputs")
		return
	}
	if len(inputs) > kernel.MaxNumOperands || len(outputs) > kernel.MaxNumOperands {
		err = errors.Wrapf(ErrRankLimit, "subgraph has %d inputs and %d outputs, at most %d of each are supported",
			len(inputs), len(outputs), kernel.MaxNumOperands)
		return
	}
	normInputs = make([]shapes.Shape, len(inputs))
	normOutputs = make([]shapes.Shape, len(outputs))
	master = outputs[0].PrependOnes(rank)
	for ii, input := range inputs {
		if err = checkOperand(input, rank, "input", ii); err != nil {
			return
		}
		normInputs[ii] = input.PrependOnes(rank)
		if mergeErr := shapes.BroadcastMergeInto(&master, normInputs[ii]); mergeErr != nil {
			err = errors.Wrapf(ErrShapeMismatch, "input #%d %s: %v", ii, input, mergeErr)
			return
		}
	}
	for ii, output := range outputs {
		if err = checkOperand(output, rank, "output", ii); err != nil {
			return
		}
		normOutputs[ii] = output.PrependOnes(rank)
		if mergeErr := shapes.BroadcastMergeInto(&master, normOutputs[ii]); mergeErr != nil {
			err = errors.Wrapf(ErrShapeMismatch, "output #%d %s: %v", ii, output, mergeErr)
			return
		}
	}
	for ii, output := range normOutputs {
		for axis, dim := range output.Dimensions {
			masterDim := master.Dimensions[axis]
			if dim != shapes.DynamicDim && masterDim != shapes.DynamicDim && dim != masterDim {
				err = errors.Wrapf(ErrShapeMismatch, "output #%d %s doesn't match the master shape %s on axis %d",
					ii, outputs[ii], master, axis)
				return
			}
		}
	}
	return
}

// checkOperand validates the dtype and rank of an operand.
func checkOperand(s shapes.Shape, rank int, kind string, idx int) error {
	if s.DType != dtypes.Float32 {
		return errors.Wrapf(ErrShapeMismatch, "%s #%d has dtype %s, only Float32 is supported", kind, idx, s.DType)
	}
	if s.Rank() > rank {
		return errors.Wrapf(ErrRankLimit, "%s #%d %s has rank larger than %d", kind, idx, s, rank)
	}
	return nil
}

// MergeRuntimeShapes resolves the shapes of a dynamic configuration for one call.
//
// The master is seeded from the first declared (normalized) output shape, then every runtime input shape is
// normalized and merged into it. Dimensions no input resolves are broadcast dimensions, and resolve to 1.
// Finally, the dynamic dimensions of the declared outputs are replaced by the master's.
//
// Runtime shapes must be static and broadcastable, otherwise an error wrapping ErrShapeMismatch is returned.
func MergeRuntimeShapes(declaredOutputs, runtimeInputs []shapes.Shape, rank int) (normInputs, normOutputs []shapes.Shape, master shapes.Shape, err error) {
	if len(declaredOutputs) == 0 {
		err = errors.Wrap(ErrShapeMismatch, "subgraph has no outputs")
		return
	}
	master = declaredOutputs[0].PrependOnes(rank)
	normInputs = make([]shapes.Shape, len(runtimeInputs))
	for ii, input := range runtimeInputs {
		if err = checkOperand(input, rank, "input", ii); err != nil {
			return
		}
		if input.IsDynamic() {
			err = errors.Wrapf(ErrShapeMismatch, "runtime shape of input #%d %s is not static", ii, input)
			return
		}
		normInputs[ii] = input.PrependOnes(rank)
		if mergeErr := shapes.BroadcastMergeInto(&master, normInputs[ii]); mergeErr != nil {
			err = errors.Wrapf(ErrShapeMismatch, "runtime input #%d %s: %v", ii, input, mergeErr)
			return
		}
	}
	for axis, dim := range master.Dimensions {
		if dim == shapes.DynamicDim {
			if len(runtimeInputs) == 0 {
				err = errors.Wrapf(ErrShapeMismatch, "axis %d of master shape %s can't be resolved without inputs", axis, master)
				return
			}
			master.Dimensions[axis] = 1
		}
	}
	normOutputs = make([]shapes.Shape, len(declaredOutputs))
	for ii, output := range declaredOutputs {
		normOutputs[ii] = output.PrependOnes(rank)
		for axis, dim := range normOutputs[ii].Dimensions {
			if dim == shapes.DynamicDim {
				normOutputs[ii].Dimensions[axis] = master.Dimensions[axis]
			}
		}
		if !normOutputs[ii].EqualDimensions(master) {
			err = errors.Wrapf(ErrShapeMismatch, "output #%d declared as %s, can't hold the master shape %s", ii, output, master)
			return
		}
	}
	return
}
