// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"github.com/pkg/errors"
)

// ErrNotBroadcastable is returned (wrapped) when two dimensions can't be merged by the broadcasting rules.
var ErrNotBroadcastable = errors.New("dimensions are not broadcastable")

// BroadcastMergeDim merges two dimensions following the "numpy" broadcasting rules, extended to dynamic dimensions:
//
//   - N and N (or 1 and N) merge to N;
//   - DynamicDim and 1 merge to DynamicDim;
//   - DynamicDim and N (N != 1) merge to N: the dynamic side must turn out to be N or 1 at runtime.
//
// It returns ErrNotBroadcastable for two different static dimensions, neither being 1.
func BroadcastMergeDim(dst, src int) (int, error) {
	switch {
	case dst == src:
		return dst, nil
	case src == 1:
		return dst, nil
	case dst == 1:
		return src, nil
	case dst == DynamicDim:
		return src, nil
	case src == DynamicDim:
		return dst, nil
	}
	return dst, errors.Wrapf(ErrNotBroadcastable, "can't merge dimensions %d and %d", dst, src)
}

// BroadcastMergeInto merges src into dst in-place, axis by axis, using BroadcastMergeDim.
//
// Both shapes must have the same rank: callers align the ranks first with Shape.PrependOnes.
func BroadcastMergeInto(dst *Shape, src Shape) error {
	if dst.Rank() != src.Rank() {
		return errors.Errorf("BroadcastMergeInto requires the same rank, got %s and %s", *dst, src)
	}
	for axis, srcDim := range src.Dimensions {
		merged, err := BroadcastMergeDim(dst.Dimensions[axis], srcDim)
		if err != nil {
			return errors.WithMessagef(err, "axis #%d of %s and %s", axis, *dst, src)
		}
		dst.Dimensions[axis] = merged
	}
	return nil
}

// IsBroadcastCompatible returns whether the operand dimensions can be broadcast to the target dimensions:
// each operand dimension must be 1 or equal to the target's.
func IsBroadcastCompatible(operand, target Shape) bool {
	if operand.Rank() != target.Rank() {
		return false
	}
	for axis, dim := range operand.Dimensions {
		if dim != 1 && dim != target.Dimensions[axis] {
			return false
		}
	}
	return true
}
