// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
)

// OptimizeExecDomain collapses the trailing dimensions of the domain (and of all operands alongside), so the
// kernel's innermost loop gets at least minimalJitWorkAmount elements, as long as the remaining outer work
// can still feed minimalConcurrency workers.
//
// When collapsing the two innermost dimensions would mix broadcast and non-broadcast axes of some input, it
// instead increments the tile rank (up to kernel.MaxTileRank), making the kernel loop over the two
// innermost dimensions itself.
//
// The slices are modified in place, and it returns the tile rank. The order of the checks determines the
// shape of the generated kernels, so it must be kept stable.
func OptimizeExecDomain(inputs, outputs [][]int, domain []int, minimalConcurrency, minimalJitWorkAmount int) (tileRank int) {
	tileRank = 1
	rank := len(domain)
	if rank < 2 {
		return
	}
	fullWorkAmount := product(domain)
	currentJitWorkAmount := domain[rank-1]
	collapsedDims := 0
	for currentJitWorkAmount < minimalJitWorkAmount && currentJitWorkAmount < fullWorkAmount {
		if rank-collapsedDims-2 < 0 {
			break
		}
		canCollapse := true
		for _, input := range inputs {
			last := len(input) - 1
			if (input[last-1] != 1 && input[last] == 1) || (input[last-1] == 1 && input[last] != 1) {
				canCollapse = false
				break
			}
		}

		nextJitWorkAmount := currentJitWorkAmount * domain[rank-2]
		if fullWorkAmount/nextJitWorkAmount < minimalConcurrency {
			break
		}
		currentJitWorkAmount = nextJitWorkAmount
		if !canCollapse {
			if tileRank < kernel.MaxTileRank {
				tileRank++
				continue
			}
			break
		}
		collapsedDims++
		for _, input := range inputs {
			collapseLastDims(input, 1)
		}
		for _, output := range outputs {
			collapseLastDims(output, 1)
		}
		collapseLastDims(domain, 1)
	}
	return
}

// collapseLastDims multiplies the n next-to-innermost dimensions into the innermost one, shifts the outer
// dimensions right by n, and fills the vacated outermost n dimensions with 1.
func collapseLastDims(dims []int, n int) {
	rank := len(dims)
	if n >= rank-1 {
		exceptions.Panicf("invalid number of dimensions to collapse: expected < %d, got %d", rank-1, n)
	}
	for axis := rank - 2; axis > rank-n-2; axis-- {
		dims[rank-1] *= dims[axis]
	}
	for axis := rank - 2; axis >= n; axis-- {
		dims[axis] = dims[axis-n]
	}
	for axis := n - 1; axis >= 0; axis-- {
		dims[axis] = 1
	}
}

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}
