// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

// JITParams are the per-operand tables consumed by the kernel. Operands are indexed inputs first, then
// outputs.
type JITParams struct {
	// BroadcastMask is set for operands whose innermost extent is 1 while the master's is not.
	BroadcastMask []bool

	// DataOffsets in bytes, laid out operand*(rank-1) + axis: the pointer increment for a unit step of the
	// outer loop index of that axis. There is no entry for the innermost axis.
	DataOffsets []int64

	// SchedulerOffsets in bytes, applied by the kernel after each row when the tile rank is 2.
	SchedulerOffsets []int64

	// VectorTileIncrements and ScalarTileIncrements in bytes, only for dynamic configurations.
	VectorTileIncrements, ScalarTileIncrements []int64
}

// CalcJITParams computes the kernel tables for the (collapsed) operand shapes and master shape.
func CalcJITParams(inputs, outputs [][]int, master []int, tileRank, dataSize, lanes int, dynamic bool) JITParams {
	numInputs := len(inputs)
	operands := make([][]int, 0, numInputs+len(outputs))
	operands = append(operands, inputs...)
	operands = append(operands, outputs...)
	numOperands := len(operands)
	rank := len(master)
	innermost := master[rank-1]

	var params JITParams
	params.BroadcastMask = make([]bool, numOperands)
	for p, dims := range operands {
		params.BroadcastMask[p] = innermost != 1 && dims[len(dims)-1] == 1
	}
	if dynamic {
		params.VectorTileIncrements = make([]int64, numOperands)
		params.ScalarTileIncrements = make([]int64, numOperands)
		for p, isBroadcast := range params.BroadcastMask {
			if !isBroadcast {
				params.VectorTileIncrements[p] = int64(lanes * dataSize)
				params.ScalarTileIncrements[p] = int64(dataSize)
			}
		}
	}

	// The innermost axis is addressed by the kernel directly.
	offsetRank := rank - 1
	params.DataOffsets = make([]int64, numOperands*offsetRank)
	for p, dims := range operands {
		off := params.DataOffsets[p*offsetRank : (p+1)*offsetRank]
		k := int64(dims[len(dims)-1])
		for axis := offsetRank - 1; axis >= 0; axis-- {
			if dims[axis] == master[axis] {
				off[axis] = k
			}
			k *= int64(dims[axis])
		}
	}
	for axis := range offsetRank {
		if master[axis] == 1 {
			for p := range numOperands {
				params.DataOffsets[p*offsetRank+axis] = 0
			}
		}
	}
	for ii := range params.DataOffsets {
		params.DataOffsets[ii] *= int64(dataSize)
	}

	params.SchedulerOffsets = make([]int64, numOperands)
	if tileRank > 1 {
		ds := int64(dataSize)
		rowSize := int64(innermost) * ds
		for p, dims := range operands {
			// The offset of the next-to-innermost axis is the one of the kernel's outer tile loop.
			off := params.DataOffsets[(p+1)*offsetRank-1]
			if p >= numInputs {
				// Outputs always advance a full row inside the tile.
				params.SchedulerOffsets[p] = off - rowSize
				continue
			}
			if innermost == 1 {
				// Rows of one element: nothing is masked as broadcast, so every input advances one
				// element per row and must be brought back to its own row offset.
				params.SchedulerOffsets[p] = off - ds
				continue
			}
			switch {
			case off > ds:
				params.SchedulerOffsets[p] = 0
			case off == ds:
				// The inner tile is broadcast: step to the next element for the next row.
				if params.BroadcastMask[p] {
					params.SchedulerOffsets[p] = ds
				}
			case dims[rank-2] != master[rank-2] && dims[rank-1] != 1:
				// The outer tile is broadcast: step back to re-read the same row.
				params.SchedulerOffsets[p] = -rowSize
			}
		}
	}
	return params
}
