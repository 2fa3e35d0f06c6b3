// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

// OpType enumerates the elementwise operations that can be fused into a Program.
type OpType int

//go:generate go tool enumer -type=OpType -trimprefix=OpType -output=gen_optype_enumer.go optype.go

const (
	OpTypeInvalid OpType = iota
	OpTypeParameter
	OpTypeConstant

	// Unary operations.

	OpTypeAbs
	OpTypeNeg
	OpTypeExp
	OpTypeLog
	OpTypeSqrt
	OpTypeRsqrt
	OpTypeTanh
	OpTypeLogistic
	OpTypeRelu
	OpTypeErf
	OpTypeFloor
	OpTypeCeil
	OpTypeSign
	OpTypeSquare

	// Binary operations.

	OpTypeAdd
	OpTypeSub
	OpTypeMul
	OpTypeDiv
	OpTypeMax
	OpTypeMin
	OpTypePow
	OpTypeSquaredDifference

	// Ternary operations.

	OpTypeFusedMulAdd
	OpTypeClamp

	// OpTypeLast should always be kept the last, it is used as a counter/marker for OpType.
	OpTypeLast
)

// NumOperands returns the number of value operands taken by an operation of the given type.
// Parameters and constants take none.
func (t OpType) NumOperands() int {
	switch {
	case t >= OpTypeAbs && t <= OpTypeSquare:
		return 1
	case t >= OpTypeAdd && t <= OpTypeSquaredDifference:
		return 2
	case t >= OpTypeFusedMulAdd && t <= OpTypeClamp:
		return 3
	default:
		return 0
	}
}

// IsUnary reports whether t takes exactly one operand.
func (t OpType) IsUnary() bool { return t.NumOperands() == 1 }

// IsBinary reports whether t takes exactly two operands.
func (t OpType) IsBinary() bool { return t.NumOperands() == 2 }
