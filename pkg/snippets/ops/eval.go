// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package ops

import (
	"math"

	"github.com/gomlx/exceptions"
)

// EvalUnary applies the unary operation t to x.
func EvalUnary(t OpType, x float32) float32 {
	switch t {
	case OpTypeAbs:
		return float32(math.Abs(float64(x)))
	case OpTypeNeg:
		return -x
	case OpTypeExp:
		return float32(math.Exp(float64(x)))
	case OpTypeLog:
		return float32(math.Log(float64(x)))
	case OpTypeSqrt:
		return float32(math.Sqrt(float64(x)))
	case OpTypeRsqrt:
		return float32(1 / math.Sqrt(float64(x)))
	case OpTypeTanh:
		return float32(math.Tanh(float64(x)))
	case OpTypeLogistic:
		return float32(1 / (1 + math.Exp(-float64(x))))
	case OpTypeRelu:
		if x > 0 {
			return x
		}
		return 0
	case OpTypeErf:
		return float32(math.Erf(float64(x)))
	case OpTypeFloor:
		return float32(math.Floor(float64(x)))
	case OpTypeCeil:
		return float32(math.Ceil(float64(x)))
	case OpTypeSign:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		default:
			return x // Preserves 0, -0 and NaN.
		}
	case OpTypeSquare:
		return x * x
	}
	exceptions.Panicf("EvalUnary: %s is not a unary operation", t)
	return 0
}

// EvalBinary applies the binary operation t to lhs and rhs.
func EvalBinary(t OpType, lhs, rhs float32) float32 {
	switch t {
	case OpTypeAdd:
		return lhs + rhs
	case OpTypeSub:
		return lhs - rhs
	case OpTypeMul:
		return lhs * rhs
	case OpTypeDiv:
		return lhs / rhs
	case OpTypeMax:
		return max(lhs, rhs)
	case OpTypeMin:
		return min(lhs, rhs)
	case OpTypePow:
		return float32(math.Pow(float64(lhs), float64(rhs)))
	case OpTypeSquaredDifference:
		d := lhs - rhs
		return d * d
	}
	exceptions.Panicf("EvalBinary: %s is not a binary operation", t)
	return 0
}

// EvalTernary applies the ternary operation t to (a, b, c).
func EvalTernary(t OpType, a, b, c float32) float32 {
	switch t {
	case OpTypeFusedMulAdd:
		return a*b + c
	case OpTypeClamp:
		return min(max(b, a), c)
	}
	exceptions.Panicf("EvalTernary: %s is not a ternary operation", t)
	return 0
}

// Eval runs the program on one set of scalar inputs and returns the outputs.
// It is the reference semantics kernel generators must match.
func (p *Program) Eval(inputs ...float32) []float32 {
	if len(inputs) != p.numParams {
		exceptions.Panicf("program %q: Eval() got %d inputs, wanted %d", p.name, len(inputs), p.numParams)
	}
	values := make([]float32, len(p.ops))
	for ii, op := range p.ops {
		switch n := op.Type.NumOperands(); {
		case op.Type == OpTypeParameter:
			values[ii] = inputs[op.ParameterIdx]
		case op.Type == OpTypeConstant:
			values[ii] = op.Constant
		case n == 1:
			values[ii] = EvalUnary(op.Type, values[op.Operands[0]])
		case n == 2:
			values[ii] = EvalBinary(op.Type, values[op.Operands[0]], values[op.Operands[1]])
		case n == 3:
			values[ii] = EvalTernary(op.Type, values[op.Operands[0]], values[op.Operands[1]], values[op.Operands[2]])
		default:
			exceptions.Panicf("program %q: cannot evaluate op #%d (%s)", p.name, ii, op.Type)
		}
	}
	outputs := make([]float32, len(p.outputs))
	for ii, v := range p.outputs {
		outputs[ii] = values[v]
	}
	return outputs
}
