// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package interpreter

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/snippets/pkg/snippets/ops"
)

type instKind int

const (
	instParameter instKind = iota
	instConstant
	instUnary
	instBinary
	instTernary
)

// instruction is one compiled op: its operands are register indices (the SSA value ids).
type instruction struct {
	kind     instKind
	param    int
	constant float32
	a, b, c  int

	unary   func(x float32) float32
	binary  func(x, y float32) float32
	ternary func(x, y, z float32) float32
}

// compileInstructions resolves each op to its evaluation function once, so the inner loops don't switch on
// the op type per element.
func compileInstructions(program *ops.Program) []instruction {
	programOps := program.Ops()
	instructions := make([]instruction, len(programOps))
	for ii, op := range programOps {
		inst := &instructions[ii]
		opType := op.Type
		switch op.Type.NumOperands() {
		case 0:
			switch opType {
			case ops.OpTypeParameter:
				inst.kind = instParameter
				inst.param = op.ParameterIdx
			case ops.OpTypeConstant:
				inst.kind = instConstant
				inst.constant = op.Constant
			default:
				exceptions.Panicf("interpreter: op #%d has unsupported type %s", ii, opType)
			}
		case 1:
			inst.kind = instUnary
			inst.a = int(op.Operands[0])
			inst.unary = unaryFunc(opType)
		case 2:
			inst.kind = instBinary
			inst.a, inst.b = int(op.Operands[0]), int(op.Operands[1])
			inst.binary = binaryFunc(opType)
		case 3:
			inst.kind = instTernary
			inst.a, inst.b, inst.c = int(op.Operands[0]), int(op.Operands[1]), int(op.Operands[2])
			inst.ternary = func(x, y, z float32) float32 { return ops.EvalTernary(opType, x, y, z) }
		}
	}
	return instructions
}

func unaryFunc(opType ops.OpType) func(float32) float32 {
	switch opType {
	case ops.OpTypeNeg:
		return func(x float32) float32 { return -x }
	case ops.OpTypeRelu:
		return func(x float32) float32 { return max(x, 0) }
	case ops.OpTypeSquare:
		return func(x float32) float32 { return x * x }
	}
	return func(x float32) float32 { return ops.EvalUnary(opType, x) }
}

func binaryFunc(opType ops.OpType) func(float32, float32) float32 {
	switch opType {
	case ops.OpTypeAdd:
		return func(x, y float32) float32 { return x + y }
	case ops.OpTypeSub:
		return func(x, y float32) float32 { return x - y }
	case ops.OpTypeMul:
		return func(x, y float32) float32 { return x * y }
	case ops.OpTypeDiv:
		return func(x, y float32) float32 { return x / y }
	}
	return func(x, y float32) float32 { return ops.EvalBinary(opType, x, y) }
}
