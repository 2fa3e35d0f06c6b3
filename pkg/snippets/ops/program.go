// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ops defines Program, the list of fused elementwise operations a kernel generator compiles.
//
// A Program is built in SSA form: each operation produces one float32 Value, and operations may only refer
// to values created before them. Parameters map to the subgraph inputs (in order) and the values passed to
// Program.Return map to the subgraph outputs.
//
// Example:
//
//	p := ops.NewProgram("scale_add")
//	x, y := p.Parameter(), p.Parameter()
//	p.Return(p.Add(p.Mul(x, p.Constant(2)), y))
package ops

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Value identifies the result of one operation of a Program: it is the index of the operation.
type Value int

// Op is one operation of a Program.
type Op struct {
	Type OpType

	// Operands are the values consumed, len(Operands) == Type.NumOperands().
	Operands []Value

	// ParameterIdx is the input index, only used by OpTypeParameter.
	ParameterIdx int

	// Constant is the value of an OpTypeConstant.
	Constant float32
}

// Program is a fused list of elementwise operations over float32 values.
type Program struct {
	name      string
	ops       []Op
	numParams int
	outputs   []Value
	returned  bool
}

// NewProgram creates an empty Program with the given name, used in logs and error messages.
func NewProgram(name string) *Program {
	return &Program{name: name}
}

// Name of the program.
func (p *Program) Name() string { return p.name }

// NumInputs returns the number of parameters created so far.
func (p *Program) NumInputs() int { return p.numParams }

// NumOutputs returns the number of values returned.
func (p *Program) NumOutputs() int { return len(p.outputs) }

// Ops returns the operations in SSA order. It should not be modified.
func (p *Program) Ops() []Op { return p.ops }

// Outputs returns the returned values. It should not be modified.
func (p *Program) Outputs() []Value { return p.outputs }

func (p *Program) addOp(op Op) Value {
	if p.returned {
		exceptions.Panicf("program %q: cannot add %s after Return()", p.name, op.Type)
	}
	for _, v := range op.Operands {
		if int(v) < 0 || int(v) >= len(p.ops) {
			exceptions.Panicf("program %q: %s operand %d is not a value of this program", p.name, op.Type, v)
		}
	}
	p.ops = append(p.ops, op)
	return Value(len(p.ops) - 1)
}

// Parameter creates a new input value, the i-th call maps to the i-th subgraph input.
func (p *Program) Parameter() Value {
	v := p.addOp(Op{Type: OpTypeParameter, ParameterIdx: p.numParams})
	p.numParams++
	return v
}

// Constant creates a scalar constant broadcast to every element.
func (p *Program) Constant(c float32) Value {
	return p.addOp(Op{Type: OpTypeConstant, Constant: c})
}

// Unary adds a unary operation of the given type.
func (p *Program) Unary(opType OpType, x Value) Value {
	if !opType.IsUnary() {
		exceptions.Panicf("program %q: %s is not a unary operation", p.name, opType)
	}
	return p.addOp(Op{Type: opType, Operands: []Value{x}})
}

// Binary adds a binary operation of the given type.
func (p *Program) Binary(opType OpType, lhs, rhs Value) Value {
	if !opType.IsBinary() {
		exceptions.Panicf("program %q: %s is not a binary operation", p.name, opType)
	}
	return p.addOp(Op{Type: opType, Operands: []Value{lhs, rhs}})
}

func (p *Program) Abs(x Value) Value      { return p.Unary(OpTypeAbs, x) }
func (p *Program) Neg(x Value) Value      { return p.Unary(OpTypeNeg, x) }
func (p *Program) Exp(x Value) Value      { return p.Unary(OpTypeExp, x) }
func (p *Program) Log(x Value) Value      { return p.Unary(OpTypeLog, x) }
func (p *Program) Sqrt(x Value) Value     { return p.Unary(OpTypeSqrt, x) }
func (p *Program) Rsqrt(x Value) Value    { return p.Unary(OpTypeRsqrt, x) }
func (p *Program) Tanh(x Value) Value     { return p.Unary(OpTypeTanh, x) }
func (p *Program) Logistic(x Value) Value { return p.Unary(OpTypeLogistic, x) }
func (p *Program) Relu(x Value) Value     { return p.Unary(OpTypeRelu, x) }
func (p *Program) Erf(x Value) Value      { return p.Unary(OpTypeErf, x) }
func (p *Program) Floor(x Value) Value    { return p.Unary(OpTypeFloor, x) }
func (p *Program) Ceil(x Value) Value     { return p.Unary(OpTypeCeil, x) }
func (p *Program) Sign(x Value) Value     { return p.Unary(OpTypeSign, x) }
func (p *Program) Square(x Value) Value   { return p.Unary(OpTypeSquare, x) }

func (p *Program) Add(lhs, rhs Value) Value { return p.Binary(OpTypeAdd, lhs, rhs) }
func (p *Program) Sub(lhs, rhs Value) Value { return p.Binary(OpTypeSub, lhs, rhs) }
func (p *Program) Mul(lhs, rhs Value) Value { return p.Binary(OpTypeMul, lhs, rhs) }
func (p *Program) Div(lhs, rhs Value) Value { return p.Binary(OpTypeDiv, lhs, rhs) }
func (p *Program) Max(lhs, rhs Value) Value { return p.Binary(OpTypeMax, lhs, rhs) }
func (p *Program) Min(lhs, rhs Value) Value { return p.Binary(OpTypeMin, lhs, rhs) }
func (p *Program) Pow(lhs, rhs Value) Value { return p.Binary(OpTypePow, lhs, rhs) }

// SquaredDifference returns (lhs-rhs)^2.
func (p *Program) SquaredDifference(lhs, rhs Value) Value {
	return p.Binary(OpTypeSquaredDifference, lhs, rhs)
}

// FusedMulAdd returns x*y+z.
func (p *Program) FusedMulAdd(x, y, z Value) Value {
	return p.addOp(Op{Type: OpTypeFusedMulAdd, Operands: []Value{x, y, z}})
}

// Clamp returns x limited to the range [lo, hi].
func (p *Program) Clamp(lo, x, hi Value) Value {
	return p.addOp(Op{Type: OpTypeClamp, Operands: []Value{lo, x, hi}})
}

// Return marks the given values as the program outputs, in order. No operations can be added afterward.
func (p *Program) Return(outputs ...Value) {
	if p.returned {
		exceptions.Panicf("program %q: Return() called twice", p.name)
	}
	for _, v := range outputs {
		if int(v) < 0 || int(v) >= len(p.ops) {
			exceptions.Panicf("program %q: output %d is not a value of this program", p.name, v)
		}
	}
	p.outputs = outputs
	p.returned = true
}

// Validate checks that the program is complete and consistent with the given number of operands.
func (p *Program) Validate(numInputs, numOutputs int) error {
	if p == nil {
		return errors.New("nil program")
	}
	if !p.returned {
		return errors.Errorf("program %q: Return() was never called", p.name)
	}
	if len(p.outputs) == 0 {
		return errors.Errorf("program %q has no outputs", p.name)
	}
	if p.numParams != numInputs {
		return errors.Errorf("program %q has %d parameters, but the subgraph has %d inputs",
			p.name, p.numParams, numInputs)
	}
	if len(p.outputs) != numOutputs {
		return errors.Errorf("program %q returns %d values, but the subgraph has %d outputs",
			p.name, len(p.outputs), numOutputs)
	}
	for ii, op := range p.ops {
		if op.Type <= OpTypeInvalid || op.Type >= OpTypeLast {
			return errors.Errorf("program %q: op #%d has invalid type %s", p.name, ii, op.Type)
		}
		if len(op.Operands) != op.Type.NumOperands() {
			return errors.Errorf("program %q: op #%d (%s) has %d operands, wanted %d",
				p.name, ii, op.Type, len(op.Operands), op.Type.NumOperands())
		}
		for _, v := range op.Operands {
			if int(v) >= ii {
				return errors.Errorf("program %q: op #%d (%s) uses value %d defined later", p.name, ii, op.Type, v)
			}
		}
	}
	return nil
}

// String returns a multi-line listing of the program.
func (p *Program) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Program %q (%d inputs, %d outputs):\n", p.name, p.numParams, len(p.outputs))
	for ii, op := range p.ops {
		_, _ = fmt.Fprintf(&sb, "\t#%d = %s", ii, op.Type)
		switch op.Type {
		case OpTypeParameter:
			_, _ = fmt.Fprintf(&sb, "(%d)", op.ParameterIdx)
		case OpTypeConstant:
			_, _ = fmt.Fprintf(&sb, "(%g)", op.Constant)
		default:
			parts := make([]string, len(op.Operands))
			for jj, v := range op.Operands {
				parts[jj] = fmt.Sprintf("#%d", v)
			}
			_, _ = fmt.Fprintf(&sb, "(%s)", strings.Join(parts, ", "))
		}
		sb.WriteString("\n")
	}
	parts := make([]string, len(p.outputs))
	for jj, v := range p.outputs {
		parts[jj] = fmt.Sprintf("#%d", v)
	}
	_, _ = fmt.Fprintf(&sb, "\treturn %s\n", strings.Join(parts, ", "))
	return sb.String()
}
