// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"unsafe"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Buffer holds the data of one operand: a dense row-major float32 array of the given Shape, starting at
// element OffsetPadding of Flat.
type Buffer struct {
	Shape shapes.Shape
	Flat  []float32

	// OffsetPadding is the number of leading elements of Flat to skip.
	OffsetPadding int
}

// NewBuffer allocates a zeroed buffer for the given static shape.
func NewBuffer(shape shapes.Shape) *Buffer {
	return &Buffer{Shape: shape, Flat: make([]float32, shape.Size())}
}

// NewBufferFromFlat creates a buffer with the given shape that uses flat as its storage.
func NewBufferFromFlat(flat []float32, dimensions ...int) *Buffer {
	return &Buffer{Shape: shapes.Make(dtypes.Float32, dimensions...), Flat: flat}
}

// Data returns the elements of the buffer, after the padding.
func (b *Buffer) Data() []float32 {
	return b.Flat[b.OffsetPadding : b.OffsetPadding+b.Shape.Size()]
}

// check validates the buffer is static, float32 and large enough.
func (b *Buffer) check() error {
	if b == nil {
		return errors.New("nil buffer")
	}
	if b.Shape.DType != dtypes.Float32 {
		return errors.Errorf("buffer of shape %s: only Float32 is supported", b.Shape)
	}
	if b.Shape.IsDynamic() {
		return errors.Errorf("buffer of shape %s must have a static shape", b.Shape)
	}
	if b.OffsetPadding < 0 {
		return errors.Errorf("buffer of shape %s has negative offset padding %d", b.Shape, b.OffsetPadding)
	}
	if needed := b.OffsetPadding + b.Shape.Size(); len(b.Flat) < needed {
		return errors.Errorf("buffer of shape %s with offset padding %d requires %d elements, got %d",
			b.Shape, b.OffsetPadding, needed, len(b.Flat))
	}
	return nil
}

// basePointer returns the address of the first element after the padding, or nil for empty buffers.
func (b *Buffer) basePointer() unsafe.Pointer {
	if b.Shape.Size() == 0 {
		return nil
	}
	return unsafe.Pointer(&b.Flat[b.OffsetPadding])
}
