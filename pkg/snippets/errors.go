// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import "github.com/pkg/errors"

// Error kinds returned (wrapped) by the package. Test for them with errors.Is.
var (
	// ErrShapeMismatch is returned when operand extents are not mutually broadcastable, or when an output
	// doesn't match the execution domain.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrUnsupportedDomain is returned when the execution domain has more harness dimensions than a kernel
	// accepts, or when the generator can't produce the kernel variant required.
	ErrUnsupportedDomain = errors.New("unsupported execution domain")

	// ErrRankLimit is returned when the normalized rank exceeds what the configuration supports.
	ErrRankLimit = errors.New("rank limit exceeded")

	// ErrExecutionPrecondition is returned when executing without a kernel, or with the optimized path disabled.
	ErrExecutionPrecondition = errors.New("execution precondition failed")
)
