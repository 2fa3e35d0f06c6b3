// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

// Strategy used to dispatch the kernel over the execution domain.
type Strategy int

//go:generate go tool enumer -type=Strategy -trimprefix=Strategy -output=gen_strategy_enumer.go strategy.go

const (
	// StrategyParallel6D parallelizes the 5 outer dimensions of a rank-6 domain, all calls share the same
	// kernel.CallArgs.
	StrategyParallel6D Strategy = iota

	// StrategyParallel6DScratch is StrategyParallel6D where each worker gets its own copy of the
	// kernel.CallArgs, pointing to a private broadcast scratch.
	StrategyParallel6DScratch

	// StrategyFlattenedND flattens the harness dimensions of a domain of any rank into one index space,
	// partitioned among the workers.
	StrategyFlattenedND
)
