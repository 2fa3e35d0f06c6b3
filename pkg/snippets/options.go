// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/pkg/errors"
)

// SNIPPETS_CONFIG is the environment variable with the default configuration used by OptionsFromEnv.
// See ParseConfig for its format.
const SNIPPETS_CONFIG = "SNIPPETS_CONFIG"

// DefaultMinimalJitWorkAmount is the number of elements below which the innermost kernel loop is considered
// too short, and the domain optimizer tries to collapse more dimensions into it.
const DefaultMinimalJitWorkAmount = 256

// DefaultLanes is the default vector width, in float32 elements.
const DefaultLanes = 8

// Partitioning selects how the flattened strategy splits the harness work among workers.
type Partitioning int

//go:generate go tool enumer -type=Partitioning -trimprefix=Partitioning -output=gen_partitioning_enumer.go options.go

const (
	// PartitioningStatic gives each worker one contiguous range of balanced size.
	PartitioningStatic Partitioning = iota

	// PartitioningDynamic lets workers claim fixed size chunks from a shared atomic counter.
	PartitioningDynamic
)

// Options configure a Subgraph.
type Options struct {
	// NumWorkers is the number of parallel workers: it is both the minimal concurrency the domain optimizer
	// preserves and the parallelism of the schedulers. 0 disables parallelism, < 0 means runtime.GOMAXPROCS.
	NumWorkers int

	// MinimalJitWorkAmount is the innermost work amount the domain optimizer aims for.
	MinimalJitWorkAmount int

	// Lanes is the vector width of the kernel, in elements.
	Lanes int

	// ForceFlattened makes static rank-6 configurations use the flattened strategy.
	ForceFlattened bool

	// Partitioning of the flattened strategy.
	Partitioning Partitioning

	// Generator of kernels. If nil, the portable interpreter is used.
	Generator kernel.Generator
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		NumWorkers:           runtime.NumCPU(),
		MinimalJitWorkAmount: DefaultMinimalJitWorkAmount,
		Lanes:                DefaultLanes,
		Partitioning:         PartitioningStatic,
	}
}

// OptionsFromEnv returns the options configured by the environment variable SNIPPETS_CONFIG, or
// the DefaultOptions if it is not set.
func OptionsFromEnv() (Options, error) {
	config, found := os.LookupEnv(SNIPPETS_CONFIG)
	if !found {
		return DefaultOptions(), nil
	}
	opts, err := ParseConfig(config)
	if err != nil {
		return opts, errors.WithMessagef(err, "parsing $%s", SNIPPETS_CONFIG)
	}
	return opts, nil
}

// ParseConfig parses a comma-separated list of "key=value" settings on top of the DefaultOptions.
//
// Keys:
//
//   - workers: number of workers, see Options.NumWorkers.
//   - min_jit_work: Options.MinimalJitWorkAmount, must be positive.
//   - lanes: Options.Lanes, must be positive.
//   - flattened: Options.ForceFlattened, a boolean. A bare "flattened" means true.
//   - partitioning: "static" or "dynamic".
//
// Unknown keys are an error. Example: "workers=4,min_jit_work=512,flattened".
func ParseConfig(config string) (Options, error) {
	opts := DefaultOptions()
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		var err error
		switch key {
		case "workers":
			opts.NumWorkers, err = strconv.Atoi(value)
		case "min_jit_work":
			opts.MinimalJitWorkAmount, err = parsePositive(value)
		case "lanes":
			opts.Lanes, err = parsePositive(value)
		case "flattened":
			opts.ForceFlattened = true
			if hasValue {
				opts.ForceFlattened, err = strconv.ParseBool(value)
			}
		case "partitioning":
			opts.Partitioning, err = PartitioningString(value)
		default:
			return opts, errors.Errorf("unknown configuration option %q in %q", key, config)
		}
		if err != nil {
			return opts, errors.Wrapf(err, "invalid value for configuration option %q in %q", key, config)
		}
	}
	return opts, nil
}

func parsePositive(value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, errors.Errorf("%d is not positive", n)
	}
	return n, nil
}
