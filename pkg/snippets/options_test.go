// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	opts, err := ParseConfig("")
	require.NoError(t, err)
	defaults := DefaultOptions()
	assert.Equal(t, defaults, opts)
	assert.Equal(t, 256, defaults.MinimalJitWorkAmount)
	assert.Equal(t, 8, defaults.Lanes)

	opts, err = ParseConfig("workers=3, min_jit_work=512,lanes=16,flattened,partitioning=dynamic")
	require.NoError(t, err)
	assert.Equal(t, 3, opts.NumWorkers)
	assert.Equal(t, 512, opts.MinimalJitWorkAmount)
	assert.Equal(t, 16, opts.Lanes)
	assert.True(t, opts.ForceFlattened)
	assert.Equal(t, PartitioningDynamic, opts.Partitioning)

	opts, err = ParseConfig("flattened=false,workers=-1")
	require.NoError(t, err)
	assert.False(t, opts.ForceFlattened)
	assert.Equal(t, -1, opts.NumWorkers)

	for _, bad := range []string{"unknown=1", "workers=x", "lanes=0", "min_jit_work=-3", "partitioning=random", "flattened=maybe"} {
		_, err = ParseConfig(bad)
		require.Error(t, err, "config %q", bad)
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv(SNIPPETS_CONFIG, "workers=2")
	opts, err := OptionsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, opts.NumWorkers)

	t.Setenv(SNIPPETS_CONFIG, "workers=2,bogus")
	_, err = OptionsFromEnv()
	require.Error(t, err)
}

func TestEnums(t *testing.T) {
	for _, s := range StrategyValues() {
		parsed, err := StrategyString(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	assert.Equal(t, "Parallel6DScratch", StrategyParallel6DScratch.String())
	p, err := PartitioningString("static")
	require.NoError(t, err)
	assert.Equal(t, PartitioningStatic, p)
}
