// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"slices"

	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/gomlx/snippets/pkg/snippets/ops"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// binder owns the interaction with the kernel generator.
//
// Static configurations generate one kernel with all tables baked in. Dynamic configurations generate one
// shape-agnostic kernel on first use, and reuse it for every later configuration.
type binder struct {
	generator kernel.Generator
	program   *ops.Program

	// dynamicSchedule is the shape-agnostic schedule, generated once.
	dynamicSchedule *kernel.Schedule

	numGenerated int
}

func newBinder(generator kernel.Generator, program *ops.Program) *binder {
	return &binder{generator: generator, program: program}
}

// Bind returns the schedule for the configuration.
//
// It returns an error wrapping ErrUnsupportedDomain if the configuration has more harness dimensions than
// kernel.MaxHarnessDims, or if it is dynamic and the generator can't produce shape-agnostic kernels.
func (b *binder) Bind(cfg *Configuration) (*kernel.Schedule, error) {
	if harnessRank := cfg.HarnessRank(); harnessRank > kernel.MaxHarnessDims {
		return nil, errors.Wrapf(ErrUnsupportedDomain, "program %q: execution domain %v with tile rank %d has %d harness dimensions, at most %d are supported",
			b.program.Name(), cfg.CollapsedMaster, cfg.TileRank, harnessRank, kernel.MaxHarnessDims)
	}

	if cfg.Dynamic {
		if err := b.generateShapeAgnostic(); err != nil {
			return nil, err
		}
		schedule := *b.dynamicSchedule
		schedule.ExecDomain = slices.Clone(cfg.ExecDomain)
		schedule.HarnessWorkAmount = cfg.HarnessWorkAmount
		return &schedule, nil
	}

	k, err := b.generator.Generate(b.program, cfg.CompileArgs())
	if err != nil {
		return nil, errors.WithMessagef(err, "generating kernel for program %q, master shape %v", b.program.Name(), cfg.CollapsedMaster)
	}
	b.numGenerated++
	schedule := kernel.NewSchedule(k, false)
	schedule.ExecDomain = slices.Clone(cfg.ExecDomain)
	schedule.HarnessWorkAmount = cfg.HarnessWorkAmount
	klog.V(1).Infof("snippets: program %q: generated %s", b.program.Name(), schedule)
	return schedule, nil
}

// generateShapeAgnostic generates the shape-agnostic kernel, if not generated yet.
func (b *binder) generateShapeAgnostic() error {
	if b.dynamicSchedule != nil {
		return nil
	}
	if !b.generator.Capabilities().ShapeAgnostic {
		return errors.Wrapf(ErrUnsupportedDomain, "program %q: kernel generator %T can't generate shape-agnostic kernels",
			b.program.Name(), b.generator)
	}
	k, err := b.generator.Generate(b.program, nil)
	if err != nil {
		return errors.WithMessagef(err, "generating shape-agnostic kernel for program %q", b.program.Name())
	}
	b.numGenerated++
	b.dynamicSchedule = kernel.NewSchedule(k, true)
	klog.V(1).Infof("snippets: program %q: generated shape-agnostic kernel, schedule %s", b.program.Name(), b.dynamicSchedule.ID)
	return nil
}
