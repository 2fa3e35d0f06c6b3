// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// snippets_plan prints the execution plan of a fused elementwise subgraph: the normalized and collapsed
// operand shapes, the kernel offset tables and the scheduling strategy. Optionally it also runs it.
//
// Example:
//
//	snippets_plan -in="2x?x8;1x1x8" -out="2x?x8" -op=mul -config="workers=4" -run
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/snippets/pkg/core/shapes"
	"github.com/gomlx/snippets/pkg/snippets"
	"github.com/gomlx/snippets/pkg/snippets/ops"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagInputs = flag.String("in", "", "Input shapes, separated by \";\", with dimensions separated by \"x\". "+
		"Use \"?\" for dynamic dimensions and \"scalar\" for shapes without dimensions. Example: \"2x?x8;1x1x8\".")
	flagOutputs = flag.String("out", "", "Output shapes, same format as -in. All outputs hold the same result, "+
		"offset by their index.")
	flagOp = flag.String("op", "add", "Binary operation used to fold all inputs: "+
		"add, sub, mul, div, max, min or pow.")
	flagConfig = flag.String("config", "", fmt.Sprintf("Configuration of the subgraph, see snippets.ParseConfig. "+
		"If empty, $%s is used.", snippets.SNIPPETS_CONFIG))
	flagDynamic = flag.Int("dynamic", 4, "Value used for the dynamic (\"?\") dimensions when planning a dynamic subgraph.")
	flagRun     = flag.Bool("run", false, "Run the subgraph on iota data and report the execution time.")
	flagRepeat  = flag.Int("repeat", 10, "Number of runs measured with -run.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagInputs == "" || *flagOutputs == "" {
		klog.Errorf("Both -in and -out must be given. See 'snippets_plan -help'.")
		os.Exit(1)
	}
	inputs := must.M1(parseShapes(*flagInputs))
	outputs := must.M1(parseShapes(*flagOutputs))
	program := must.M1(buildProgram(*flagOp, len(inputs), len(outputs)))

	var opts snippets.Options
	if *flagConfig != "" {
		opts = must.M1(snippets.ParseConfig(*flagConfig))
	} else {
		opts = must.M1(snippets.OptionsFromEnv())
	}
	sg, err := snippets.New(program, inputs, outputs, opts)
	if err != nil {
		klog.Fatalf("Failed to create subgraph: %+v", err)
	}

	runtimeInputs := make([]shapes.Shape, len(inputs))
	for ii, s := range inputs {
		runtimeInputs[ii] = resolveShape(s, *flagDynamic)
	}
	if sg.IsDynamic() {
		if err := sg.PrepareParams(runtimeInputs); err != nil {
			klog.Fatalf("Failed to prepare dynamic subgraph for %s: %+v", runtimeInputs, err)
		}
	}
	report(program, sg, opts)
	if *flagRun {
		run(sg, runtimeInputs)
	}
}

// buildProgram folds all inputs with the binary operation opName. Output #k returns the result plus k.
func buildProgram(opName string, numInputs, numOutputs int) (*ops.Program, error) {
	if numInputs < 1 || numOutputs < 1 {
		return nil, errors.Errorf("at least one input and one output required, got %d inputs and %d outputs",
			numInputs, numOutputs)
	}
	opType, err := ops.OpTypeString(opName)
	if err != nil || !opType.IsBinary() {
		return nil, errors.Errorf("-op=%q is not a binary operation", opName)
	}
	p := ops.NewProgram(strings.ToLower(opType.String()))
	result := p.Parameter()
	for range numInputs - 1 {
		result = p.Binary(opType, result, p.Parameter())
	}
	outputs := make([]ops.Value, numOutputs)
	outputs[0] = result
	for ii := 1; ii < numOutputs; ii++ {
		outputs[ii] = p.Add(result, p.Constant(float32(ii)))
	}
	p.Return(outputs...)
	return p, nil
}

func report(program *ops.Program, sg *snippets.Subgraph, opts snippets.Options) {
	for _, sec := range planSections(program, sg, opts) {
		fmt.Println(sec.render())
	}
}

// planSections returns the report of the current configuration of the subgraph.
func planSections(program *ops.Program, sg *snippets.Subgraph, opts snippets.Options) []*section {
	cfg := sg.Configuration()
	strategy, disabledErr := sg.Strategy()

	summary := &section{title: "Subgraph"}
	summary.add("program", strings.TrimSpace(program.String()))
	summary.add("workers", humanize.Comma(int64(sg.NumWorkers())))
	summary.add("lanes", fmt.Sprint(opts.Lanes))
	summary.add("dynamic", fmt.Sprint(sg.IsDynamic()))
	summary.add("tensor rank", fmt.Sprint(sg.TensorRank()))
	summary.add("declared master", sg.MasterShape().String())
	summary.add("elements", humanize.Comma(int64(cfg.FullWorkAmount)))
	var memory uintptr
	for _, s := range append(slices.Clone(cfg.Inputs), cfg.Outputs...) {
		memory += s.Memory()
	}
	summary.add("memory", humanize.Bytes(uint64(memory)))

	domain := &section{
		title:     "Execution Domain",
		highlight: func(row []string) bool { return row[0] == "disabled" },
	}
	domain.add("master", cfg.Master.String())
	domain.add("collapsed master", formatInts(cfg.CollapsedMaster))
	domain.add("exec domain", formatInts(cfg.ExecDomain))
	domain.add("tile rank", fmt.Sprint(cfg.TileRank))
	domain.add("tile work amounts", formatInts(cfg.SchedulerWorkAmounts[:]))
	domain.add("kernel calls", humanize.Comma(int64(cfg.HarnessWorkAmount)))
	domain.add("strategy", strategy.String())
	if disabledErr != nil {
		domain.add("disabled", disabledErr.Error())
	} else if schedule := sg.Schedule(); schedule != nil {
		domain.add("schedule", schedule.ID.String())
	}

	operands := &section{
		title:     "Operands",
		headers:   []string{"Operand", "Normalized", "Collapsed", "Data Offsets", "Scheduler Offset", "Broadcast"},
		highlight: func(row []string) bool { return row[5] == "true" },
	}
	offsetRank := cfg.TensorRank - 1
	addOperand := func(name string, normalized shapes.Shape, collapsed []int, p int) {
		operands.add(name, formatInts(normalized.Dimensions), formatInts(collapsed),
			formatInts(cfg.DataOffsets[p*offsetRank:(p+1)*offsetRank]),
			fmt.Sprint(cfg.SchedulerOffsets[p]), fmt.Sprint(cfg.BroadcastMask[p]))
	}
	for ii, s := range cfg.Inputs {
		addOperand(fmt.Sprintf("input #%d", ii), s, cfg.CollapsedInputs[ii], ii)
	}
	for ii, s := range cfg.Outputs {
		addOperand(fmt.Sprintf("output #%d", ii), s, cfg.CollapsedOutputs[ii], len(cfg.Inputs)+ii)
	}
	return []*section{summary, domain, operands}
}

func run(sg *snippets.Subgraph, runtimeInputs []shapes.Shape) {
	inputs := make([]*snippets.Buffer, len(runtimeInputs))
	for ii, s := range runtimeInputs {
		inputs[ii] = snippets.NewBuffer(s)
		for jj := range inputs[ii].Flat {
			inputs[ii].Flat[jj] = float32(jj%100) / 10
		}
	}
	outputShapes := sg.OutputShapes()
	outputs := make([]*snippets.Buffer, len(outputShapes))
	for ii, s := range outputShapes {
		outputs[ii] = snippets.NewBuffer(s)
	}

	// Warm-up.
	if err := sg.Run(inputs, outputs); err != nil {
		klog.Fatalf("Failed to run subgraph: %+v", err)
	}
	repeat := max(*flagRepeat, 1)
	start := time.Now()
	for range repeat {
		must.M(sg.Run(inputs, outputs))
	}
	elapsed := time.Since(start) / time.Duration(repeat)
	elements := sg.Configuration().FullWorkAmount

	timing := &section{title: "Run"}
	timing.add("time per run", elapsed.String())
	if elapsed > 0 {
		timing.add("elements/s", humanize.SIWithDigits(float64(elements)/elapsed.Seconds(), 2, ""))
	}
	if len(outputs) > 0 && len(outputs[0].Data()) > 0 {
		out := outputs[0].Data()
		timing.add("output #0", fmt.Sprintf("[%g ... %g]", out[0], out[len(out)-1]))
	}
	fmt.Println(timing.render())
}
