// Package main provides the frostsim CLI: it runs built-in
// microbenchmarks on the out-of-order core model and reports timing
// statistics.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/twosigma/frost-sub005/insts"
	"github.com/twosigma/frost-sub005/timing/core"
	"github.com/twosigma/frost-sub005/timing/latency"
	"github.com/twosigma/frost-sub005/timing/tomasulo"
)

var (
	configPath = flag.String("config", "", "Path to latency configuration JSON file")
	maxCycles  = flag.Uint64("cycles", 1_000_000, "Cycle limit before giving up")
	verbose    = flag.Bool("v", false, "Verbose output")
	list       = flag.Bool("list", false, "List available benchmarks")
)

// benchmark is one built-in microbenchmark: a program plus optional
// initial memory state.
type benchmark struct {
	desc  string
	build func() *insts.Program
	init  func(c *core.Core)
}

var benchmarks = map[string]benchmark{
	"chain": {
		desc:  "serial dependent ALU chain",
		build: buildChain,
	},
	"ilp": {
		desc:  "independent multiplies exposing parallelism",
		build: buildILP,
	},
	"loop": {
		desc:  "counted loop training the branch predictor",
		build: buildLoop,
	},
	"memory": {
		desc:  "store/load traffic with forwarding and cache reuse",
		build: buildMemory,
	},
	"fp": {
		desc:  "floating-point add, multiply, and divide",
		build: buildFP,
		init:  initFP,
	},
}

func main() {
	flag.Parse()

	if *list {
		listBenchmarks()
		return
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: frostsim [options] <benchmark>\n\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nRun 'frostsim -list' to see the benchmarks.\n")
		os.Exit(1)
	}

	name := flag.Arg(0)
	bench, ok := benchmarks[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown benchmark %q\n", name)
		listBenchmarks()
		os.Exit(1)
	}

	var opts []tomasulo.Option
	if *configPath != "" {
		cfg, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading latency config: %v\n", err)
			os.Exit(1)
		}
		opts = append(opts, tomasulo.WithLatencies(cfg))
	}

	c := core.NewCore(bench.build(), opts...)
	if bench.init != nil {
		bench.init(c)
	}

	if c.RunCycles(*maxCycles) {
		fmt.Fprintf(os.Stderr, "Benchmark %q did not halt within %d cycles\n", name, *maxCycles)
		os.Exit(1)
	}

	report(name, c)
	os.Exit(int(c.ExitCode()))
}

func listBenchmarks() {
	names := make([]string, 0, len(benchmarks))
	for name := range benchmarks {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("Available benchmarks:")
	for _, name := range names {
		fmt.Printf("  %-8s %s\n", name, benchmarks[name].desc)
	}
}

func report(name string, c *core.Core) {
	stats := c.Stats()

	fmt.Printf("Benchmark: %s\n", name)
	fmt.Printf("Exit code: %d\n", c.ExitCode())
	fmt.Printf("Cycles: %d\n", stats.Cycles)
	fmt.Printf("Instructions: %d\n", stats.Instructions)
	fmt.Printf("IPC: %.3f\n", stats.IPC())

	if !*verbose {
		return
	}

	es := c.Engine.Stats()
	ps := c.Frontend.PredictorStats()
	cs := c.Engine.CacheStats()
	ls := c.Engine.LoadQueueStats()
	ss := c.Engine.StoreQueueStats()

	fmt.Printf("\nDispatch stalls: %d\n", es.DispatchStalls)
	fmt.Printf("Broadcasts: %d\n", es.Broadcasts)
	fmt.Printf("Branches: %d (mispredicted %d)\n", es.Branches, es.Mispredictions)
	fmt.Printf("Predictor accuracy: %.1f%%\n", ps.Accuracy())
	fmt.Printf("Flushes: %d partial, %d full\n", es.PartialFlushes, es.FullFlushes)
	fmt.Printf("Replays: %d, traps: %d\n", es.Replays, es.Traps)
	fmt.Printf("L0 cache: %d reads, %.1f%% hit rate, %d fills\n",
		cs.Reads, cs.HitRate(), cs.Fills)
	fmt.Printf("Loads: %d (%d forwarded, %d from memory)\n",
		ls.Allocations, ls.Forwards, ls.MemReads)
	fmt.Printf("Stores: %d retired %d\n", ss.Allocations, ss.Retirements)
}

// buildChain is a serial dependency chain: every add consumes the
// previous result, so IPC is bounded by the ALU latency.
func buildChain() *insts.Program {
	p := insts.NewProgram().AddI(1, 0, 1)
	for i := 0; i < 100; i++ {
		p.Add(1, 1, 1)
	}
	// x1 doubles 100 times starting from 1; keep only the low byte as
	// the exit code.
	return p.AddI(2, 0, 0xFF).And(3, 1, 2).Halt(3)
}

// buildILP runs independent multiplies across many registers so the
// scheduler can overlap them.
func buildILP() *insts.Program {
	p := insts.NewProgram()
	for r := uint8(1); r <= 8; r++ {
		p.AddI(r, 0, int64(r))
	}
	for i := 0; i < 10; i++ {
		for r := uint8(1); r <= 8; r++ {
			p.Mul(r+8, r, r)
		}
	}
	p.Add(17, 9, 10)
	return p.Halt(0)
}

// buildLoop counts to 64 with a backward branch, giving the predictor a
// long stretch of taken branches before the final fallthrough.
func buildLoop() *insts.Program {
	p := insts.NewProgram().
		AddI(1, 0, 64).
		AddI(2, 0, 0)
	loop := p.NextPC()
	return p.
		AddI(2, 2, 1).
		Bne(2, 1, loop).
		Halt(2)
}

// buildMemory writes a small array and reads it back twice: the first
// pass exercises store-to-load forwarding and misses, the second hits
// the L0 cache.
func buildMemory() *insts.Program {
	p := insts.NewProgram().
		AddI(1, 0, 0x100). // base
		AddI(2, 0, 64).    // array size in bytes
		AddI(3, 0, 0)      // offset

	storeLoop := p.NextPC()
	p.Add(4, 1, 3).
		Store(3, 4, 0, insts.SizeDouble).
		AddI(3, 3, 8).
		Bne(3, 2, storeLoop)

	p.AddI(3, 0, 0).
		AddI(6, 0, 0) // sum
	loadLoop := p.NextPC()
	p.Add(4, 1, 3).
		Load(7, 4, 0, insts.SizeDouble).
		Add(6, 6, 7).
		AddI(3, 3, 8).
		Bne(3, 2, loadLoop)

	return p.Halt(6)
}

// buildFP loads two doubles, runs them through all three FP units, and
// stores the result back.
func buildFP() *insts.Program {
	return insts.NewProgram().
		AddI(1, 0, 0x200).
		FLoad(1, 1, 0).
		FLoad(2, 1, 8).
		FAdd(3, 1, 2).
		FMul(4, 3, 3).
		FDiv(5, 4, 3).
		FStore(5, 1, 16).
		Load(2, 1, 16, insts.SizeDouble).
		Halt(0)
}

func initFP(c *core.Core) {
	c.Memory().Write64(0x200, math.Float64bits(1.5))
	c.Memory().Write64(0x208, math.Float64bits(2.5))
}
