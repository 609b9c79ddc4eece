// Package main provides the devanaga entry point: command-line parsing,
// profiling, config loading, and routing to either a plain-text summary
// or a passive terminal progress monitor for one DVA design run.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"devana/internal/config"
	"devana/internal/events"
	"devana/internal/fitness"
	"devana/internal/ga"
	"devana/internal/sobol"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a devana TOML config file (default: devana.toml or ~/.config/devana/config.toml)")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile := flag.String("memprofile", "", "write memory profile to file")
	visual := flag.Bool("visual", false, "show a live terminal progress monitor instead of a final summary")
	debugLogFlag := flag.Bool("debug", false, "enable debug logging to devana-debug.log")
	runSobol := flag.Bool("sobol", false, "run Sobol sensitivity analysis first and guide the GA with its priority weights")
	flag.Parse()

	if *debugLogFlag {
		if err := InitDebugLog("devana-debug.log"); err != nil {
			log.Printf("failed to set up debug log: %v", err)
			return 1
		}
	}

	if *cpuprofile != "" {
		stop := setupCPUProfile(*cpuprofile)
		defer stop()
	}
	if *memprofile != "" {
		defer writeMemoryProfile(*memprofile)
	}

	path := *configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	runCfg, err := config.Load(path)
	if err != nil {
		log.Printf("config: %v", err)
		return 1
	}
	debugf("loaded config from %s", path)

	fn, err := fitness.NewFunction(runCfg.ToFitnessConfig(debugLog))
	if err != nil {
		log.Printf("fitness configuration invalid: %v", err)
		return 1
	}

	space := runCfg.ToParameterSpace()
	main_ := runCfg.ToMainParams()

	engine, err := ga.NewEngine(space, main_, fn, runCfg.ToGAConfig())
	if err != nil {
		log.Printf("ga configuration invalid: %v", err)
		return 1
	}
	fmt.Printf("theoretical minimum fitness: %.6f\n", fitness.TheoreticalMinimum(runCfg.ToFitnessConfig(debugLog)))

	if *runSobol {
		debugf("running sobol sensitivity analysis")
		result := sobol.Analyze(space, func(genes []float64) float64 {
			return fn.Evaluate(main_, genes)
		}, runCfg.SobolSampleSize, func(pct int) {
			debugf("sobol progress: %d%%", pct)
		})
		engine.SetPriorityWeights(result.Priority)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		debugf("signal received, aborting run")
		engine.Abort()
		cancel()
	}()

	go engine.Run(ctx)

	if *visual {
		return runVisual(engine)
	}
	return runPlain(engine)
}

// runVisual drives the bubbletea passive monitor over the engine's event
// stream.
func runVisual(engine *ga.Engine) int {
	model := newMonitorModel(engine.Events())
	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		log.Printf("monitor error: %v", err)
		return 1
	}
	if engine.State() == ga.StateFailed {
		return 1
	}
	return 0
}

// runPlain prints generation progress and the final result to stdout
// without a terminal UI, for scripted or non-TTY invocations.
func runPlain(engine *ga.Engine) int {
	var failed bool
	prevMin := math.Inf(1)
	for ev := range engine.Events() {
		switch ev.Kind {
		case events.KindStatus:
			fmt.Println(ev.Text)
		case events.KindGenerationMetrics:
			fmt.Printf("gen %d  min %s  mean %.6f  diversity %.4f\n",
				ev.Generation.Generation, formatMinimalPrecision(prevMin, ev.Generation.MinFitness), ev.Generation.MeanFitness, ev.Generation.Diversity)
			prevMin = ev.Generation.MinFitness
		case events.KindBenchmark:
			fmt.Printf("benchmark: %d generations, %d evaluations, %d cache hits, %s elapsed\n",
				ev.Benchmark.TotalGenerations, ev.Benchmark.TotalEvaluations, ev.Benchmark.CacheHits, ev.Benchmark.Elapsed)
		case events.KindFinished:
			fmt.Printf("\nbest fitness: %.10f\n", ev.BestFitness)
		case events.KindError:
			fmt.Printf("\nerror: %s\n", ev.Text)
			failed = true
		}
	}
	if failed {
		return 1
	}
	return 0
}

func setupCPUProfile(filename string) func() {
	f, err := os.Create(filename)
	if err != nil {
		log.Fatalf("could not create CPU profile: %v", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		log.Fatalf("could not start CPU profile: %v", err)
	}
	return func() {
		pprof.StopCPUProfile()
		if err := f.Close(); err != nil {
			log.Printf("warning: failed to close CPU profile: %v", err)
		}
	}
}

func writeMemoryProfile(filename string) {
	f, err := os.Create(filename)
	if err != nil {
		log.Printf("could not create memory profile: %v", err)
		return
	}
	defer f.Close()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Printf("could not write memory profile: %v", err)
	}
}
