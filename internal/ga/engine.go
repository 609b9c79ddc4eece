// Package ga implements the Guided Genetic Algorithm engine: the
// cooperative, cancellable worker that drives a population of DVA
// parameter vectors toward minimal fitness, plus the adaptive controller,
// surrogate screener, and seeder it composes.
package ga

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"devana/internal/dva"
	"devana/internal/events"
	"devana/internal/fitness"
)

// State is one node of the engine's lifecycle state machine.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StatePaused
	StateFinalizing
	StateFinished
	StateAborted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateFinalizing:
		return "finalizing"
	case StateFinished:
		return "finished"
	case StateAborted:
		return "aborted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// guidedMutationScale is the free scale factor in the guided-mutation
// probability formula min(0.9, p_m·w_i·scale/max(w)); the formula leaves
// this value unspecified, chosen here so a maximally-weighted gene
// roughly triples its baseline mutation probability.
const guidedMutationScale = 3.0

// Engine drives one GA run to completion. A zero Engine is not
// usable; build one with NewEngine.
type Engine struct {
	space dva.ParameterSpace
	main  dva.MainParams
	fn    *fitness.Function
	cfg   *SharedConfig

	rng *rand.Rand

	events chan events.Event

	state          atomic.Int32
	pauseRequested atomic.Bool
	abortRequested atomic.Bool

	mu   sync.Mutex
	cond *sync.Cond

	pool *workerPool

	// priority holds the Sobol sensitivity analysis's per-parameter
	// weights once installed; nil means the unguided operators run.
	priority []float64

	controller Controller
	surrogate  *Surrogate
	seeder     Seeder

	startedAt   time.Time
	generations int
	evalCount   atomic.Int64
}

// NewEngine validates cfg and builds an Engine ready to Run over the
// given parameter space, main-system parameters, and fitness function.
func NewEngine(space dva.ParameterSpace, main dva.MainParams, fn *fitness.Function, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var seed1, seed2 uint64
	if cfg.Seed != 0 {
		seed1, seed2 = cfg.Seed, cfg.Seed^0x9E3779B97F4A7C15
	} else {
		seed1, seed2 = uint64(time.Now().UnixNano()), uint64(time.Now().UnixNano())^0xD1B54A32D192ED03
	}
	rng := rand.New(rand.NewPCG(seed1, seed2))

	e := &Engine{
		space:  space,
		main:   main,
		fn:     fn,
		cfg:    NewSharedConfig(cfg),
		rng:    rng,
		events: make(chan events.Event, 256),
	}
	e.cond = sync.NewCond(&e.mu)
	e.controller = NewController(cfg.AdaptiveController, cfg, rng)
	if cfg.UseSurrogate {
		e.surrogate = NewSurrogate(cfg.SurrogateK, 60, cfg.SurrogateMinObs)
	}
	e.seeder = NewSeeder(cfg.SeedingMethod, e.evalOne, nil)
	e.state.Store(int32(StateIdle))
	return e, nil
}

// Events returns the worker→host event stream. Closed when Run
// returns.
func (e *Engine) Events() <-chan events.Event { return e.events }

// State reports the engine's current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// SetPriorityWeights installs the Sobol sensitivity analysis's
// normalized per-parameter priority weights, activating the guided
// crossover/mutation variants. Call
// before Run, or while Paused — it is not safe to call concurrently with
// a running generation.
func (e *Engine) SetPriorityWeights(w []float64) { e.priority = w }

// Pause requests a transition to Paused at the next checkpoint.
// Idempotent.
func (e *Engine) Pause() { e.pauseRequested.Store(true) }

// Resume clears a pending pause and wakes a paused worker. Idempotent.
func (e *Engine) Resume() {
	e.pauseRequested.Store(false)
	e.mu.Lock()
	e.cond.Broadcast()
	e.mu.Unlock()
}

// Abort requests cancellation at the next checkpoint. Idempotent.
func (e *Engine) Abort() {
	e.abortRequested.Store(true)
	e.mu.Lock()
	e.cond.Broadcast()
	e.mu.Unlock()
}

func (e *Engine) setState(s State) { e.state.Store(int32(s)) }
func (e *Engine) emit(ev events.Event) { e.events <- ev }

// evalOne is the plain fitness contract used by the seeder's best-of-pool
// strategy, which has no need for surrogate screening.
func (e *Engine) evalOne(genes []float64) float64 {
	e.evalCount.Add(1)
	return e.fn.Evaluate(e.main, genes)
}

// Run drives the full lifecycle to a terminal state and closes Events().
// ctx cancellation is treated identically to Abort().
func (e *Engine) Run(ctx context.Context) {
	defer close(e.events)

	e.setState(StateInitializing)
	e.emit(events.Status("initializing"))

	cfg := e.cfg.Get()
	e.startedAt = time.Now()
	deadline := e.startedAt.Add(cfg.WatchdogDeadline())

	e.pool = newWorkerPool(cfg.PopulationSize * 2)
	defer e.pool.close()

	seeds := e.seeder.Seed(e.space, cfg.PopulationSize, e.rng)
	population := make([]dva.Individual, len(seeds))
	e.evaluateBatch(seeds, population, cfg)
	sort.Slice(population, func(i, j int) bool { return population[i].Compare(population[j]) < 0 })

	if allInvalid(population) {
		e.finalize(population, StateFailed)
		return
	}
	if term, reason := e.checkTerm(ctx, deadline); term {
		e.finalize(population, reason)
		return
	}

	e.setState(StateRunning)
	e.emit(events.Status("running"))

	stagnation := 0
	best := population[0]

	for gen := 1; gen <= cfg.MaxGenerations; gen++ {
		genStart := time.Now()
		e.generations = gen

		if e.awaitResumeOrAbort() {
			e.finalize(population, StateAborted)
			return
		}
		if term, reason := e.checkTerm(ctx, deadline); term {
			e.finalize(population, reason)
			return
		}

		cfg = e.cfg.Get()
		offspring := e.selectionAndVariation(population, cfg)

		evaluated := make([]dva.Individual, len(offspring))
		e.evaluateBatch(offspring, evaluated, cfg)

		if e.abortRequested.Load() {
			population = mergeElite(population, evaluated, cfg.PopulationSize)
			e.finalize(population, StateAborted)
			return
		}

		population = mergeElite(population, evaluated, cfg.PopulationSize)

		newBest := population[0]
		improved := newBest.Score < best.Score
		delta := newBest.Score - best.Score
		if improved {
			best = newBest
			stagnation = 0
		} else {
			stagnation++
		}

		diversity := diversityOf(population)

		if e.abortRequested.Load() {
			e.finalize(population, StateAborted)
			return
		}

		e.emit(events.Progress(uint8(minInt(100, gen*100/cfg.MaxGenerations))))
		e.emit(events.GenerationMetrics(events.GenerationRecord{
			Generation:     gen,
			MinFitness:     population[0].Score,
			MeanFitness:    meanScore(population),
			MaxFitness:     population[len(population)-1].Score,
			Diversity:      diversity,
			CrossoverProb:  cfg.CrossoverProb,
			MutationProb:   cfg.MutationProb,
			PopulationSize: cfg.PopulationSize,
			Elapsed:        time.Since(genStart),
		}))

		out := e.controller.Step(ControllerMetrics{
			Stagnation: stagnation,
			Diversity:  diversity,
			Improved:   improved,
			BestDelta:  delta,
		})
		cfg.CrossoverProb = out.CrossoverProb
		cfg.MutationProb = out.MutationProb
		cfg.PopulationSize = out.PopulationSize
		e.cfg.Update(cfg)

		if best.Score <= cfg.Tolerance {
			e.finalize(population, StateFinished)
			return
		}
	}

	e.finalize(population, StateFinished)
}

// awaitResumeOrAbort blocks on the condition variable while a pause is in
// effect, returning true only if an abort arrived while paused.
func (e *Engine) awaitResumeOrAbort() bool {
	if !e.pauseRequested.Load() {
		return false
	}
	e.mu.Lock()
	e.setState(StatePaused)
	e.mu.Unlock()
	e.emit(events.Status("paused"))

	e.mu.Lock()
	for e.pauseRequested.Load() && !e.abortRequested.Load() {
		e.cond.Wait()
	}
	aborted := e.abortRequested.Load()
	e.mu.Unlock()

	if aborted {
		return true
	}
	e.setState(StateRunning)
	e.emit(events.Status("running"))
	return false
}

// checkTerm reports whether the run should transition to Finalizing, and
// which terminal state that implies: ctx cancellation and the abort flag
// both map to Aborted; the watchdog deadline forces Finalizing but still
// reports a Finished run: the watchdog is a resource bound rather than a
// user cancellation, and watchdog-triggered finalization stays on the
// Finished path since the best
// individual is still fully re-evaluated and emitted).
func (e *Engine) checkTerm(ctx context.Context, deadline time.Time) (bool, State) {
	if e.abortRequested.Load() {
		return true, StateAborted
	}
	select {
	case <-ctx.Done():
		return true, StateAborted
	default:
	}
	if time.Now().After(deadline) {
		return true, StateFinished
	}
	return false, StateIdle
}

// selectionAndVariation implements steps 2-4 of the per-generation cycle:
// binary tournament selection, blend crossover, Gaussian mutation.
func (e *Engine) selectionAndVariation(population []dva.Individual, cfg Config) [][]float64 {
	n := len(population)
	offspring := make([][]float64, cfg.PopulationSize)
	for i := range offspring {
		offspring[i] = e.tournamentSelect(population, n).Clone().Genes
	}

	for i := 0; i+1 < len(offspring); i += 2 {
		if e.rng.Float64() < cfg.CrossoverProb {
			e.blendCrossover(offspring[i], offspring[i+1])
		}
	}

	for i := range offspring {
		e.mutate(offspring[i], cfg.MutationProb)
		e.space.Clamp(offspring[i])
	}

	return offspring
}

func (e *Engine) tournamentSelect(population []dva.Individual, n int) dva.Individual {
	a := population[e.rng.IntN(n)]
	b := population[e.rng.IntN(n)]
	if a.Compare(b) <= 0 {
		return a
	}
	return b
}

// blendCrossover applies BLX-α (α=0.5) to a, b in place. When priority
// weights are installed, per-gene mixing strength scales with w_i/max(w)
// (guided crossover).
func (e *Engine) blendCrossover(a, b []float64) {
	const alpha = 0.5
	maxW := maxOf(e.priority)
	for i := range a {
		if e.space.Bounds[i].Fixed {
			continue
		}
		strength := alpha
		if e.priority != nil && maxW > 0 {
			strength *= e.priority[i] / maxW
		}
		lo, hi := a[i], b[i]
		if lo > hi {
			lo, hi = hi, lo
		}
		span := (hi - lo) * strength
		a[i] = lo - span + e.rng.Float64()*(hi-lo+2*span)
		b[i] = lo - span + e.rng.Float64()*(hi-lo+2*span)
	}
}

// mutate perturbs genes in place: per-gene Gaussian noise scaled by
// 0.1·(hi−lo), clipped to bounds, applied with probability p_m; fixed
// genes are restored to their constants. When priority
// weights are installed, per-gene probability and magnitude scale with
// w_i (guided mutation).
func (e *Engine) mutate(genes []float64, pm float64) {
	maxW := maxOf(e.priority)
	for i, b := range e.space.Bounds {
		if b.Fixed {
			genes[i] = b.Value
			continue
		}
		prob := pm
		sigma := 0.1 * (b.Hi - b.Lo)
		if e.priority != nil && maxW > 0 {
			prob = math.Min(0.9, pm*e.priority[i]*guidedMutationScale/maxW)
			sigma *= e.priority[i] / maxW
		}
		if e.rng.Float64() < prob {
			genes[i] = b.Clamp(genes[i] + e.rng.NormFloat64()*sigma)
		}
	}
}

// evaluateBatch scores every candidate concurrently across the worker
// pool,
// writing results positionally into out so elitist selection can sort
// deterministically afterward regardless of completion order.
func (e *Engine) evaluateBatch(genesList [][]float64, out []dva.Individual, cfg Config) {
	for i, genes := range genesList {
		i, genes := i, genes
		e.pool.submit(func() {
			out[i] = dva.Individual{Genes: genes, Score: e.scoreOne(genes)}
		})
	}
	e.pool.wait()
}

func (e *Engine) scoreOne(genes []float64) float64 {
	if e.surrogate != nil && e.surrogate.Active() {
		predicted := e.surrogate.Predict(genes)
		if !e.surrogate.ShouldEvaluate(predicted) {
			return predicted
		}
	}
	score := e.fn.Evaluate(e.main, genes)
	e.evalCount.Add(1)
	if e.surrogate != nil {
		e.surrogate.Observe(genes, score)
	}
	return score
}

// mergeElite unions parents and offspring and keeps the best N by
// ascending fitness.
func mergeElite(parents, offspring []dva.Individual, n int) []dva.Individual {
	combined := make([]dva.Individual, 0, len(parents)+len(offspring))
	combined = append(combined, parents...)
	combined = append(combined, offspring...)
	sort.Slice(combined, func(i, j int) bool { return combined[i].Compare(combined[j]) < 0 })
	if len(combined) > n {
		combined = combined[:n]
	}
	return combined
}

// finalize re-evaluates the best individual via the cache-bypassing path
// (the canonical final-score path), emits the terminal Benchmark and
// Finished/Error events, and sets the terminal state.
func (e *Engine) finalize(population []dva.Individual, reason State) {
	e.setState(StateFinalizing)
	e.emit(events.Status("finalizing"))

	sort.Slice(population, func(i, j int) bool { return population[i].Compare(population[j]) < 0 })

	if reason == StateFailed || len(population) == 0 {
		e.setState(StateFailed)
		e.emit(events.Error("ga: no individual produced a valid fitness (unrecoverable evaluation failure)"))
		return
	}

	best := population[0]
	bd := e.fn.EvaluateWithBreakdown(e.main, best.Genes, false)

	final := events.GenerationRecord{
		Generation:     e.generations,
		MinFitness:     bd.Total,
		MeanFitness:    meanScore(population),
		MaxFitness:     population[len(population)-1].Score,
		PopulationSize: len(population),
		Elapsed:        time.Since(e.startedAt),
	}

	e.emit(events.Benchmark(events.BenchmarkRecord{
		TotalGenerations: e.generations,
		TotalEvaluations: int(e.evalCount.Load()),
		CacheHits:        int(e.fn.CacheHits()),
		Elapsed:          time.Since(e.startedAt),
	}))
	e.emit(events.Finished(best.Genes, bd.Total, final))
	e.setState(reason)
}

func allInvalid(population []dva.Individual) bool {
	for _, ind := range population {
		if dva.IsValidScore(ind.Score) {
			return false
		}
	}
	return true
}

func diversityOf(population []dva.Individual) float64 {
	if len(population) < 2 {
		return 0
	}
	sumDist := 0.0
	pairs := 0
	for i := 0; i < len(population); i++ {
		for j := i + 1; j < len(population); j++ {
			sumDist += floats.Distance(population[i].Genes, population[j].Genes, 2)
			pairs++
		}
	}
	return sumDist / float64(pairs)
}

func meanScore(population []dva.Individual) float64 {
	scores := make([]float64, len(population))
	for i, ind := range population {
		scores[i] = ind.Score
	}
	return stat.Mean(scores, nil)
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
