package ga

import (
	"context"
	"testing"
	"time"

	"devana/internal/dva"
	"devana/internal/events"
	"devana/internal/fitness"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallSpace() dva.ParameterSpace {
	bounds := make([]dva.Bound, dva.DVAParamCount)
	for i := range bounds {
		bounds[i] = dva.Bound{Lo: -1, Hi: 1}
	}
	return dva.ParameterSpace{Bounds: bounds}
}

func nominalMain() dva.MainParams {
	return dva.MainParams{
		MU:      0.2,
		Landa:   [5]float64{0.1, 0.1, 0.1, 0.1, 0.1},
		Nu:      [5]float64{0.05, 0.05, 0.05, 0.05, 0.05},
		ALow:    1.0,
		AUpp:    0.5,
		F1:      1.0,
		F2:      0.5,
		OmegaDC: 1.0,
		ZetaDC:  0.05,
	}
}

func cheapFitnessFn(t *testing.T) *fitness.Function {
	t.Helper()
	var cfg fitness.Config
	cfg.OmegaStart = 0.5
	cfg.OmegaEnd = 20
	cfg.OmegaPoints = 32
	cfg.ActivationThreshold = 0.1
	cfg.ActivationPenalty = 0.0
	cfg.Alpha = 0.0
	for m := 0; m < 5; m++ {
		cfg.Targets[m] = map[string]float64{"area_under_curve": 1.0}
		cfg.Weights[m] = map[string]float64{"area_under_curve": 0.2}
	}
	fn, err := fitness.NewFunction(cfg)
	require.NoError(t, err)
	return fn
}

func tinyConfig() Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 8
	cfg.MaxGenerations = 5
	cfg.WatchdogSeconds = 30
	cfg.Tolerance = 1e-12 // practically unreachable, forces the loop to run to MaxGenerations
	return cfg
}

func drain(events <-chan events.Event) []events.Event {
	var out []events.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestEngine_RunsToFinishedAndEmitsFinishedLast(t *testing.T) {
	fn := cheapFitnessFn(t)
	eng, err := NewEngine(smallSpace(), nominalMain(), fn, tinyConfig())
	require.NoError(t, err)

	go eng.Run(context.Background())
	recorded := drain(eng.Events())

	require.NotEmpty(t, recorded)
	last := recorded[len(recorded)-1]
	assert.Equal(t, events.KindFinished, last.Kind)
	assert.Equal(t, StateFinished, eng.State())
}

func TestEngine_GenerationMetricsStrictlyIncreasing(t *testing.T) {
	fn := cheapFitnessFn(t)
	eng, err := NewEngine(smallSpace(), nominalMain(), fn, tinyConfig())
	require.NoError(t, err)

	go eng.Run(context.Background())
	recorded := drain(eng.Events())

	last := -1
	for _, ev := range recorded {
		if ev.Kind != events.KindGenerationMetrics {
			continue
		}
		assert.Greater(t, ev.Generation.Generation, last)
		last = ev.Generation.Generation
	}
}

func TestEngine_BoundednessHeldThroughoutRun(t *testing.T) {
	fn := cheapFitnessFn(t)
	space := smallSpace()
	// Fix a couple of genes to exercise the fixed-gene restoration path.
	space.Bounds[0] = dva.Bound{Fixed: true, Value: 0.25}
	space.Bounds[1] = dva.Bound{Fixed: true, Value: -0.25}

	eng, err := NewEngine(space, nominalMain(), fn, tinyConfig())
	require.NoError(t, err)

	go eng.Run(context.Background())
	recorded := drain(eng.Events())

	for _, ev := range recorded {
		if ev.Kind != events.KindFinished {
			continue
		}
		assert.True(t, space.Valid(ev.BestGenes), "final best genes must respect bounds and fixed constraints")
	}
}

func TestEngine_AbortYieldsFinishedWithinOneGeneration(t *testing.T) {
	fn := cheapFitnessFn(t)
	cfg := tinyConfig()
	cfg.MaxGenerations = 2000

	eng, err := NewEngine(smallSpace(), nominalMain(), fn, cfg)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		eng.Run(context.Background())
		close(done)
	}()

	drained := make(chan []events.Event, 1)
	go func() { drained <- drain(eng.Events()) }()

	time.Sleep(5 * time.Millisecond)
	eng.Abort()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not terminate promptly after Abort")
	}

	recorded := <-drained
	require.NotEmpty(t, recorded)
	assert.Equal(t, events.KindFinished, recorded[len(recorded)-1].Kind)
	assert.Equal(t, StateAborted, eng.State())
}

func TestEngine_ContextCancellationAborts(t *testing.T) {
	fn := cheapFitnessFn(t)
	cfg := tinyConfig()
	cfg.MaxGenerations = 2000

	eng, err := NewEngine(smallSpace(), nominalMain(), fn, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx)
		close(done)
	}()
	go drain(eng.Events())

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not terminate promptly after context cancellation")
	}
	assert.Equal(t, StateAborted, eng.State())
}

func TestEngine_PauseResumeReachesFinished(t *testing.T) {
	fn := cheapFitnessFn(t)
	eng, err := NewEngine(smallSpace(), nominalMain(), fn, tinyConfig())
	require.NoError(t, err)

	done := make(chan struct{})
	var recorded []events.Event
	go func() {
		recorded = drain(eng.Events())
		close(done)
	}()

	runDone := make(chan struct{})
	go func() {
		eng.Run(context.Background())
		close(runDone)
	}()

	eng.Pause()
	time.Sleep(5 * time.Millisecond)
	eng.Resume()

	select {
	case <-runDone:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not finish after resume")
	}
	<-done

	require.NotEmpty(t, recorded)
	assert.Equal(t, events.KindFinished, recorded[len(recorded)-1].Kind)
}

func TestEngine_BestNeverRegressesAcrossGenerations(t *testing.T) {
	fn := cheapFitnessFn(t)
	eng, err := NewEngine(smallSpace(), nominalMain(), fn, tinyConfig())
	require.NoError(t, err)

	go eng.Run(context.Background())
	recorded := drain(eng.Events())

	best := -1.0
	first := true
	for _, ev := range recorded {
		if ev.Kind != events.KindGenerationMetrics {
			continue
		}
		if first {
			best = ev.Generation.MinFitness
			first = false
			continue
		}
		assert.LessOrEqual(t, ev.Generation.MinFitness, best+1e-9)
		if ev.Generation.MinFitness < best {
			best = ev.Generation.MinFitness
		}
	}
}
