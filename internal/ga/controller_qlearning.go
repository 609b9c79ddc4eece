package ga

import (
	"math/rand/v2"
)

// qState is the discretized (stagnation, diversity) state the tabular
// Q-learning policy conditions on.
type qState struct {
	stagnationBucket int
	diversityBucket  int
}

// qAction is a discrete rate delta applied to (p_c, p_m).
type qAction struct {
	dpc, dpm float64
}

// qLearningController is a standard tabular Q-learning agent with
// epsilon-greedy exploration and decaying epsilon.
type qLearningController struct {
	cfg Config
	rng *rand.Rand

	q       map[qState]map[int]float64
	actions []qAction

	pc, pm  float64
	epsilon float64

	lastState  qState
	lastAction int
	havePrev   bool

	alpha, gamma float64
}

func newQLearningController(cfg Config, rng *rand.Rand) *qLearningController {
	if rng == nil {
		rng = rand.New(rand.NewPCG(3, 4))
	}
	return &qLearningController{
		cfg:     cfg,
		rng:     rng,
		q:       make(map[qState]map[int]float64),
		actions: []qAction{{-0.05, -0.05}, {-0.05, 0.05}, {0, 0}, {0.05, -0.05}, {0.05, 0.05}},
		pc:      cfg.CrossoverProb,
		pm:      cfg.MutationProb,
		epsilon: 0.3,
		alpha:   0.1,
		gamma:   0.9,
	}
}

func (ql *qLearningController) discretize(m ControllerMetrics) qState {
	sBucket := m.Stagnation / 10
	if sBucket > 9 {
		sBucket = 9
	}
	dBucket := int(m.Diversity * 10)
	if dBucket > 9 {
		dBucket = 9
	}
	if dBucket < 0 {
		dBucket = 0
	}
	return qState{stagnationBucket: sBucket, diversityBucket: dBucket}
}

func (ql *qLearningController) Step(m ControllerMetrics) ControllerOutput {
	state := ql.discretize(m)

	if ql.havePrev {
		reward := -m.BestDelta
		ql.update(ql.lastState, ql.lastAction, reward, state)
	}

	action := ql.chooseAction(state)
	ql.lastState, ql.lastAction, ql.havePrev = state, action, true

	delta := ql.actions[action]
	ql.pc = clamp(ql.pc+delta.dpc, ql.cfg.MinCrossoverProb, ql.cfg.MaxCrossoverProb)
	ql.pm = clamp(ql.pm+delta.dpm, ql.cfg.MinMutationProb, ql.cfg.MaxMutationProb)

	ql.epsilon *= 0.995
	if ql.epsilon < 0.01 {
		ql.epsilon = 0.01
	}

	return ControllerOutput{CrossoverProb: ql.pc, MutationProb: ql.pm, PopulationSize: ql.cfg.PopulationSize}
}

func (ql *qLearningController) chooseAction(state qState) int {
	if ql.rng.Float64() < ql.epsilon {
		return ql.rng.IntN(len(ql.actions))
	}
	best, bestVal := 0, negInf
	for i := range ql.actions {
		if v, ok := ql.q[state][i]; ok && v > bestVal {
			bestVal = v
			best = i
		}
	}
	if bestVal == negInf {
		return ql.rng.IntN(len(ql.actions))
	}
	return best
}

const negInf = -1e300

func (ql *qLearningController) update(s qState, a int, reward float64, sNext qState) {
	if ql.q[s] == nil {
		ql.q[s] = make(map[int]float64)
	}
	maxNext := 0.0
	if row, ok := ql.q[sNext]; ok {
		first := true
		for _, v := range row {
			if first || v > maxNext {
				maxNext = v
				first = false
			}
		}
	}
	old := ql.q[s][a]
	ql.q[s][a] = old + ql.alpha*(reward+ql.gamma*maxNext-old)
}
