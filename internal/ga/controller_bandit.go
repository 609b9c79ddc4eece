package ga

import (
	"math"
	"math/rand/v2"
)

// banditArm is one discretized (p_c, p_m, N) triplet tracked by UCB1.
type banditArm struct {
	pc, pm float64
	n      int
	pulls  int
	reward float64 // running mean reward
}

// banditController selects arms via UCB1, reward = negative change in
// best fitness per generation.
type banditController struct {
	cfg          Config
	rng          *rand.Rand
	arms         []banditArm
	totalPulls   int
	lastArm      int
	explorationC float64
}

func newBanditController(cfg Config, rng *rand.Rand) *banditController {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	b := &banditController{cfg: cfg, rng: rng, explorationC: math.Sqrt2}

	pcs := []float64{cfg.MinCrossoverProb, (cfg.MinCrossoverProb + cfg.MaxCrossoverProb) / 2, cfg.MaxCrossoverProb}
	pms := []float64{cfg.MinMutationProb, (cfg.MinMutationProb + cfg.MaxMutationProb) / 2, cfg.MaxMutationProb}
	for _, pc := range pcs {
		for _, pm := range pms {
			b.arms = append(b.arms, banditArm{pc: pc, pm: pm, n: cfg.PopulationSize})
		}
	}
	return b
}

func (b *banditController) Step(m ControllerMetrics) ControllerOutput {
	if b.totalPulls > 0 {
		reward := -m.BestDelta
		arm := &b.arms[b.lastArm]
		arm.pulls++
		arm.reward += (reward - arm.reward) / float64(arm.pulls)
	}

	chosen := b.selectArm()
	b.lastArm = chosen
	b.totalPulls++

	arm := b.arms[chosen]
	return ControllerOutput{CrossoverProb: arm.pc, MutationProb: arm.pm, PopulationSize: arm.n}
}

// selectArm implements UCB1: pull any never-tried arm first, then the arm
// maximizing mean-reward + explorationC*sqrt(ln(totalPulls)/pulls).
func (b *banditController) selectArm() int {
	for i, a := range b.arms {
		if a.pulls == 0 {
			return i
		}
	}
	best, bestScore := 0, math.Inf(-1)
	for i, a := range b.arms {
		score := a.reward + b.explorationC*math.Sqrt(math.Log(float64(b.totalPulls))/float64(a.pulls))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}
