package strategy

import (
	"fmt"
	"math/rand"
)

// Planner sequences one request's attempts against a resolved Config. It is
// not safe for concurrent use by multiple goroutines - one Planner serves
// one request's strategy loop.
type Planner struct {
	cfg      Config
	order    []int // precomputed attempt order for single/fallback/conditional
	pos      int
	excluded map[int]bool // targets already tried, for loadbalance's draw-again
	rng      *rand.Rand
}

// NewPlanner resolves the first attempt order for cfg against the canonical
// request body (only consulted for conditional mode) and returns a ready
// Planner. rng may be nil, in which case a package-level source is used;
// pass a seeded *rand.Rand for deterministic tests.
func NewPlanner(cfg Config, body map[string]interface{}, rng *rand.Rand) (*Planner, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("strategy: no targets configured")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	p := &Planner{cfg: cfg, excluded: make(map[int]bool), rng: rng}

	switch cfg.Mode {
	case ModeSingle:
		p.order = []int{0}
	case ModeFallback:
		p.order = sequentialOrder(len(cfg.Targets))
	case ModeConditional:
		idx, err := FirstMatch(cfg.Conditions, cfg.DefaultIndex, body)
		if err != nil {
			return nil, err
		}
		if idx < 0 || idx >= len(cfg.Targets) {
			return nil, fmt.Errorf("strategy: conditional match resolved to out-of-range target %d", idx)
		}
		p.order = []int{idx}
	case ModeLoadBalance:
		// Drawn lazily per call to Next/First; order stays empty.
	default:
		return nil, fmt.Errorf("strategy: unknown mode %q", cfg.Mode)
	}

	return p, nil
}

func sequentialOrder(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

// First returns the target for the first attempt.
func (p *Planner) First() (*Target, error) {
	return p.next(0)
}

// Next returns the target for the next attempt given the HTTP status of the
// prior attempt (0 if the prior attempt never reached the network). Returns
// ok=false when the strategy has no further attempts to offer - either
// because the prior status doesn't warrant advancing, or because every
// target has been tried.
func (p *Planner) Next(lastStatus int) (target *Target, ok bool, err error) {
	if lastStatus != 0 && !StatusMatches(lastStatus, effectiveCodes(p.cfg.OnStatusCodes)) {
		return nil, false, nil
	}
	t, err := p.next(lastStatus)
	if err != nil {
		if err == errExhausted {
			return nil, false, nil
		}
		return nil, false, err
	}
	return t, true, nil
}

var errExhausted = fmt.Errorf("strategy: no more targets to attempt")

func (p *Planner) next(lastStatus int) (*Target, error) {
	if p.cfg.Mode == ModeLoadBalance {
		return p.drawWeighted()
	}

	if p.pos >= len(p.order) {
		return nil, errExhausted
	}
	idx := p.order[p.pos]
	p.pos++
	p.excluded[idx] = true
	return p.cfg.Targets[idx], nil
}

// drawWeighted performs a fair weighted draw over targets not yet tried and
// carrying positive weight, mirroring the teacher's round-robin strategy's
// "zero or negative weight excludes the provider" rule but replacing
// round-robin's deterministic counter with a weighted random sample, since
// loadbalance mode draws one target per request rather than cycling.
func (p *Planner) drawWeighted() (*Target, error) {
	type candidate struct {
		idx    int
		weight float64
	}

	var candidates []candidate
	var total float64
	for i, t := range p.cfg.Targets {
		if p.excluded[i] || t.Weight <= 0 {
			continue
		}
		candidates = append(candidates, candidate{idx: i, weight: t.Weight})
		total += t.Weight
	}

	if len(candidates) == 0 {
		return nil, errExhausted
	}

	r := p.rng.Float64() * total
	var cumulative float64
	chosen := candidates[len(candidates)-1].idx
	for _, c := range candidates {
		cumulative += c.weight
		if r < cumulative {
			chosen = c.idx
			break
		}
	}

	p.excluded[chosen] = true
	return p.cfg.Targets[chosen], nil
}
