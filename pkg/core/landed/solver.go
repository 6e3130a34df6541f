package landed

import (
	"fmt"
	"math"
)

// SolveStatus classifies the outcome of a reverse-FOB solve. Infeasible
// targets are reported as a status, never conflated with a numeric zero.
type SolveStatus string

const (
	// SolveConverged: a price was found whose unit cost is within tolerance
	// of the target.
	SolveConverged SolveStatus = "converged"
	// SolveAtFloor: the target is at or below the zero-price floor (taxes
	// and shared costs alone already meet or exceed it); price 0 is the
	// best possible answer.
	SolveAtFloor SolveStatus = "at_floor"
	// SolveUnbounded: the expansion cap was hit without reaching the
	// target; the result carries the best attempt seen.
	SolveUnbounded SolveStatus = "unbounded"
)

// SolveOptions bounds the numerical search. The iteration caps are safety
// limits on worst-case latency, not tuning knobs.
type SolveOptions struct {
	Tolerance     float64 // BRL; default 0.01
	MaxExpansions int     // default 25
	MaxBisections int     // default 40
}

func (o SolveOptions) withDefaults() SolveOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = 0.01
	}
	if o.MaxExpansions <= 0 {
		o.MaxExpansions = 25
	}
	if o.MaxBisections <= 0 {
		o.MaxBisections = 40
	}
	return o
}

// SolveResult is the reverse-FOB outcome.
type SolveResult struct {
	Status           SolveStatus `json:"status"`
	PriceUSD         float64     `json:"price_usd"`
	AchievedUnitCost float64     `json:"achieved_unit_cost_brl"`
	Evaluations      int         `json:"evaluations"`
}

// SolveTargetUnitPrice finds the FOB unit price for one line item that makes
// that item's delivered unit cost hit targetUnitCost, using the engine as a
// black-box oracle. Landed unit cost is non-decreasing in unit price for a
// fixed config, so a floor probe, exponential bracket expansion and plain
// bisection are sufficient.
//
// The input slice is never mutated; every probe runs on a copy with exactly
// one field substituted.
func SolveTargetUnitPrice(items []LineItem, cfg ShipmentConfig, itemIndex int, targetUnitCost float64, opts SolveOptions) (SolveResult, error) {
	if itemIndex < 0 || itemIndex >= len(items) {
		return SolveResult{}, fmt.Errorf("landed: item index %d out of range (%d items)", itemIndex, len(items))
	}
	if items[itemIndex].Quantity <= 0 {
		return SolveResult{}, fmt.Errorf("landed: item %d has zero quantity; unit cost is undefined", itemIndex)
	}
	opts = opts.withDefaults()

	evals := 0
	probe := func(price float64) (float64, error) {
		evals++
		trial := make([]LineItem, len(items))
		copy(trial, items)
		trial[itemIndex].FOBUnitUSD = price
		results, _, err := Compute(trial, cfg)
		if err != nil {
			return 0, err
		}
		return results[itemIndex].UnitCostBRL, nil
	}

	// 1. Floor: even at price 0 the item still absorbs its share of taxes
	// and shipment costs.
	floorCost, err := probe(0)
	if err != nil {
		return SolveResult{}, err
	}
	if targetUnitCost <= floorCost+opts.Tolerance {
		return SolveResult{
			Status:           SolveAtFloor,
			PriceUSD:         0,
			AchievedUnitCost: floorCost,
			Evaluations:      evals,
		}, nil
	}

	// 2. Expand an upper bound until we straddle the target.
	upper := items[itemIndex].FOBUnitUSD
	if upper <= 0 {
		upper = 1.0
	}
	upperCost, err := probe(upper)
	if err != nil {
		return SolveResult{}, err
	}
	expansions := 0
	for upperCost < targetUnitCost && expansions < opts.MaxExpansions {
		upper *= 2
		upperCost, err = probe(upper)
		if err != nil {
			return SolveResult{}, err
		}
		expansions++
	}
	if upperCost < targetUnitCost {
		return SolveResult{
			Status:           SolveUnbounded,
			PriceUSD:         upper,
			AchievedUnitCost: upperCost,
			Evaluations:      evals,
		}, nil
	}

	// 3. Bisect [0, upper], tracking the closest sample seen since the
	// bracket can converge from either side.
	lo, hi := 0.0, upper
	bestPrice, bestCost := upper, upperCost
	for i := 0; i < opts.MaxBisections; i++ {
		mid := (lo + hi) / 2
		cost, err := probe(mid)
		if err != nil {
			return SolveResult{}, err
		}
		if math.Abs(cost-targetUnitCost) < math.Abs(bestCost-targetUnitCost) {
			bestPrice, bestCost = mid, cost
		}
		if math.Abs(cost-targetUnitCost) <= opts.Tolerance {
			break
		}
		if cost < targetUnitCost {
			lo = mid
		} else {
			hi = mid
		}
	}

	return SolveResult{
		Status:           SolveConverged,
		PriceUSD:         bestPrice,
		AchievedUnitCost: bestCost,
		Evaluations:      evals,
	}, nil
}
