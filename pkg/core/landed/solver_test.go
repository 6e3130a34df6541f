package landed

import (
	"math"
	"testing"
)

func solverItems() []LineItem {
	return []LineItem{
		{NCM: "8471.30.12", Quantity: 1000, FOBUnitUSD: 2.50, IIRate: 0.35, IPIRate: 0.065, PISRate: 0.021, COFINSRate: 0.0965},
		{NCM: "8517.62.59", Quantity: 50, FOBUnitUSD: 120, IIRate: 0.14, IPIRate: 0.05, PISRate: 0.021, COFINSRate: 0.0965},
	}
}

func solverConfig() ShipmentConfig {
	cfg := baseConfig()
	cfg.FreightInternationalUSD = 900
	cfg.AFRMMPct = 0.08
	cfg.SiscomexBRL = 154.23
	cfg.TruckingBRL = 1200
	return cfg
}

func TestSolveRoundTrip(t *testing.T) {
	items := solverItems()
	cfg := solverConfig()

	// Pick a target strictly between the zero-price floor and the cost at
	// a much higher price.
	zeroed := make([]LineItem, len(items))
	copy(zeroed, items)
	zeroed[0].FOBUnitUSD = 0
	low, _, err := Compute(zeroed, cfg)
	if err != nil {
		t.Fatalf("floor probe: %v", err)
	}
	high := make([]LineItem, len(items))
	copy(high, items)
	high[0].FOBUnitUSD = 500
	hi, _, err := Compute(high, cfg)
	if err != nil {
		t.Fatalf("high probe: %v", err)
	}
	target := (low[0].UnitCostBRL + hi[0].UnitCostBRL) / 2

	res, err := SolveTargetUnitPrice(items, cfg, 0, target, SolveOptions{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != SolveConverged {
		t.Fatalf("status = %s, want converged", res.Status)
	}

	// Re-run the engine with the found price; the unit cost must land
	// within tolerance of the target.
	verify := make([]LineItem, len(items))
	copy(verify, items)
	verify[0].FOBUnitUSD = res.PriceUSD
	results, _, err := Compute(verify, cfg)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if math.Abs(results[0].UnitCostBRL-target) > 0.01 {
		t.Fatalf("round trip unit cost %v, target %v", results[0].UnitCostBRL, target)
	}
	// The untouched item must be unaffected by the probing.
	nearlyEqual(t, "items[1].FOBUnitUSD", items[1].FOBUnitUSD, 120)
}

func TestSolveAtFloor(t *testing.T) {
	items := solverItems()
	cfg := solverConfig()

	// Even at price zero the item carries allocated freight and fees, so a
	// tiny target is unreachable from below.
	res, err := SolveTargetUnitPrice(items, cfg, 0, 0.0001, SolveOptions{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != SolveAtFloor {
		t.Fatalf("status = %s, want at_floor", res.Status)
	}
	if res.PriceUSD != 0 {
		t.Fatalf("price = %v, want 0", res.PriceUSD)
	}
	if res.AchievedUnitCost <= 0 {
		t.Fatalf("floor cost = %v, want > 0", res.AchievedUnitCost)
	}
}

func TestSolveUnbounded(t *testing.T) {
	items := solverItems()
	cfg := solverConfig()

	// 25 doublings from $2.50 tops out around $40M per unit; a target in
	// the trillions of BRL per unit is unreachable within the cap.
	res, err := SolveTargetUnitPrice(items, cfg, 0, 1e13, SolveOptions{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if res.Status != SolveUnbounded {
		t.Fatalf("status = %s, want unbounded", res.Status)
	}
	if res.AchievedUnitCost >= 1e13 {
		t.Fatalf("unbounded result claims target reached: %v", res.AchievedUnitCost)
	}
}

func TestSolveInputErrors(t *testing.T) {
	items := solverItems()
	cfg := solverConfig()

	if _, err := SolveTargetUnitPrice(items, cfg, 5, 100, SolveOptions{}); err == nil {
		t.Fatal("out-of-range index accepted")
	}
	if _, err := SolveTargetUnitPrice(items, cfg, -1, 100, SolveOptions{}); err == nil {
		t.Fatal("negative index accepted")
	}

	zeroQty := solverItems()
	zeroQty[1].Quantity = 0
	if _, err := SolveTargetUnitPrice(zeroQty, cfg, 1, 100, SolveOptions{}); err == nil {
		t.Fatal("zero-quantity item accepted")
	}
}

func TestSolveEvaluationCapBoundsWork(t *testing.T) {
	items := solverItems()
	cfg := solverConfig()

	res, err := SolveTargetUnitPrice(items, cfg, 0, 50, SolveOptions{})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	// floor + initial upper + expansions(<=25) + bisections(<=40)
	if res.Evaluations > 2+25+40 {
		t.Fatalf("evaluations = %d, exceeds hard cap", res.Evaluations)
	}
}
