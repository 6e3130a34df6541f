package landed

import (
	"math"
	"testing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	tol := 1e-6 * math.Max(1, math.Abs(want))
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func baseConfig() ShipmentConfig {
	return ShipmentConfig{
		StateDestination: "SP",
		Mode:             ModeFCL20,
		Incoterm:         IncotermFOB,
		FXRateUSDBRL:     5.50,
		InsurancePct:     0.001,
		Regime:           RegimeReal,
		Purpose:          PurposeResale,
		ICMSRate:         0.17,
		Allocation:       AllocateByFOB,
		ContributionBase: ContributionBaseCIF,
	}
}

func scenarioItem() LineItem {
	return LineItem{
		NCM:        "8471.30.12",
		Quantity:   1000,
		FOBUnitUSD: 2.50,
		IIRate:     0.35,
		IPIRate:    0.065,
		PISRate:    0.021,
		COFINSRate: 0.0965,
	}
}

// Single item, real-profit regime, resale purpose. Expected values are
// computed by hand from the published calculation rules.
func TestComputeScenarioRealResale(t *testing.T) {
	results, sum, err := Compute([]LineItem{scenarioItem()}, baseConfig())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	r := results[0]

	fobBRL := 2500.0 * 5.50 // 13750
	insurance := 0.001 * fobBRL
	cif := fobBRL + insurance // 13763.75
	ii := cif * 0.35          // 4817.3125
	ipi := (cif + ii) * 0.065
	pis := cif * 0.021
	cofins := cif * 0.0965
	n := cif + ii + ipi + pis + cofins
	icmsBase := n / (1 - 0.17)
	icms := icmsBase - n

	nearlyEqual(t, "FOBTotalUSD", r.FOBTotalUSD, 2500)
	nearlyEqual(t, "FOBTotalBRL", r.FOBTotalBRL, fobBRL)
	nearlyEqual(t, "InsuranceBRL", r.InsuranceBRL, insurance)
	nearlyEqual(t, "CIFBRL", r.CIFBRL, cif)
	nearlyEqual(t, "IIBRL", r.IIBRL, ii)
	nearlyEqual(t, "IPIBRL", r.IPIBRL, ipi)
	nearlyEqual(t, "PISBRL", r.PISBRL, pis)
	nearlyEqual(t, "COFINSBRL", r.COFINSBRL, cofins)
	nearlyEqual(t, "ICMSBRL", r.ICMSBRL, icms)

	// Real-profit + resale: everything but II is credited back.
	nearlyEqual(t, "TaxCreditBRL", r.TaxCreditBRL, ipi+pis+cofins+icms)
	nearlyEqual(t, "NetTaxBRL", r.NetTaxBRL, ii)
	nearlyEqual(t, "CustomsClearedBRL", r.CustomsClearedBRL, cif+ii)
	nearlyEqual(t, "DeliveredCostBRL", r.DeliveredCostBRL, cif+ii)
	nearlyEqual(t, "UnitCostBRL", r.UnitCostBRL, (cif+ii)/1000)

	nearlyEqual(t, "Summary.DeliveredTotalBRL", sum.DeliveredTotalBRL, cif+ii)
	nearlyEqual(t, "Summary.FOBToBrazilMultiplier", sum.FOBToBrazilMultiplier, (cif+ii)/2500)
	nearlyEqual(t, "Summary.FOBToBrazilFactor", sum.FOBToBrazilFactor, (cif+ii)/fobBRL)
	nearlyEqual(t, "Summary.AvgUnitCostBRL", sum.AvgUnitCostBRL, (cif+ii)/1000)
}

// Same shipment under Simples: gross tax sticks, so the landed cost must be
// strictly higher than under Real.
func TestComputeSimplesStrictlyHigher(t *testing.T) {
	real, _, err := Compute([]LineItem{scenarioItem()}, baseConfig())
	if err != nil {
		t.Fatalf("real: %v", err)
	}

	cfg := baseConfig()
	cfg.Regime = RegimeSimples
	simples, _, err := Compute([]LineItem{scenarioItem()}, cfg)
	if err != nil {
		t.Fatalf("simples: %v", err)
	}

	if simples[0].TaxCreditBRL != 0 {
		t.Fatalf("simples credit = %v, want 0", simples[0].TaxCreditBRL)
	}
	nearlyEqual(t, "simples NetTaxBRL", simples[0].NetTaxBRL, simples[0].TaxPaidBRL)
	if simples[0].DeliveredCostBRL <= real[0].DeliveredCostBRL {
		t.Fatalf("simples delivered %v not higher than real %v",
			simples[0].DeliveredCostBRL, real[0].DeliveredCostBRL)
	}
}

func TestCreditEligibilityMatrix(t *testing.T) {
	cases := []struct {
		regime  TaxRegime
		purpose Purpose
		// which taxes should be credited
		ipi, pis, cofins, icms bool
	}{
		{RegimeSimples, PurposeResale, false, false, false, false},
		{RegimeSimples, PurposeOwnUse, false, false, false, false},
		{RegimePresumido, PurposeResale, true, false, false, true},
		{RegimePresumido, PurposeOwnUse, false, false, false, false},
		{RegimeReal, PurposeResale, true, true, true, true},
		{RegimeReal, PurposeOwnUse, false, false, false, false},
	}

	for _, tc := range cases {
		cfg := baseConfig()
		cfg.Regime = tc.regime
		cfg.Purpose = tc.purpose
		results, _, err := Compute([]LineItem{scenarioItem()}, cfg)
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.regime, tc.purpose, err)
		}
		r := results[0]

		check := func(name string, credit, tax float64, want bool) {
			t.Helper()
			if want && math.Abs(credit-tax) > 1e-9 {
				t.Errorf("%s/%s: %s credit = %v, want %v", tc.regime, tc.purpose, name, credit, tax)
			}
			if !want && credit != 0 {
				t.Errorf("%s/%s: %s credit = %v, want 0", tc.regime, tc.purpose, name, credit)
			}
		}
		check("IPI", r.IPICreditBRL, r.IPIBRL, tc.ipi)
		check("PIS", r.PISCreditBRL, r.PISBRL, tc.pis)
		check("COFINS", r.COFINSCreditBRL, r.COFINSBRL, tc.cofins)
		check("ICMS", r.ICMSCreditBRL, r.ICMSBRL, tc.icms)
	}
}

// For any item mix, each allocated column must sum back to the shipment
// total for that cost.
func TestAllocationConservation(t *testing.T) {
	items := []LineItem{
		{NCM: "8471.30.12", Quantity: 100, FOBUnitUSD: 12.40, GrossWeight: 320, IIRate: 0.16, IPIRate: 0.10, PISRate: 0.021, COFINSRate: 0.0965},
		{NCM: "8517.62.59", Quantity: 40, FOBUnitUSD: 95.00, GrossWeight: 90, IIRate: 0.14, IPIRate: 0.05, PISRate: 0.021, COFINSRate: 0.0965},
		{NCM: "3926.90.90", Quantity: 5000, FOBUnitUSD: 0.35, GrossWeight: 780, IIRate: 0.18, IPIRate: 0.0325, PISRate: 0.021, COFINSRate: 0.0965},
	}
	cfg := baseConfig()
	cfg.FreightInternationalUSD = 1800
	cfg.OriginChargesUSD = 250
	cfg.THCOriginUSD = 180
	cfg.AFRMMPct = 0.08
	cfg.SiscomexBRL = 154.23
	cfg.LocalPortCostsBRL = 2200
	cfg.TruckingBRL = 3500
	cfg.OtherLocalCostsBRL = 430

	for _, method := range []AllocationMethod{AllocateByFOB, AllocateByWeight, AllocateByCustomsValue} {
		cfg.Allocation = method
		results, sum, err := Compute(items, cfg)
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}

		var freight, insurance, origin, thc, afrmm, siscomex, local, other, truck, share float64
		for _, r := range results {
			freight += r.FreightBRL
			insurance += r.InsuranceBRL
			origin += r.OriginBRL
			thc += r.THCBRL
			afrmm += r.AFRMMBRL
			siscomex += r.SiscomexBRL
			local += r.LocalPortBRL
			other += r.OtherLocalBRL
			truck += r.TruckBRL
			share += r.Share
		}

		fx := cfg.FXRateUSDBRL
		nearlyEqual(t, string(method)+" share sum", share, 1)
		nearlyEqual(t, string(method)+" freight", freight, 1800*fx)
		nearlyEqual(t, string(method)+" insurance", insurance, 0.001*sum.FOBTotalBRL)
		nearlyEqual(t, string(method)+" origin", origin, 250*fx)
		nearlyEqual(t, string(method)+" thc", thc, 180*fx)
		nearlyEqual(t, string(method)+" afrmm", afrmm, 0.08*1800*fx)
		nearlyEqual(t, string(method)+" siscomex", siscomex, 154.23)
		nearlyEqual(t, string(method)+" local", local, 2200)
		nearlyEqual(t, string(method)+" other", other, 430)
		nearlyEqual(t, string(method)+" truck", truck, 3500)
		nearlyEqual(t, string(method)+" freight total", sum.FreightTotalBRL, 1800*fx)
		nearlyEqual(t, string(method)+" truck total", sum.TruckTotalBRL, 3500)
	}
}

func TestEqualSplitOnZeroBase(t *testing.T) {
	// Zero-priced samples: FOB base is zero, so shared costs split equally.
	items := []LineItem{
		{NCM: "9503.00.99", Quantity: 10, FOBUnitUSD: 0},
		{NCM: "9503.00.98", Quantity: 90, FOBUnitUSD: 0},
	}
	cfg := baseConfig()
	cfg.InsurancePct = 0
	cfg.FreightInternationalUSD = 100

	results, _, err := Compute(items, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	nearlyEqual(t, "share[0]", results[0].Share, 0.5)
	nearlyEqual(t, "share[1]", results[1].Share, 0.5)
	nearlyEqual(t, "freight[0]", results[0].FreightBRL, 100*5.50/2)
}

func TestZeroQuantityUnitCost(t *testing.T) {
	items := []LineItem{
		scenarioItem(),
		{NCM: "4011.10.00", Quantity: 0, FOBUnitUSD: 80, IIRate: 0.16},
	}
	results, _, err := Compute(items, baseConfig())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	r := results[1]
	if r.UnitCostBRL != 0 {
		t.Fatalf("unit cost for zero-quantity item = %v, want 0", r.UnitCostBRL)
	}
	if math.IsNaN(r.UnitCostBRL) || math.IsInf(r.UnitCostBRL, 0) {
		t.Fatalf("unit cost is not finite: %v", r.UnitCostBRL)
	}
}

// ICMS por dentro: for a known numerator N and rate, the tax must equal
// N/(1-rate) - N exactly.
func TestGrossUpMatchesClosedForm(t *testing.T) {
	cfg := baseConfig()
	cfg.InsurancePct = 0
	cfg.ICMSRate = 0.18
	item := LineItem{NCM: "8471.30.12", Quantity: 1, FOBUnitUSD: 100}

	results, _, err := Compute([]LineItem{item}, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	r := results[0]

	n := 100 * 5.50 // no freight/insurance/federal taxes: numerator is just CIF
	want := n/(1-0.18) - n
	nearlyEqual(t, "ICMSBRL", r.ICMSBRL, want)
	nearlyEqual(t, "ICMSBaseBRL", r.ICMSBaseBRL, n/(1-0.18))
}

func TestICMSRateAtOrAboveOneIsZero(t *testing.T) {
	cfg := baseConfig()
	cfg.ICMSRate = 1.0
	results, _, err := Compute([]LineItem{scenarioItem()}, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if results[0].ICMSBRL != 0 {
		t.Fatalf("ICMS at rate 1.0 = %v, want 0", results[0].ICMSBRL)
	}
}

func TestICMSPerItemOverride(t *testing.T) {
	cfg := baseConfig()
	cfg.ICMSRate = 0.17
	withDefault := scenarioItem()
	withOverride := scenarioItem()
	withOverride.ICMSRate = 0.04 // ex-tarifário style reduction

	results, _, err := Compute([]LineItem{withDefault, withOverride}, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if results[1].ICMSBRL >= results[0].ICMSBRL {
		t.Fatalf("override ICMS %v not lower than default %v", results[1].ICMSBRL, results[0].ICMSBRL)
	}
}

func TestMonotonicityInUnitPrice(t *testing.T) {
	cfg := baseConfig()
	cfg.FreightInternationalUSD = 500
	cfg.SiscomexBRL = 154.23
	prev := -1.0
	for _, price := range []float64{0, 0.5, 1, 2.5, 10, 100, 1000} {
		item := scenarioItem()
		item.FOBUnitUSD = price
		results, _, err := Compute([]LineItem{item}, cfg)
		if err != nil {
			t.Fatalf("price %v: %v", price, err)
		}
		if results[0].UnitCostBRL < prev {
			t.Fatalf("unit cost decreased at price %v: %v < %v", price, results[0].UnitCostBRL, prev)
		}
		prev = results[0].UnitCostBRL
	}
}

func TestContributionBasePolicy(t *testing.T) {
	cfgCIF := baseConfig()
	cfgTaxes := baseConfig()
	cfgTaxes.ContributionBase = ContributionBaseCIFTaxes

	onCIF, _, err := Compute([]LineItem{scenarioItem()}, cfgCIF)
	if err != nil {
		t.Fatalf("cif: %v", err)
	}
	onTaxes, _, err := Compute([]LineItem{scenarioItem()}, cfgTaxes)
	if err != nil {
		t.Fatalf("cif_plus_taxes: %v", err)
	}

	r := onCIF[0]
	nearlyEqual(t, "PIS on CIF", r.PISBRL, r.CIFBRL*0.021)
	rt := onTaxes[0]
	nearlyEqual(t, "PIS on CIF+II+IPI", rt.PISBRL, (rt.CIFBRL+rt.IIBRL+rt.IPIBRL)*0.021)
	if rt.PISBRL <= r.PISBRL {
		t.Fatalf("tax-inclusive base PIS %v not higher than CIF base %v", rt.PISBRL, r.PISBRL)
	}
}

func TestAFRMMWaivedForAir(t *testing.T) {
	cfg := baseConfig()
	cfg.FreightInternationalUSD = 1000
	cfg.AFRMMPct = 0.08

	sea, _, err := Compute([]LineItem{scenarioItem()}, cfg)
	if err != nil {
		t.Fatalf("sea: %v", err)
	}
	nearlyEqual(t, "sea AFRMM", sea[0].AFRMMBRL, 0.08*1000*5.50)

	cfg.Mode = ModeAir
	air, _, err := Compute([]LineItem{scenarioItem()}, cfg)
	if err != nil {
		t.Fatalf("air: %v", err)
	}
	if air[0].AFRMMBRL != 0 {
		t.Fatalf("air AFRMM = %v, want 0", air[0].AFRMMBRL)
	}
}

func TestInsuranceAbsoluteWinsOverAdValorem(t *testing.T) {
	cfg := baseConfig()
	cfg.InsuranceUSD = 40
	cfg.InsurancePct = 0.001

	results, _, err := Compute([]LineItem{scenarioItem()}, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	nearlyEqual(t, "InsuranceBRL", results[0].InsuranceBRL, 40*5.50)
}

func TestNaNCoercedToZero(t *testing.T) {
	item := scenarioItem()
	item.IPIRate = math.NaN()
	item.GrossWeight = math.NaN()

	results, _, err := Compute([]LineItem{item}, baseConfig())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if results[0].IPIBRL != 0 {
		t.Fatalf("IPI from NaN rate = %v, want 0", results[0].IPIBRL)
	}
}

func TestCallerContractViolations(t *testing.T) {
	if _, _, err := Compute(nil, baseConfig()); err == nil {
		t.Fatal("empty item set accepted")
	}

	neg := scenarioItem()
	neg.Quantity = -1
	if _, _, err := Compute([]LineItem{neg}, baseConfig()); err == nil {
		t.Fatal("negative quantity accepted")
	}

	neg = scenarioItem()
	neg.FOBUnitUSD = -0.01
	if _, _, err := Compute([]LineItem{neg}, baseConfig()); err == nil {
		t.Fatal("negative unit price accepted")
	}

	cfg := baseConfig()
	cfg.FXRateUSDBRL = -5.5
	if _, _, err := Compute([]LineItem{scenarioItem()}, cfg); err == nil {
		t.Fatal("negative FX rate accepted")
	}
}

func TestZeroFXRateDegeneratesToZero(t *testing.T) {
	cfg := baseConfig()
	cfg.FXRateUSDBRL = 0
	results, sum, err := Compute([]LineItem{scenarioItem()}, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if results[0].DeliveredCostBRL != 0 || sum.DeliveredTotalBRL != 0 {
		t.Fatalf("BRL outputs not zero with FX 0: %v", results[0].DeliveredCostBRL)
	}
	nearlyEqual(t, "FOBTotalUSD", sum.FOBTotalUSD, 2500)
}

func TestWeightAllocation(t *testing.T) {
	items := []LineItem{
		{NCM: "7318.15.00", Quantity: 10, FOBUnitUSD: 100, GrossWeight: 900},
		{NCM: "8504.40.10", Quantity: 10, FOBUnitUSD: 100, GrossWeight: 100},
	}
	cfg := baseConfig()
	cfg.Allocation = AllocateByWeight
	cfg.FreightInternationalUSD = 1000
	cfg.InsurancePct = 0

	results, _, err := Compute(items, cfg)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	nearlyEqual(t, "heavy share", results[0].Share, 0.9)
	nearlyEqual(t, "heavy freight", results[0].FreightBRL, 0.9*1000*5.50)
	nearlyEqual(t, "light freight", results[1].FreightBRL, 0.1*1000*5.50)
}
