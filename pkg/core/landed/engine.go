package landed

import (
	"fmt"
	"math"
)

// Compute runs the full landed-cost calculation for a shipment.
//
// The function is pure: identical inputs always produce identical outputs,
// and the input slice is never mutated. It fails fast on caller-contract
// violations (empty item set, negative quantity or price, negative FX rate);
// a zero FX rate is accepted and degenerates all BRL outputs to zero.
func Compute(items []LineItem, cfg ShipmentConfig) ([]ItemResult, Summary, error) {
	if len(items) == 0 {
		return nil, Summary{}, fmt.Errorf("landed: shipment has no line items")
	}
	if cfg.FXRateUSDBRL < 0 {
		return nil, Summary{}, fmt.Errorf("landed: negative FX rate %v", cfg.FXRateUSDBRL)
	}
	for i, it := range items {
		if it.Quantity < 0 {
			return nil, Summary{}, fmt.Errorf("landed: item %d (%s): negative quantity %v", i, it.NCM, it.Quantity)
		}
		if it.FOBUnitUSD < 0 {
			return nil, Summary{}, fmt.Errorf("landed: item %d (%s): negative unit price %v", i, it.NCM, it.FOBUnitUSD)
		}
	}

	results := make([]ItemResult, len(items))
	for i, it := range items {
		results[i].LineItem = sanitizeItem(it)
	}

	fx := nz(cfg.FXRateUSDBRL)

	// -------------------------------------------------------------------
	// 1. FOB valuation, USD and BRL
	// -------------------------------------------------------------------
	var fobTotalUSD, fobTotalBRL float64
	for i := range results {
		r := &results[i]
		r.FOBTotalUSD = r.Quantity * r.FOBUnitUSD
		r.FOBTotalBRL = r.FOBTotalUSD * fx
		fobTotalUSD += r.FOBTotalUSD
		fobTotalBRL += r.FOBTotalBRL
	}

	// -------------------------------------------------------------------
	// 2. Allocation shares
	// Customs-value allocation is resolved in two passes: the costs that
	// build the customs value are split by FOB, then the shares are
	// recomputed over the resulting customs values for everything after.
	// -------------------------------------------------------------------
	preShares := shares(results, func(r *ItemResult) float64 {
		if cfg.Allocation == AllocateByWeight {
			return r.GrossWeight
		}
		return r.FOBTotalBRL
	})
	for i := range results {
		results[i].Share = preShares[i]
	}

	// -------------------------------------------------------------------
	// 3. Shared international cost totals, BRL
	// -------------------------------------------------------------------
	freightBRL := nz(cfg.FreightInternationalUSD) * fx
	insuranceBRL := nz(cfg.InsurancePct) * fobTotalBRL
	if cfg.InsuranceUSD > 0 {
		insuranceBRL = cfg.InsuranceUSD * fx
	}
	originBRL := nz(cfg.OriginChargesUSD) * fx
	thcBRL := nz(cfg.THCOriginUSD) * fx

	afrmmBRL := nz(cfg.AFRMMPct) * freightBRL
	if cfg.Mode == ModeAir {
		afrmmBRL = 0 // AFRMM is a maritime surcharge
	}
	siscomexBRL := nz(cfg.SiscomexBRL)

	// -------------------------------------------------------------------
	// 4. Customs value (valor aduaneiro) per item
	// -------------------------------------------------------------------
	vaSet := componentSet(cfg.VAComponents, DefaultVAComponents())
	var vaTotalBRL float64
	for i := range results {
		r := &results[i]
		r.FreightBRL = freightBRL * r.Share
		r.InsuranceBRL = insuranceBRL * r.Share
		r.OriginBRL = originBRL * r.Share
		r.THCBRL = thcBRL * r.Share

		r.CIFBRL = r.FOBTotalBRL
		if vaSet[ComponentFreight] {
			r.CIFBRL += r.FreightBRL
		}
		if vaSet[ComponentInsurance] {
			r.CIFBRL += r.InsuranceBRL
		}
		if vaSet[ComponentOrigin] {
			r.CIFBRL += r.OriginBRL
		}
		if vaSet[ComponentTHC] {
			r.CIFBRL += r.THCBRL
		}
		vaTotalBRL += r.CIFBRL
	}

	postShares := preShares
	if cfg.Allocation == AllocateByCustomsValue {
		postShares = shares(results, func(r *ItemResult) float64 { return r.CIFBRL })
		for i := range results {
			results[i].Share = postShares[i]
		}
	}

	// -------------------------------------------------------------------
	// 5-9. Federal taxes and ICMS per item
	// -------------------------------------------------------------------
	daSet := componentSet(cfg.DAComponents, DefaultDAComponents())
	sum := Summary{
		FOBTotalUSD: fobTotalUSD,
		FOBTotalBRL: fobTotalBRL,
		VATotalBRL:  vaTotalBRL,
	}
	for i := range results {
		r := &results[i]
		r.AFRMMBRL = afrmmBRL * postShares[i]
		r.SiscomexBRL = siscomexBRL * postShares[i]
		r.LocalPortBRL = nz(cfg.LocalPortCostsBRL) * postShares[i]
		r.OtherLocalBRL = nz(cfg.OtherLocalCostsBRL) * postShares[i]
		r.TruckBRL = nz(cfg.TruckingBRL) * postShares[i]

		// II on the customs value
		r.IIBRL = r.CIFBRL * r.IIRate

		// IPI on customs value + II. The duty inflating the IPI base is the
		// legal tax-on-tax rule, not an accident.
		r.IPIBaseBRL = r.CIFBRL + r.IIBRL
		r.IPIBRL = r.IPIBaseBRL * r.IPIRate

		// PIS/COFINS base per the configured policy
		contribBase := r.CIFBRL
		if cfg.ContributionBase == ContributionBaseCIFTaxes {
			contribBase = r.CIFBRL + r.IIBRL + r.IPIBRL
		}
		r.PISBRL = contribBase * r.PISRate
		r.COFINSBRL = contribBase * r.COFINSRate

		// DA: customs expenses that feed the ICMS base
		if daSet[ComponentAFRMM] {
			r.DABRL += r.AFRMMBRL
		}
		if daSet[ComponentSiscomex] {
			r.DABRL += r.SiscomexBRL
		}

		// ICMS "por dentro": the rate applies to a base that already
		// includes the tax, so base = N / (1 - rate). Rates at or above
		// 100% make the formula undefined; the tax is zero by convention.
		icmsRate := r.ICMSRate
		if icmsRate == 0 {
			icmsRate = nz(cfg.ICMSRate)
		}
		numerator := r.CIFBRL + r.IIBRL + r.IPIBRL + r.PISBRL + r.COFINSBRL + r.DABRL
		if icmsRate >= 1 {
			r.ICMSBaseBRL = numerator
			r.ICMSBRL = 0
		} else {
			r.ICMSBaseBRL = numerator / (1 - icmsRate)
			r.ICMSBRL = r.ICMSBaseBRL - numerator
		}

		r.TaxPaidBRL = r.IIBRL + r.IPIBRL + r.PISBRL + r.COFINSBRL + r.ICMSBRL

		// -------------------------------------------------------------
		// 10. Credits. II is never creditable in any regime.
		// -------------------------------------------------------------
		if cfg.Purpose == PurposeResale {
			switch cfg.Regime {
			case RegimePresumido:
				r.IPICreditBRL = r.IPIBRL
				r.ICMSCreditBRL = r.ICMSBRL
			case RegimeReal:
				r.IPICreditBRL = r.IPIBRL
				r.PISCreditBRL = r.PISBRL
				r.COFINSCreditBRL = r.COFINSBRL
				r.ICMSCreditBRL = r.ICMSBRL
			}
		}
		r.TaxCreditBRL = r.IPICreditBRL + r.PISCreditBRL + r.COFINSCreditBRL + r.ICMSCreditBRL
		r.NetTaxBRL = r.TaxPaidBRL - r.TaxCreditBRL

		// -------------------------------------------------------------
		// 12. Cost levels and unit cost
		// -------------------------------------------------------------
		r.CustomsClearedBRL = r.CIFBRL + r.NetTaxBRL
		r.DeliveredCostBRL = r.CustomsClearedBRL + r.LocalPortBRL + r.OtherLocalBRL + r.TruckBRL
		if r.Quantity > 0 {
			r.UnitCostBRL = r.DeliveredCostBRL / r.Quantity
		}

		// -------------------------------------------------------------
		// 13. Summary accumulation
		// -------------------------------------------------------------
		sum.TaxPaidTotalBRL += r.TaxPaidBRL
		sum.TaxCreditTotalBRL += r.TaxCreditBRL
		sum.NetTaxTotalBRL += r.NetTaxBRL
		sum.IPICreditTotalBRL += r.IPICreditBRL
		sum.PISCreditTotalBRL += r.PISCreditBRL
		sum.COFINSCreditTotalBRL += r.COFINSCreditBRL
		sum.ICMSCreditTotalBRL += r.ICMSCreditBRL
		sum.FreightTotalBRL += r.FreightBRL
		sum.TruckTotalBRL += r.TruckBRL
		sum.CustomsClearedTotalBRL += r.CustomsClearedBRL
		sum.DeliveredTotalBRL += r.DeliveredCostBRL
		sum.TotalQuantity += r.Quantity
	}

	if fobTotalUSD > 0 {
		sum.FOBToBrazilMultiplier = sum.DeliveredTotalBRL / fobTotalUSD
	}
	if fobTotalBRL > 0 {
		sum.FOBToBrazilFactor = sum.DeliveredTotalBRL / fobTotalBRL
	}
	if sum.TotalQuantity > 0 {
		sum.AvgUnitCostBRL = sum.DeliveredTotalBRL / sum.TotalQuantity
	}

	return results, sum, nil
}

// shares computes each item's fraction of the allocation base, falling back
// to an equal split when the base totals zero.
func shares(results []ItemResult, base func(*ItemResult) float64) []float64 {
	out := make([]float64, len(results))
	var total float64
	for i := range results {
		total += base(&results[i])
	}
	if total > 0 {
		for i := range results {
			out[i] = base(&results[i]) / total
		}
		return out
	}
	equal := 1.0 / float64(len(results))
	for i := range out {
		out[i] = equal
	}
	return out
}

// componentSet resolves a configured component list, using defaults when the
// caller left it nil.
func componentSet(configured, defaults []CostComponent) map[CostComponent]bool {
	list := configured
	if list == nil {
		list = defaults
	}
	set := make(map[CostComponent]bool, len(list))
	for _, c := range list {
		set[c] = true
	}
	return set
}

// sanitizeItem coerces NaN numeric fields to zero, preserving the lenient
// numeric handling of hand-filled shipment sheets.
func sanitizeItem(it LineItem) LineItem {
	it.Quantity = nz(it.Quantity)
	it.FOBUnitUSD = nz(it.FOBUnitUSD)
	it.GrossWeight = nz(it.GrossWeight)
	it.IIRate = nz(it.IIRate)
	it.IPIRate = nz(it.IPIRate)
	it.PISRate = nz(it.PISRate)
	it.COFINSRate = nz(it.COFINSRate)
	it.ICMSRate = nz(it.ICMSRate)
	return it
}

func nz(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
