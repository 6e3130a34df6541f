// Package scenario reads human-edited shipment definition files. Files are
// Hjson so freight quotes and rate notes can be annotated with comments
// right next to the numbers.
package scenario

import (
	"fmt"
	"os"

	hjson "github.com/hjson/hjson-go/v4"

	"custobrasil/pkg/core/config"
	"custobrasil/pkg/core/landed"
	"custobrasil/pkg/core/ncm"
)

// Item is one product row of a scenario file.
type Item struct {
	NCM         string  `json:"ncm"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	FOBUnitUSD  float64 `json:"fob_unit_usd"`
	GrossWeight float64 `json:"gross_weight_kg"`

	// Rates are optional; zeros resolve from the NCM reference table
	// (II/IPI) or the shipment defaults (PIS/COFINS).
	IIRate     float64 `json:"ii_rate"`
	IPIRate    float64 `json:"ipi_rate"`
	PISRate    float64 `json:"pis_rate"`
	COFINSRate float64 `json:"cofins_rate"`
	ICMSRate   float64 `json:"icms_rate"`
}

// Scenario is the on-disk shipment definition.
type Scenario struct {
	State    string  `json:"state"`
	Mode     string  `json:"mode"`
	Incoterm string  `json:"incoterm"`
	FXRate   float64 `json:"fx_rate_usd_brl"`

	FreightUSD       float64 `json:"freight_usd"`
	InsuranceUSD     float64 `json:"insurance_usd"`
	InsurancePct     float64 `json:"insurance_pct"`
	OriginChargesUSD float64 `json:"origin_charges_usd"`
	THCOriginUSD     float64 `json:"thc_origin_usd"`

	AFRMMPct    float64 `json:"afrmm_pct"`
	SiscomexBRL float64 `json:"siscomex_brl"`

	LocalPortBRL  float64 `json:"local_port_costs_brl"`
	TruckingBRL   float64 `json:"trucking_brl"`
	OtherLocalBRL float64 `json:"other_local_costs_brl"`

	Regime   string  `json:"regime"`
	Purpose  string  `json:"purpose"`
	ICMSRate float64 `json:"icms_rate"` // optional override of the state rate

	Allocation       string `json:"allocation_method"`
	ContributionBase string `json:"contribution_base"`

	Items []Item `json:"items"`
}

// Load parses a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: read %s: %w", path, err)
	}
	var s Scenario
	if err := hjson.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: parse %s: %w", path, err)
	}
	return &s, nil
}

// Resolve turns the scenario into engine inputs: enum validation, state
// ICMS lookup, shipment defaults for unset fees, and II/IPI defaulting from
// the reference table (when one is available).
func (s *Scenario) Resolve(rates config.Rates, table *ncm.Table) (landed.ShipmentConfig, []landed.LineItem, error) {
	mode, err := parseMode(s.Mode)
	if err != nil {
		return landed.ShipmentConfig{}, nil, err
	}
	regime, err := parseRegime(s.Regime)
	if err != nil {
		return landed.ShipmentConfig{}, nil, err
	}
	purpose, err := parsePurpose(s.Purpose)
	if err != nil {
		return landed.ShipmentConfig{}, nil, err
	}
	alloc, err := parseAllocation(s.Allocation)
	if err != nil {
		return landed.ShipmentConfig{}, nil, err
	}
	contrib, err := parseContributionBase(s.ContributionBase)
	if err != nil {
		return landed.ShipmentConfig{}, nil, err
	}

	icms := s.ICMSRate
	if icms == 0 {
		icms, err = rates.ICMSForState(s.State)
		if err != nil {
			return landed.ShipmentConfig{}, nil, err
		}
	}

	cfg := landed.ShipmentConfig{
		StateDestination:        s.State,
		Mode:                    mode,
		Incoterm:                landed.Incoterm(s.Incoterm),
		FXRateUSDBRL:            s.FXRate,
		FreightInternationalUSD: s.FreightUSD,
		InsuranceUSD:            s.InsuranceUSD,
		InsurancePct:            s.InsurancePct,
		OriginChargesUSD:        s.OriginChargesUSD,
		THCOriginUSD:            s.THCOriginUSD,
		AFRMMPct:                s.AFRMMPct,
		SiscomexBRL:             s.SiscomexBRL,
		LocalPortCostsBRL:       s.LocalPortBRL,
		TruckingBRL:             s.TruckingBRL,
		OtherLocalCostsBRL:      s.OtherLocalBRL,
		Regime:                  regime,
		Purpose:                 purpose,
		ICMSRate:                icms,
		Allocation:              alloc,
		ContributionBase:        contrib,
	}
	if cfg.InsuranceUSD == 0 && cfg.InsurancePct == 0 {
		cfg.InsurancePct = rates.Defaults.InsurancePct
	}
	if cfg.AFRMMPct == 0 && mode != landed.ModeAir {
		cfg.AFRMMPct = rates.Defaults.AFRMMPct
	}
	if cfg.SiscomexBRL == 0 {
		cfg.SiscomexBRL = rates.Defaults.SiscomexBRL
	}

	items := make([]landed.LineItem, len(s.Items))
	for i, it := range s.Items {
		li := landed.LineItem{
			NCM:         it.NCM,
			Description: it.Description,
			Quantity:    it.Quantity,
			FOBUnitUSD:  it.FOBUnitUSD,
			GrossWeight: it.GrossWeight,
			IIRate:      it.IIRate,
			IPIRate:     it.IPIRate,
			PISRate:     it.PISRate,
			COFINSRate:  it.COFINSRate,
			ICMSRate:    it.ICMSRate,
		}
		if table != nil {
			li.IIRate, li.IPIRate, _ = table.ApplyDefaults(it.NCM, li.IIRate, li.IPIRate)
		}
		if li.PISRate == 0 {
			li.PISRate = rates.Defaults.PISRate
		}
		if li.COFINSRate == 0 {
			li.COFINSRate = rates.Defaults.COFINSRate
		}
		items[i] = li
	}
	return cfg, items, nil
}

func parseMode(raw string) (landed.TransportMode, error) {
	switch landed.TransportMode(raw) {
	case landed.ModeFCL20, landed.ModeFCL40, landed.ModeLCL, landed.ModeAir:
		return landed.TransportMode(raw), nil
	case "":
		return landed.ModeFCL20, nil
	}
	return "", fmt.Errorf("scenario: unknown transport mode %q", raw)
}

func parseRegime(raw string) (landed.TaxRegime, error) {
	switch landed.TaxRegime(raw) {
	case landed.RegimeSimples, landed.RegimePresumido, landed.RegimeReal:
		return landed.TaxRegime(raw), nil
	}
	return "", fmt.Errorf("scenario: unknown tax regime %q", raw)
}

func parsePurpose(raw string) (landed.Purpose, error) {
	switch landed.Purpose(raw) {
	case landed.PurposeResale, landed.PurposeOwnUse:
		return landed.Purpose(raw), nil
	}
	return "", fmt.Errorf("scenario: unknown import purpose %q", raw)
}

func parseAllocation(raw string) (landed.AllocationMethod, error) {
	switch landed.AllocationMethod(raw) {
	case landed.AllocateByFOB, landed.AllocateByWeight, landed.AllocateByCustomsValue:
		return landed.AllocationMethod(raw), nil
	case "":
		return landed.AllocateByFOB, nil
	}
	return "", fmt.Errorf("scenario: unknown allocation method %q", raw)
}

func parseContributionBase(raw string) (landed.ContributionBase, error) {
	switch landed.ContributionBase(raw) {
	case landed.ContributionBaseCIF, landed.ContributionBaseCIFTaxes:
		return landed.ContributionBase(raw), nil
	case "":
		return landed.ContributionBaseCIF, nil
	}
	return "", fmt.Errorf("scenario: unknown contribution base %q", raw)
}
