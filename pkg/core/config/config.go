// Package config loads the tax-rate parameter file: per-state ICMS rates
// and the shipment-level defaults (PIS/COFINS, AFRMM, SISCOMEX fee,
// ad-valorem insurance).
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Defaults are the shipment-level rates applied when a scenario leaves them
// unset.
type Defaults struct {
	PISRate      float64 `yaml:"pis_rate"`
	COFINSRate   float64 `yaml:"cofins_rate"`
	AFRMMPct     float64 `yaml:"afrmm_pct"`
	SiscomexBRL  float64 `yaml:"siscomex_brl"`
	InsurancePct float64 `yaml:"insurance_pct"`
}

// Rates is the full parameter file.
type Rates struct {
	// ICMS internal rate by destination state (UF code).
	ICMSByState map[string]float64 `yaml:"icms_by_state"`
	Defaults    Defaults           `yaml:"defaults"`
}

// Default returns the built-in parameter set used when no rates file is
// present: the federal import defaults and the common internal ICMS rates
// per state.
func Default() Rates {
	return Rates{
		ICMSByState: map[string]float64{
			"AC": 0.19, "AL": 0.19, "AM": 0.20, "AP": 0.18, "BA": 0.205,
			"CE": 0.20, "DF": 0.20, "ES": 0.17, "GO": 0.19, "MA": 0.22,
			"MG": 0.18, "MS": 0.17, "MT": 0.17, "PA": 0.19, "PB": 0.20,
			"PE": 0.205, "PI": 0.21, "PR": 0.195, "RJ": 0.20, "RN": 0.18,
			"RO": 0.195, "RR": 0.20, "RS": 0.17, "SC": 0.17, "SE": 0.19,
			"SP": 0.18, "TO": 0.20,
		},
		Defaults: Defaults{
			PISRate:      0.021,
			COFINSRate:   0.0965,
			AFRMMPct:     0.08,
			SiscomexBRL:  154.23,
			InsurancePct: 0.001,
		},
	}
}

// Load reads a YAML rates file, filling omitted sections from Default().
func Load(path string) (Rates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rates{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	rates := Default()
	if err := yaml.Unmarshal(data, &rates); err != nil {
		return Rates{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if rates.ICMSByState == nil {
		rates.ICMSByState = Default().ICMSByState
	}
	return rates, nil
}

// LoadOrDefault reads the file when it exists and quietly falls back to the
// built-in set otherwise.
func LoadOrDefault(path string) Rates {
	if path == "" {
		return Default()
	}
	if _, err := os.Stat(path); err != nil {
		return Default()
	}
	rates, err := Load(path)
	if err != nil {
		fmt.Printf("[WARNING] Failed to load rates file %s: %v\n", path, err)
		return Default()
	}
	return rates
}

// ICMSForState resolves a destination state's internal rate.
func (r Rates) ICMSForState(uf string) (float64, error) {
	rate, ok := r.ICMSByState[strings.ToUpper(strings.TrimSpace(uf))]
	if !ok {
		return 0, fmt.Errorf("config: unknown destination state %q", uf)
	}
	return rate, nil
}
