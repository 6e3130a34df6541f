package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultRates(t *testing.T) {
	rates := Default()

	sp, err := rates.ICMSForState("sp")
	if err != nil {
		t.Fatalf("ICMSForState: %v", err)
	}
	if sp != 0.18 {
		t.Fatalf("SP = %v, want 0.18", sp)
	}
	if _, err := rates.ICMSForState("XX"); err == nil {
		t.Fatal("unknown state accepted")
	}
	if rates.Defaults.COFINSRate != 0.0965 {
		t.Fatalf("COFINS default = %v", rates.Defaults.COFINSRate)
	}
}

func TestLoadOverridesAndFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := "icms_by_state:\n  SP: 0.18\n  ZZ: 0.25\ndefaults:\n  pis_rate: 0.021\n  cofins_rate: 0.0965\n  afrmm_pct: 0.25\n  siscomex_brl: 154.23\n  insurance_pct: 0.001\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rates, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	zz, err := rates.ICMSForState("ZZ")
	if err != nil || zz != 0.25 {
		t.Fatalf("ZZ = %v, %v", zz, err)
	}
	if rates.Defaults.AFRMMPct != 0.25 {
		t.Fatalf("AFRMMPct = %v, want 0.25", rates.Defaults.AFRMMPct)
	}

	// Missing file: quiet fallback to defaults.
	fallback := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if fallback.Defaults.SiscomexBRL != 154.23 {
		t.Fatalf("fallback SiscomexBRL = %v", fallback.Defaults.SiscomexBRL)
	}
}
