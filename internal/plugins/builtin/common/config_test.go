package common

import "testing"

func TestBoolOpt(t *testing.T) {
	cfg := map[string]interface{}{"enabled": true, "wrong_type": "nope"}
	if !BoolOpt(cfg, "enabled", false) {
		t.Error("expected true for present bool")
	}
	if BoolOpt(cfg, "wrong_type", false) {
		t.Error("expected fallback for wrong type")
	}
	if !BoolOpt(cfg, "missing", true) {
		t.Error("expected fallback for missing key")
	}
}

func TestIntOpt(t *testing.T) {
	cfg := map[string]interface{}{"a": 5, "b": float64(7), "c": "nope"}
	if v := IntOpt(cfg, "a", 0); v != 5 {
		t.Errorf("IntOpt(a) = %d, want 5", v)
	}
	if v := IntOpt(cfg, "b", 0); v != 7 {
		t.Errorf("IntOpt(b) = %d, want 7 (float64 from JSON/YAML round-trip)", v)
	}
	if v := IntOpt(cfg, "c", 9); v != 9 {
		t.Errorf("IntOpt(c) = %d, want fallback 9", v)
	}
}

func TestStringOpt(t *testing.T) {
	cfg := map[string]interface{}{"name": "umbriel"}
	if v := StringOpt(cfg, "name", ""); v != "umbriel" {
		t.Errorf("StringOpt(name) = %q, want umbriel", v)
	}
	if v := StringOpt(cfg, "missing", "fallback"); v != "fallback" {
		t.Errorf("StringOpt(missing) = %q, want fallback", v)
	}
}
