package config

import (
	"os"
	"testing"
	"time"
)

func TestParseCommaSeparated(t *testing.T) {
	res := parseCommaSeparated("a,b , c")
	if len(res) != 3 || res[1] != "b" {
		t.Fatalf("unexpected result: %v", res)
	}
	if res := parseCommaSeparated(""); len(res) != 0 {
		t.Fatalf("expected empty slice")
	}
}

func TestParseHeaders(t *testing.T) {
	res := parseHeaders("Authorization=Bearer x, X-Env = prod,,bad")
	if res["Authorization"] != "Bearer x" || res["X-Env"] != "prod" {
		t.Fatalf("unexpected result: %v", res)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 headers, got %d", len(res))
	}
}

func TestLoadFromFile(t *testing.T) {
	tmp, err := os.CreateTemp("", "cfg*.json")
	if err != nil {
		t.Fatalf("temp: %v", err)
	}
	tmp.WriteString(`{"forbidden_names":["cluely"],"plan":"pro","advanced_detection":true}`)
	tmp.Close()
	defer os.Remove(tmp.Name())

	cfg := &Config{}
	if err := cfg.loadFromFile(tmp.Name()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.ForbiddenNames) != 1 || cfg.ForbiddenNames[0] != "cluely" {
		t.Fatalf("unexpected names: %v", cfg.ForbiddenNames)
	}
	if cfg.Plan != PlanPro || !cfg.AdvancedDetection {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestValidateDefaults(t *testing.T) {
	cfg := &Config{}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Plan != PlanFree {
		t.Fatalf("expected free plan default, got %s", cfg.Plan)
	}
	if cfg.BasicInterval != 2*time.Second || cfg.AdvancedInterval != 30*time.Second || cfg.NetworkInterval != 10*time.Second {
		t.Fatalf("unexpected intervals: %+v", cfg)
	}
	if cfg.ConnectionListTimeout != 5*time.Second || cfg.DNSTimeout != 2*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg)
	}
}

func TestValidateEmptyDenyListsAccepted(t *testing.T) {
	cfg := &Config{Plan: "pro"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("empty deny-lists should validate: %v", err)
	}
	if !cfg.Pro() {
		t.Fatal("expected pro tier")
	}
}

func TestValidateRejectsUnknownPlan(t *testing.T) {
	cfg := &Config{Plan: "enterprise"}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for unknown plan")
	}
}

func TestValidateNormalizesLists(t *testing.T) {
	cfg := &Config{
		ForbiddenNames:  []string{" Cluely ", ""},
		ForbiddenHashes: []string{"ABCDEF", " "},
		ForbiddenPaths:  []string{" /Applications/X.app/Contents/MacOS/X ", ""},
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if len(cfg.ForbiddenNames) != 1 || cfg.ForbiddenNames[0] != "cluely" {
		t.Fatalf("names not normalized: %v", cfg.ForbiddenNames)
	}
	if len(cfg.ForbiddenHashes) != 1 || cfg.ForbiddenHashes[0] != "abcdef" {
		t.Fatalf("hashes not normalized: %v", cfg.ForbiddenHashes)
	}
	if len(cfg.ForbiddenPaths) != 1 || cfg.ForbiddenPaths[0] != "/Applications/X.app/Contents/MacOS/X" {
		t.Fatalf("paths not trimmed: %v", cfg.ForbiddenPaths)
	}
}
