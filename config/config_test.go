package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "recman.yaml")
	body := "datadir: " + dir + "\npagesize: 8192\nstrategy: best-fit\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.PageSize != 8192 {
		t.Fatalf("PageSize = %d, want 8192", c.PageSize)
	}
	if c.Strategy != StrategyBestFit {
		t.Fatalf("Strategy = %q, want %q", c.Strategy, StrategyBestFit)
	}
	if c.Translator != TranslatorIdentity {
		t.Fatalf("Translator default = %q, want identity", c.Translator)
	}
}

func TestLoadKeyValue(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "recman.conf")
	body := "datadir = '" + dir + "'\npagesize = 1024\ntranslator = map\n"
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.PageSize != 1024 {
		t.Fatalf("PageSize = %d, want 1024", c.PageSize)
	}
	if c.Translator != TranslatorMap {
		t.Fatalf("Translator = %q, want map", c.Translator)
	}
}

func TestLoadMissingDatadir(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "recman.conf")
	if err := os.WriteFile(p, []byte("pagesize = 1024\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for missing datadir")
	}
}
