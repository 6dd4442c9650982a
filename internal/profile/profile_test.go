package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateDefaultsSQLite(t *testing.T) {
	dir := t.TempDir()
	p := &Profile{Mode: "dev", Data: dir}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", p.Driver)
	}
	wantDSN := filepath.Join(dir, "leadwatch_dev.db")
	if p.DSN != wantDSN {
		t.Errorf("DSN = %q, want %q", p.DSN, wantDSN)
	}
	if p.SessionsDir != filepath.Join(dir, "sessions") {
		t.Errorf("SessionsDir = %q", p.SessionsDir)
	}
	if p.ConfigFile != filepath.Join(dir, "config", "parameters.yaml") {
		t.Errorf("ConfigFile = %q", p.ConfigFile)
	}
}

func TestValidateUnknownModeFallsBackToDemo(t *testing.T) {
	p := &Profile{Mode: "bogus", Data: t.TempDir()}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if p.Mode != "demo" {
		t.Errorf("Mode = %q, want demo", p.Mode)
	}
}

func TestValidatePostgresRequiresDSN(t *testing.T) {
	p := &Profile{Mode: "prod", Data: t.TempDir(), Driver: "postgres"}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for postgres driver without DSN")
	}
}

func TestValidateUnsupportedDriver(t *testing.T) {
	p := &Profile{Mode: "dev", Data: t.TempDir(), Driver: "mysql"}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestValidateCreatesMissingDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	p := &Profile{Mode: "dev", Data: dir}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("data dir not created: %v", err)
	}
}

func TestIsDev(t *testing.T) {
	if (&Profile{Mode: "prod"}).IsDev() {
		t.Error("prod mode should not be dev")
	}
	if !(&Profile{Mode: "dev"}).IsDev() {
		t.Error("dev mode should be dev")
	}
	if !(&Profile{Mode: "demo"}).IsDev() {
		t.Error("demo mode should be dev")
	}
}
