package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadServerConfigOverridesDefaults(t *testing.T) {
	path := writeTemp(t, "server.toml", `
host = "127.0.0.1"
port = 8888
`)

	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("LoadServerConfig: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 8888 {
		t.Errorf("cfg = %+v, want overridden host/port", cfg)
	}
	if cfg.MaxPlayers != DefaultServerConfig().MaxPlayers {
		t.Errorf("cfg.MaxPlayers = %d, want default retained", cfg.MaxPlayers)
	}
}

func TestLoadKeybindingsInterpolatesFromDefaults(t *testing.T) {
	path := writeTemp(t, "inputs.toml", `
[defaults]
forward = 17
backward = 31
fire = 1

[PlayerController]
fire = 2
`)

	bindings, err := LoadKeybindings(path, "PlayerController")
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}

	if bindings["forward"] != 17 {
		t.Errorf("forward = %d, want inherited default 17", bindings["forward"])
	}
	if bindings["fire"] != 2 {
		t.Errorf("fire = %d, want class override 2", bindings["fire"])
	}
}

func TestLoadKeybindingsUnknownClassUsesOnlyDefaults(t *testing.T) {
	path := writeTemp(t, "inputs.toml", `
[defaults]
forward = 17
`)

	bindings, err := LoadKeybindings(path, "AIController")
	if err != nil {
		t.Fatalf("LoadKeybindings: %v", err)
	}
	if len(bindings) != 1 || bindings["forward"] != 17 {
		t.Errorf("bindings = %+v, want only the default", bindings)
	}
}
