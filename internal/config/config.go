// Package config loads server and keybinding configuration from TOML,
// replacing core/main.go's hardcoded loadConfig() with an on-disk,
// editable format (spec §6 "Persisted state: Configuration of
// keybindings is loaded via a text format of name = integer_keycode
// with interpolation from a defaults section").
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ServerConfig is the top-level process configuration (spec §6 outer
// loop / transport defaults), grounded on core/main.go's Config struct
// — the same fields, now sourced from a file instead of a literal.
type ServerConfig struct {
	Host       string  `toml:"host"`
	Port       int     `toml:"port"`
	MaxPlayers int     `toml:"max_players"`
	ServerName string  `toml:"server_name"`
	TickRate   float64 `toml:"tick_rate"`
}

// DefaultServerConfig mirrors core/main.go's loadConfig defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:       "0.0.0.0",
		Port:       7777,
		MaxPlayers: 100,
		ServerName: "repcore server",
		TickRate:   60,
	}
}

// LoadServerConfig decodes a TOML file into a ServerConfig, starting
// from DefaultServerConfig so an absent field keeps its default.
func LoadServerConfig(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return ServerConfig{}, fmt.Errorf("config: load server config: %w", err)
	}
	return cfg, nil
}

// keybindingDocument is the on-disk shape: a [defaults] table plus one
// table per controller class name, each mapping a logical input name
// to its native device keycode.
type keybindingDocument map[string]map[string]int

// LoadKeybindings reads path and returns the keybinding map for
// className, with any name missing from that class's table filled in
// from [defaults] (spec §6: "interpolation from a defaults section").
func LoadKeybindings(path, className string) (map[string]int, error) {
	var doc keybindingDocument
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("config: load keybindings: %w", err)
	}

	bindings := make(map[string]int, len(doc["defaults"]))
	for name, code := range doc["defaults"] {
		bindings[name] = code
	}
	for name, code := range doc[className] {
		bindings[name] = code
	}
	return bindings, nil
}
