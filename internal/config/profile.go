package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/spf13/viper"
)

type (
	// Profile is the resolved run configuration: defaults, an optional
	// profile file, and explicit overrides merged in that order. JSON is
	// the canonical encoding handed to the run context, Hash its sha256
	Profile struct {
		JSON []byte
		Hash string
	}

	// Settings is a nested configuration tree
	Settings map[string]any
)

// DefaultSettings are the base settings every run profile starts from
func DefaultSettings() Settings {
	return Settings{
		"run": Settings{
			"seed": 42,
		},
		"steps": Settings{},
	}
}

// LoadProfile resolves a run profile. Path may be empty, in which case
// only defaults and overrides apply. Later layers win key by key, with
// nested maps merged recursively
func LoadProfile(path string, overrides Settings) (*Profile, error) {
	merged := toPlainMap(DefaultSettings())

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading profile: %w", err)
		}
		merged = deepMerge(merged, v.AllSettings())
	}

	if overrides != nil {
		merged = deepMerge(merged, toPlainMap(overrides))
	}

	return NewProfile(merged)
}

// NewProfile canonicalizes a settings tree into its JSON form and hash
func NewProfile(settings map[string]any) (*Profile, error) {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	sum := sha256.Sum256(encoded)
	return &Profile{
		JSON: encoded,
		Hash: hex.EncodeToString(sum[:]),
	}, nil
}

// deepMerge merges override into base, recursing when both sides hold a
// nested map. Neither input is modified
func deepMerge(base, override map[string]any) map[string]any {
	res := maps.Clone(base)
	if res == nil {
		res = map[string]any{}
	}
	for key, value := range override {
		if baseMap, ok := res[key].(map[string]any); ok {
			if overrideMap, ok := value.(map[string]any); ok {
				res[key] = deepMerge(baseMap, overrideMap)
				continue
			}
		}
		res[key] = value
	}
	return res
}

func toPlainMap(s Settings) map[string]any {
	res := make(map[string]any, len(s))
	for key, value := range s {
		if nested, ok := value.(Settings); ok {
			res[key] = toPlainMap(nested)
			continue
		}
		res[key] = value
	}
	return res
}
