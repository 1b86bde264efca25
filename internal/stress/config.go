package stress

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/llxisdsh/fixedmap"
)

// EnvPrefix is the prefix of environment variables read by LoadConfig.
// FIXEDMAP_MAX_TRIES maps to the max-tries key.
const EnvPrefix = "FIXEDMAP_"

// Config describes one stress run.
type Config struct {
	Workers    int    `koanf:"workers" json:"workers"`
	Iterations int    `koanf:"iterations" json:"iterations"`
	Keys       int    `koanf:"keys" json:"keys"`
	Increment  int64  `koanf:"increment" json:"increment"`
	Size       int    `koanf:"size" json:"size"`
	MaxTries   int    `koanf:"max-tries" json:"max_tries"`
	Hasher     string `koanf:"hasher" json:"hasher"`
	Rehash     string `koanf:"rehash" json:"rehash"`
	Strict     bool   `koanf:"strict" json:"strict"`
	Seed       uint64 `koanf:"seed" json:"seed"`
}

// DefaultConfig returns the classic counter workload: 100 workers
// incrementing 15 keys in a 32 slot map.
func DefaultConfig() Config {
	return Config{
		Workers:    100,
		Iterations: 100_000,
		Keys:       15,
		Increment:  2,
		Size:       32,
		MaxTries:   32,
		Hasher:     "fnv",
		Rehash:     "fnvword",
	}
}

// LoadConfig layers, from lowest to highest priority, the defaults, the
// optional config file at path (JSON or YAML) and FIXEDMAP_ environment
// variables.
func LoadConfig(path string) (Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}
	err := k.Load(env.ProviderWithValue(EnvPrefix, "", func(key, value string) (string, interface{}) {
		// FIXEDMAP_MAX_TRIES -> max-tries
		return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "_", "-")), value
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("error loading environment variables: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func parserFor(path string) koanf.Parser {
	switch filepath.Ext(path) {
	case ".json":
		return json.Parser()
	default:
		return yaml.Parser()
	}
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Workers <= 0 {
		result = multierror.Append(result, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.Iterations < 0 {
		result = multierror.Append(result, fmt.Errorf("iterations must not be negative, got %d", c.Iterations))
	}
	if c.Keys <= 0 {
		result = multierror.Append(result, fmt.Errorf("keys must be positive, got %d", c.Keys))
	}
	if c.Size <= 0 {
		result = multierror.Append(result, fmt.Errorf("size must be positive, got %d", c.Size))
	}
	if c.MaxTries <= 0 {
		result = multierror.Append(result, fmt.Errorf("max-tries must be positive, got %d", c.MaxTries))
	}
	if _, err := HasherByName(c.Hasher); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := RehashByName(c.Rehash); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// HasherByName resolves a string key hash strategy.
func HasherByName(name string) (func(string) uintptr, error) {
	switch name {
	case "fnv", "":
		return fixedmap.FNV1aString, nil
	case "xxhash":
		return fixedmap.XXHashString, nil
	case "xxh3":
		return fixedmap.XXH3String, nil
	}
	return nil, fmt.Errorf("unknown hasher %q", name)
}

// RehashByName resolves a collision perturbation strategy.
func RehashByName(name string) (func(uintptr) uintptr, error) {
	switch name {
	case "fnv":
		return fixedmap.FNVRehash, nil
	case "fnvword", "":
		return fixedmap.FNVWordRehash, nil
	case "golden":
		return fixedmap.GoldenRehash, nil
	}
	return nil, fmt.Errorf("unknown rehash %q", name)
}
