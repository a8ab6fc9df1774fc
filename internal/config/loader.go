package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/docvec/pkg/types"
)

const (
	// EnvPrefix prefixes every environment override
	EnvPrefix = "DOCVEC_"

	maxConfigFileSize = 1024 * 1024 // 1MB
)

// listKeys are split on commas when they come from the environment
var listKeys = map[string]bool{
	"docs.include": true,
}

// Load reads configuration with this precedence, highest first:
//  1. Environment variables (DOCVEC_EMBEDDING_API_KEY -> embedding.api_key)
//  2. The YAML file at configPath, when configPath is not empty
//  3. Defaults
//
// A .env file in the working directory is loaded into the environment
// first; variables already set win over it.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: failed to load config file %s: %v", types.ErrConfiguration, configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", types.ErrConfiguration, err)
	}

	applyDefaults(&cfg)

	if err := cfg.resolveProbes(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyValue maps DOCVEC_SECTION_FIELD_NAME to section.field_name. Only
// the first underscore after the prefix separates section from field.
func envKeyValue(key, value string) (string, interface{}) {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return lower, value
	}

	path := section + "." + field
	if listKeys[path] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return path, items
	}
	return path, value
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open config file: %v", types.ErrConfiguration, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat config file: %v", types.ErrConfiguration, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: config path %s is a directory", types.ErrConfiguration, path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)",
			types.ErrConfiguration, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", types.ErrConfiguration, err)
	}
	return content, nil
}
