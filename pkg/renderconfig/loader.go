package renderconfig

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"
)

// ErrConfigParse indicates the configuration file could not be parsed.
var ErrConfigParse = errors.New("configuration parse failed")

// Load reads, validates, expands, and decodes a render configuration.
//
// The file format is selected by extension (.toml, .yaml, .yml, .json);
// any other extension tries each format in turn. The raw document is
// checked against the configuration schema both before and after
// generator expansion, so a generator cannot smuggle in an entry the
// schema would have rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	return LoadFromBytes(data, filepath.Ext(path))
}

// LoadFromBytes parses and validates configuration data. ext selects the
// parser and may be empty to try each format in turn.
func LoadFromBytes(data []byte, ext string) (*Config, error) {
	document, err := LoadDocumentFromBytes(data, ext)
	if err != nil {
		return nil, err
	}
	return decodeConfig(document)
}

// LoadDocument reads and validates a configuration file, returning the raw
// document after generator expansion. The resolve command serializes this
// document instead of the typed Config so parameter values keep the types
// the author wrote.
func LoadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}
	return LoadDocumentFromBytes(data, filepath.Ext(path))
}

// LoadDocumentFromBytes parses, validates, and expands configuration data.
func LoadDocumentFromBytes(data []byte, ext string) (map[string]any, error) {
	document, err := parseDocument(data, ext)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to convert configuration to JSON: %w", err)
	}
	if err := ValidateRaw(jsonData); err != nil {
		return nil, err
	}

	if err := ExpandGenerators(document); err != nil {
		return nil, err
	}

	// Generated entries must satisfy the same schema as hand-written ones.
	jsonData, err = json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("failed to convert expanded configuration to JSON: %w", err)
	}
	if err := ValidateRaw(jsonData); err != nil {
		return nil, err
	}

	return document, nil
}

// parseDocument decodes raw bytes into a document map. The extension is
// matched case-insensitively; unrecognized extensions fall back to trying
// TOML, YAML, and JSON in that order.
func parseDocument(data []byte, ext string) (map[string]any, error) {
	switch strings.ToLower(ext) {
	case ".toml":
		return parseTOML(data)
	case ".yaml", ".yml":
		return parseYAML(data)
	case ".json":
		return parseJSON(data)
	}

	if document, err := parseTOML(data); err == nil {
		return document, nil
	}
	if document, err := parseYAML(data); err == nil {
		return document, nil
	}
	if document, err := parseJSON(data); err == nil {
		return document, nil
	}
	return nil, fmt.Errorf("%w: data is not valid TOML, YAML, or JSON", ErrConfigParse)
}

func parseTOML(data []byte) (map[string]any, error) {
	var document map[string]any
	if err := toml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return document, nil
}

func parseYAML(data []byte) (map[string]any, error) {
	var document map[string]any
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return document, nil
}

func parseJSON(data []byte) (map[string]any, error) {
	var document map[string]any
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return document, nil
}

// decodeConfig converts a validated document into a typed Config.
//
// Filter and task parameters ride along via mapstructure's ",remain" tag,
// so inline keys other than type, icon, and suffix land in Parameters with
// their parsed types intact.
func decodeConfig(document map[string]any) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build configuration decoder: %w", err)
	}
	if err := decoder.Decode(document); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}
