package helpers

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alle-ai/alle-go/internal/app"
	configapp "github.com/alle-ai/alle-go/internal/application/config"
	"github.com/alle-ai/alle-go/internal/domain"
	configinfra "github.com/alle-ai/alle-go/internal/infrastructure/config"
)

// GetConfigLoader extracts the config loader from container with error handling
func GetConfigLoader(container *app.Container) (*configinfra.FileLoader, error) {
	if container.ConfigLoader == nil {
		return nil, fmt.Errorf("config loader unavailable")
	}
	return container.ConfigLoader, nil
}

// SaveConfigWithValidation validates cfg, backs up the current file and saves.
func SaveConfigWithValidation(container *app.Container, cfg domain.Config) error {
	loader, err := GetConfigLoader(container)
	if err != nil {
		return err
	}
	if err := configapp.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if _, err := os.Stat(loader.Path()); err == nil {
		if _, err := loader.Backup(); err != nil {
			return fmt.Errorf("failed to create configuration backup: %w", err)
		}
	}
	if err := loader.Save(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	// Storage and API clients keep the settings they were built with until
	// the next run.
	container.Config = cfg
	return nil
}

// ConfigSetting is one leaf of the configuration, addressed by its dotted key.
type ConfigSetting struct {
	Key   string
	Value interface{}
}

// ConfigTree renders cfg as nested maps keyed by the names used in config.yaml.
// Every field of domain.Config is present, so the tree doubles as the schema.
func ConfigTree(cfg domain.Config) (map[string]interface{}, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	tree := map[string]interface{}{}
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to read configuration tree: %w", err)
	}
	return tree, nil
}

// LookupConfigValue returns the value at a dotted key such as "video.poll_interval".
func LookupConfigValue(cfg domain.Config, key string) (interface{}, error) {
	path, err := splitConfigKey(key)
	if err != nil {
		return nil, err
	}
	tree, err := ConfigTree(cfg)
	if err != nil {
		return nil, err
	}
	value, ok := TraverseNestedMap(tree, path)
	if !ok {
		return nil, unknownConfigKey(key)
	}
	return value, nil
}

// ApplyConfigValue returns cfg with the setting at key replaced by raw. raw is
// read as YAML and must fit the type of the value it replaces. Only existing
// leaf settings can be set; sections and unknown keys are rejected.
func ApplyConfigValue(cfg domain.Config, key, raw string) (domain.Config, error) {
	path, err := splitConfigKey(key)
	if err != nil {
		return cfg, err
	}
	tree, err := ConfigTree(cfg)
	if err != nil {
		return cfg, err
	}

	node, ok := TraverseNestedMap(tree, path[:len(path)-1])
	parent, isSection := node.(map[string]interface{})
	if !ok || !isSection {
		return cfg, unknownConfigKey(key)
	}
	leaf := path[len(path)-1]
	current, ok := parent[leaf]
	if !ok {
		return cfg, unknownConfigKey(key)
	}
	if _, nested := current.(map[string]interface{}); nested {
		return cfg, fmt.Errorf("configuration key %s is a section, set one of its fields", key)
	}

	value, err := coerceConfigValue(current, raw)
	if err != nil {
		return cfg, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	parent[leaf] = value

	updated, err := decodeConfigTree(tree)
	if err != nil {
		return cfg, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return updated, nil
}

// ConfigSettings lists every leaf setting of cfg sorted by key.
func ConfigSettings(cfg domain.Config) ([]ConfigSetting, error) {
	tree, err := ConfigTree(cfg)
	if err != nil {
		return nil, err
	}
	var settings []ConfigSetting
	collectSettings(tree, "", &settings)
	sort.Slice(settings, func(i, j int) bool { return settings[i].Key < settings[j].Key })
	return settings, nil
}

func collectSettings(node map[string]interface{}, prefix string, out *[]ConfigSetting) {
	for name, value := range node {
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		if child, ok := value.(map[string]interface{}); ok {
			collectSettings(child, key, out)
			continue
		}
		*out = append(*out, ConfigSetting{Key: key, Value: value})
	}
}

// TraverseNestedMap retrieves a value from a nested map using a key path
// Returns the value and true if found, nil and false otherwise
func TraverseNestedMap(data interface{}, keyPath []string) (interface{}, bool) {
	if len(keyPath) == 0 {
		return data, true
	}
	node, ok := data.(map[string]interface{})
	if !ok {
		return nil, false
	}
	next, ok := node[keyPath[0]]
	if !ok {
		return nil, false
	}
	return TraverseNestedMap(next, keyPath[1:])
}

func splitConfigKey(key string) ([]string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("configuration key is empty")
	}
	path := strings.Split(key, ".")
	for _, segment := range path {
		if segment == "" {
			return nil, unknownConfigKey(key)
		}
	}
	return path, nil
}

func unknownConfigKey(key string) error {
	return fmt.Errorf("unknown configuration key %s", key)
}

// parseYAMLValue reads input as a YAML scalar or list, falling back to the
// literal string when it is not valid YAML.
func parseYAMLValue(input string) interface{} {
	var parsed interface{}
	if err := yaml.Unmarshal([]byte(input), &parsed); err != nil {
		return input
	}
	return parsed
}

// coerceConfigValue converts raw to the kind of value current holds.
func coerceConfigValue(current interface{}, raw string) (interface{}, error) {
	parsed := parseYAMLValue(raw)

	switch current.(type) {
	case string:
		// "5" or "true" stay strings for string settings.
		if s, ok := parsed.(string); ok {
			return s, nil
		}
		return raw, nil
	case int, float64:
		switch parsed.(type) {
		case int, float64:
			return parsed, nil
		}
		return nil, fmt.Errorf("expected a number, got %q", raw)
	case bool:
		if b, ok := parsed.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("expected true or false, got %q", raw)
	case []interface{}:
		switch v := parsed.(type) {
		case []interface{}:
			return v, nil
		case nil:
			return []interface{}{}, nil
		case string:
			return splitList(v), nil
		default:
			return []interface{}{v}, nil
		}
	default:
		return parsed, nil
	}
}

// splitList turns "a, b" into [a b].
func splitList(s string) []interface{} {
	items := []interface{}{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// decodeConfigTree maps the tree back onto domain.Config, failing on any key
// the struct does not declare.
func decodeConfigTree(tree map[string]interface{}) (domain.Config, error) {
	raw, err := yaml.Marshal(tree)
	if err != nil {
		return domain.Config{}, fmt.Errorf("failed to marshal configuration: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var cfg domain.Config
	if err := dec.Decode(&cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}
