package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Universe maps a predefined universe name to its partition file inside
// the data directory.
type Universe struct {
	ID   string `yaml:"id"`
	File string `yaml:"file"`
}

type Config struct {
	Listen    string     `yaml:"listen"`
	Socket    string     `yaml:"socket"`
	Database  string     `yaml:"database"`
	DataDir   string     `yaml:"dataDir"`
	Universes []Universe `yaml:"universes"`
}

// Default returns the built-in configuration, including the predefined
// universe catalog.
func Default() Config {
	return Config{
		Listen:   ":8080",
		Socket:   "/tmp/premises.sock",
		Database: "premises.db",
		DataDir:  "data",
		Universes: []Universe{
			{ID: "Ayn Rand", File: "ayn_rand_definitions.json"},
			{ID: "LLM layer genus 1", File: "llm_layer_genus_1_definitions.json"},
			{ID: "LLM layer genus 2", File: "llm_layer_genus_2_definitions.json"},
			{ID: "LLM layer differentia 1", File: "llm_layer_differentia_1_definitions.json"},
			{ID: "LLM layer differentia 2", File: "llm_layer_differentia_2_definitions.json"},
		},
	}
}

// Load reads a YAML config file over the defaults. An empty path returns
// the defaults; a named but missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// UniverseIDs lists the predefined universe names in catalog order.
func (c Config) UniverseIDs() []string {
	ids := make([]string, 0, len(c.Universes))
	for _, u := range c.Universes {
		ids = append(ids, u.ID)
	}
	return ids
}
