package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/simulagent/pkg/jsontime"
	"github.com/haivivi/simulagent/pkg/simul/agents"
)

// DefaultSystemConfig is the config file looked up in a system directory.
const DefaultSystemConfig = "main.yaml"

// SystemConfig is the content of a system directory's main.yaml:
//
//	agents:
//	  - text/segmenter
//	  - text/spm-detokenizer
//	segment_k: 4
//	sentencepiece_model: spm.model
//	detokenize_only: false
//	store: badger:///var/lib/simulagent
//	idle_timeout: 5m
//
// Relative model paths are resolved against the system directory.
type SystemConfig struct {
	// Agents lists the pipeline patterns in order. Empty means
	// agents.DefaultPipeline.
	Agents []string `yaml:"agents,omitempty" json:"agents,omitempty"`

	agents.Config `yaml:",inline"`

	// Store is the kv URL used by eval.
	Store string `yaml:"store,omitempty" json:"store,omitempty"`

	// IdleTimeout closes idle serve connections ("5m"). Zero keeps the
	// --idle-timeout default.
	IdleTimeout jsontime.Duration `yaml:"idle_timeout,omitempty" json:"idle_timeout,omitempty"`

	// Dir is the system directory the config was loaded from.
	Dir string `yaml:"-" json:"-"`
}

// LoadSystemConfig reads name from dir. A missing file yields an empty
// config with Dir set, so flags alone can configure a run.
func LoadSystemConfig(dir, name string) (*SystemConfig, error) {
	if name == "" {
		name = DefaultSystemConfig
	}
	cfg := &SystemConfig{Dir: dir}
	if dir == "" {
		return cfg, nil
	}

	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read system config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.Dir = dir
	if m := cfg.SentencePieceModel; m != "" && !filepath.IsAbs(m) {
		cfg.SentencePieceModel = filepath.Join(dir, m)
	}
	return cfg, nil
}

// Patterns returns Agents, or agents.DefaultPipeline when empty.
func (c *SystemConfig) Patterns() []string {
	if len(c.Agents) == 0 {
		return agents.DefaultPipeline
	}
	return c.Agents
}

// Save writes the config to path.
func (c *SystemConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal system config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write system config: %w", err)
	}
	return nil
}
