// Package bundle reads the deployed function bundle: its on-disk layout
// and the descriptor produced at publish time.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tabsdata-labs/tabsdata-go/internal/source"
)

// ConfigFileName is the descriptor persisted at the bundle root.
const ConfigFileName = "function.yaml"

type EntryPoint struct {
	File     string `yaml:"file"`
	Function string `yaml:"function"`
}

func (e EntryPoint) IsZero() bool {
	return strings.TrimSpace(e.File) == ""
}

// FunctionConfig is the immutable view over a loaded bundle descriptor.
// Absent input/output maps read as empty; callers must not distinguish
// "key absent" from "present but empty".
type FunctionConfig struct {
	EntryPoint  EntryPoint             `yaml:"entry_point"`
	Input       map[string]string      `yaml:"input"`
	Output      map[string]string      `yaml:"output"`
	Source      source.Spec            `yaml:"source"`
	Destination source.DestinationSpec `yaml:"destination"`
}

func (c *FunctionConfig) InputPlugins() map[string]string {
	if c.Input == nil {
		return map[string]string{}
	}
	return c.Input
}

func (c *FunctionConfig) OutputPlugins() map[string]string {
	if c.Output == nil {
		return map[string]string{}
	}
	return c.Output
}

// LoadFunctionConfig reads the bundle descriptor. Pure read; a missing or
// malformed descriptor is a configuration error.
func LoadFunctionConfig(bundleFolder string) (*FunctionConfig, error) {
	path := filepath.Join(bundleFolder, ConfigFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bundle descriptor unreadable at %s: %w", path, err)
	}
	var config FunctionConfig
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("bundle descriptor malformed at %s: %w", path, err)
	}
	return &config, nil
}
