// Package seed loads game-rules tables and starter entities at bootstrap.
// Rules ship as YAML; deployments can overlay the stacking table with a
// TOML override file referenced from configuration.
package seed

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/sheetforge/sheetforge/internal/capability/bonus"
	"github.com/sheetforge/sheetforge/internal/capability/condition"
	"github.com/sheetforge/sheetforge/internal/capability/skill"
)

// Rules bundles the rule tables the capability suite consumes
type Rules struct {
	Stacking   map[string]bool        `yaml:"stacking"`
	Skills     []skill.Definition     `yaml:"skills"`
	Conditions []condition.Definition `yaml:"conditions"`
}

// LoadRules reads a YAML rules file. A missing path returns empty rules so
// the built-in defaults apply.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return &Rules{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{}, nil
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return &rules, nil
}

// stackingOverride is the TOML override file shape
type stackingOverride struct {
	Stacking map[string]bool `toml:"stacking"`
}

// ApplyOverrides overlays a TOML stacking table onto the rules. A missing
// file is not an error.
func (r *Rules) ApplyOverrides(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read rules override: %w", err)
	}

	var override stackingOverride
	if err := toml.Unmarshal(data, &override); err != nil {
		return fmt.Errorf("parse rules override %s: %w", path, err)
	}
	if r.Stacking == nil {
		r.Stacking = make(map[string]bool)
	}
	for k, v := range override.Stacking {
		r.Stacking[k] = v
	}
	return nil
}

// StackingRules returns the default table merged with loaded entries
func (r *Rules) StackingRules() bonus.StackingRules {
	return bonus.DefaultRules().Merge(r.Stacking)
}

// SkillDefinitions returns the loaded skill table, or nil when the file
// defined none so the built-in defaults apply
func (r *Rules) SkillDefinitions() map[string]skill.Definition {
	if len(r.Skills) == 0 {
		return nil
	}
	m := make(map[string]skill.Definition, len(r.Skills))
	for _, d := range r.Skills {
		m[d.ID] = d
	}
	return m
}

// ConditionDefinitions returns the loaded condition table, or nil when the
// file defined none
func (r *Rules) ConditionDefinitions() map[string]condition.Definition {
	if len(r.Conditions) == 0 {
		return nil
	}
	m := make(map[string]condition.Definition, len(r.Conditions))
	for _, d := range r.Conditions {
		m[d.ID] = d
	}
	return m
}
