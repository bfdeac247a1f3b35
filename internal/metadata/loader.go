package metadata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type overridesFile struct {
	Types map[string]TypeConfig `yaml:"types"`
}

// LoadOverrides reads configuration records keyed by qualified type name:
//
//	types:
//	  models.Team:
//	    sql_name: T_TEAM
//	    fields:
//	      myId: {identity: true}
//	      notes: {temporary: true}
func LoadOverrides(path string) (map[string]TypeConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	return ParseOverrides(b)
}

// ParseOverrides decodes an overrides document.
func ParseOverrides(b []byte) (map[string]TypeConfig, error) {
	var f overridesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse overrides: %w", err)
	}
	if f.Types == nil {
		f.Types = make(map[string]TypeConfig)
	}
	return f.Types, nil
}
