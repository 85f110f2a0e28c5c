package broker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk shape of an organization policy file.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads organization policy rules from a YAML file.
// Administrators distribute this file; users cannot override it.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy rules: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse policy rules: %w", err)
	}
	for i, r := range f.Rules {
		if r.Effect != EffectAllow && r.Effect != EffectDeny {
			return nil, fmt.Errorf("rule %d (%s): unknown effect %q", i, r.Name, r.Effect)
		}
	}
	return f.Rules, nil
}
