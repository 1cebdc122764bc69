package ratelimit

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type policyFile struct {
	Policies map[string]policyEntry `yaml:"policies"`
}

type policyEntry struct {
	Rate    string `yaml:"rate"`
	Enabled *bool  `yaml:"enabled"`
}

// LoadPolicies reads a YAML policy file and applies it over base.
//
//	policies:
//	  auth_login:
//	    rate: 10/minute
//	  stats_search:
//	    enabled: false
func LoadPolicies(path string, base []Policy) ([]Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicies(data, base)
}

// ParsePolicies applies YAML overrides to base. Known names keep their
// position; new names are appended in lexical order and default to enabled.
func ParsePolicies(data []byte, base []Policy) ([]Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: policy file: %v", ErrInvalidConfig, err)
	}

	out := append([]Policy(nil), base...)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.Name] = i
	}

	names := make([]string, 0, len(file.Policies))
	for name := range file.Policies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := file.Policies[name]

		i, known := index[name]
		if !known {
			if entry.Rate == "" {
				return nil, fmt.Errorf("%w: policy %q needs a rate", ErrInvalidConfig, name)
			}
			out = append(out, Policy{Name: name, Enabled: true})
			i = len(out) - 1
			index[name] = i
		}

		if entry.Rate != "" {
			r, err := ParseRate(entry.Rate)
			if err != nil {
				return nil, fmt.Errorf("policy %s: %w", name, err)
			}
			out[i].Rate = r
		}
		if entry.Enabled != nil {
			out[i].Enabled = *entry.Enabled
		}
	}

	return out, nil
}
