/*
 * Copyright © 2019 One Concern
 *
 */

package model

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// CurrentAPIVersion is written to fresh configs and checked on load.
const CurrentAPIVersion = "0.3"

// Config is the persistent client configuration kept at the root of
// the installation tree.
type Config struct {
	APIVersion      string `json:"api-version" yaml:"api-version"`
	CompilerVersion string `json:"compiler-version,omitempty" yaml:"compiler-version,omitempty"`
	Remotes         []URL  `json:"remotes" yaml:"remotes"`
	_               struct{}
}

func UnmarshalConfig(b []byte) (*Config, error) {
	if b == nil {
		return nil, fmt.Errorf("received nil config to unmarshall")
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	return &c, ValidateConfig(&c)
}

func MarshalConfig(c *Config) ([]byte, error) {
	b, err := yaml.Marshal(c)
	return b, err
}

func ValidateConfig(c *Config) error {
	if c.APIVersion == "" {
		return fmt.Errorf("empty field: api-version is empty")
	}
	if c.APIVersion > CurrentAPIVersion {
		return fmt.Errorf("api-version %s higher than supported version %s", c.APIVersion, CurrentAPIVersion)
	}
	for _, r := range c.Remotes {
		if r.Raw == "" || r.Hostname == "" {
			return fmt.Errorf("empty field: remote with empty address")
		}
		switch r.Kind {
		case RemoteOpam, RemoteGit:
		default:
			return fmt.Errorf("unknown remote kind %q for %s", r.Kind, r.Raw)
		}
	}
	return nil
}

// HasRemote tells whether u is already configured, by the remote
// equality rule: rendered address equality or hostname equality.
func (c *Config) HasRemote(u URL) bool {
	for _, r := range c.Remotes {
		if r.Raw == u.Raw || r.Hostname == u.Hostname {
			return true
		}
	}
	return false
}

// AddRemote prepends a remote to the configured list.
func (c *Config) AddRemote(u URL) {
	c.Remotes = append([]URL{u}, c.Remotes...)
}

// RemoveRemote drops every remote whose rendered address or hostname
// equals s, and reports how many were dropped.
func (c *Config) RemoveRemote(s string) int {
	kept := c.Remotes[:0]
	removed := 0
	for _, r := range c.Remotes {
		if r.Raw == s || r.Hostname == s {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	c.Remotes = kept
	return removed
}
