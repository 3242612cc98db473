// Package roles loads the interviewer role catalog. Each role supplies the
// system instructions for the question and evaluation calls.
package roles

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRoles []byte

var ErrUnknownRole = errors.New("unknown interviewer role")

type Prompts struct {
	Question   string `yaml:"question"`
	Evaluation string `yaml:"evaluation"`
}

type Role struct {
	ID          string  `yaml:"id"`
	Label       string  `yaml:"label"`
	Description string  `yaml:"description"`
	Prompts     Prompts `yaml:"prompts"`
}

// Catalog is an ordered set of roles. The first role is the default.
type Catalog struct {
	Roles []Role `yaml:"roles"`
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := parse(defaultRoles)
	if err != nil {
		panic(fmt.Sprintf("embedded roles.yaml: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file. An empty path yields the built-in
// catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("roles file not found: %s", path)
		}
		return nil, fmt.Errorf("cannot read roles file %q: %w", path, err)
	}
	c, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid roles file %s: %w", path, err)
	}
	return c, nil
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if len(c.Roles) == 0 {
		return nil, errors.New("no roles defined")
	}
	seen := map[string]bool{}
	for i, r := range c.Roles {
		if r.ID == "" {
			return nil, fmt.Errorf("role %d: missing id", i+1)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("role %q defined twice", r.ID)
		}
		if r.Prompts.Question == "" || r.Prompts.Evaluation == "" {
			return nil, fmt.Errorf("role %q: both prompts are required", r.ID)
		}
		seen[r.ID] = true
	}
	return &c, nil
}

// Find returns the role with the given id; an empty id selects the default.
func (c *Catalog) Find(id string) (Role, error) {
	if id == "" {
		return c.Roles[0], nil
	}
	for _, r := range c.Roles {
		if r.ID == id {
			return r, nil
		}
	}
	return Role{}, fmt.Errorf("%w: %q", ErrUnknownRole, id)
}
