package entity

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// NodeConfig is the file form of a matcher node. YAML:
//
//	label: root
//	prototype: generic
//	children:
//	  - value: 1
//	    label: platform
//	    children:
//	      - value: any
//	        prototype: vehicle
//
// or the same tree in TOML using [[children]] tables.
type NodeConfig struct {
	Value     MatchValue   `yaml:"value" toml:"value"`
	Label     string       `yaml:"label" toml:"label"`
	Prototype string       `yaml:"prototype" toml:"prototype"`
	Children  []NodeConfig `yaml:"children" toml:"children"`
}

// MatchValue is an integer code or the wildcard ("any" or "*")
type MatchValue struct {
	Value int
	Set   bool
}

// UnmarshalYAML implements yaml.Unmarshaler
func (v *MatchValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: match value must be a scalar", node.Line)
	}
	if err := v.set(node.Value); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

// UnmarshalTOML implements toml.Unmarshaler
func (v *MatchValue) UnmarshalTOML(data interface{}) error {
	switch x := data.(type) {
	case int64:
		return v.set(strconv.FormatInt(x, 10))
	case string:
		return v.set(x)
	default:
		return fmt.Errorf("match value %v: want an integer or \"any\"", data)
	}
}

func (v *MatchValue) set(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any", "*":
		v.Value = Any
	default:
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("match value %q: want an integer or \"any\"", s)
		}
		if n < 0 {
			return fmt.Errorf("match value %d is negative", n)
		}
		v.Value = n
	}
	v.Set = true
	return nil
}

// Build converts the configuration into a node tree; c is the root
func (c NodeConfig) Build() (*Node, error) {
	return c.build(true)
}

func (c NodeConfig) build(root bool) (*Node, error) {
	if !root && !c.Value.Set {
		return nil, fmt.Errorf("%w: node %q has no value", ErrInvalidMatcher, c.Label)
	}
	n := &Node{
		Value:     c.Value.Value,
		Label:     c.Label,
		Prototype: Prototype(c.Prototype),
	}
	for _, cc := range c.Children {
		child, err := cc.build(false)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, nil
}

// ParseMatcher builds a validated matcher from YAML
func ParseMatcher(data []byte) (*Matcher, error) {
	root, err := parseTree(data, yaml.Unmarshal)
	if err != nil {
		return nil, err
	}
	return NewMatcher(root), nil
}

// ParseMatcherTOML builds a validated matcher from TOML
func ParseMatcherTOML(data []byte) (*Matcher, error) {
	root, err := parseTree(data, toml.Unmarshal)
	if err != nil {
		return nil, err
	}
	return NewMatcher(root), nil
}

// LoadMatcher reads a matcher file. Files ending in .toml are parsed as
// TOML, anything else as YAML.
func LoadMatcher(path string) (*Matcher, error) {
	root, err := loadTree(path)
	if err != nil {
		return nil, err
	}
	return NewMatcher(root), nil
}

// Reload rebuilds the tree from a matcher file; the old tree stays in place on error
func (m *Matcher) Reload(path string) error {
	root, err := loadTree(path)
	if err != nil {
		return err
	}
	return m.Replace(root)
}

func loadTree(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matcher config: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return parseTree(data, toml.Unmarshal)
	}
	return parseTree(data, yaml.Unmarshal)
}

func parseTree(data []byte, unmarshal func([]byte, interface{}) error) (*Node, error) {
	var cfg NodeConfig
	if err := unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing matcher config: %w", err)
	}
	root, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return root, nil
}
