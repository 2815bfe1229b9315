// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package entity tracks local and remote DIS entities and selects
// prototypes for newly discovered remote entities.
package entity

import (
	"fmt"
	"strconv"

	"github.com/edgeo/drivers/dis/dis"
)

// Any is the match value of a wildcard node
const Any = -1

// Prototype names the template instantiated for a remote entity
type Prototype string

// Node is one classification level in the matcher tree.
// The root stands above the kind level; its children match kind values.
type Node struct {
	Value     int
	Label     string
	Prototype Prototype
	Children  []*Node
}

// NewNode creates a node
func NewNode(value int, label string, proto Prototype, children ...*Node) *Node {
	return &Node{
		Value:     value,
		Label:     label,
		Prototype: proto,
		Children:  children,
	}
}

// Add appends children and returns n
func (n *Node) Add(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

// IsWildcard reports whether n matches any value
func (n *Node) IsWildcard() bool {
	return n.Value == Any
}

// ValueString renders the match value, "*" for a wildcard
func (n *Node) ValueString() string {
	if n.IsWildcard() {
		return "*"
	}
	return strconv.Itoa(n.Value)
}

// child selects the exact child for v, else the first wildcard child
func (n *Node) child(v int) *Node {
	var wildcard *Node
	for _, c := range n.Children {
		if c.Value == v && !c.IsWildcard() {
			return c
		}
		if c.IsWildcard() && wildcard == nil {
			wildcard = c
		}
	}
	return wildcard
}

// Walk visits n and its descendants depth first; depth 0 is n itself
func (n *Node) Walk(fn func(depth int, node *Node)) {
	n.walk(0, fn)
}

func (n *Node) walk(depth int, fn func(int, *Node)) {
	fn(depth, n)
	for _, c := range n.Children {
		c.walk(depth+1, fn)
	}
}

// Validate checks sibling uniqueness and depth
func (n *Node) Validate() error {
	return n.validate(0, "root")
}

func (n *Node) validate(depth int, path string) error {
	if depth > dis.EntityTypeLevels {
		return fmt.Errorf("%w: %s is deeper than %d levels", ErrInvalidMatcher, path, dis.EntityTypeLevels)
	}
	if depth > 0 && n.Value < Any {
		return fmt.Errorf("%w: %s has negative value %d", ErrInvalidMatcher, path, n.Value)
	}

	seen := make(map[int]bool, len(n.Children))
	for _, c := range n.Children {
		if c == nil {
			return fmt.Errorf("%w: %s has a nil child", ErrInvalidMatcher, path)
		}
		childPath := path + "/" + c.ValueString()
		if seen[c.Value] {
			if c.IsWildcard() {
				return fmt.Errorf("%w: %s has more than one wildcard child", ErrInvalidMatcher, path)
			}
			return fmt.Errorf("%w: %s has duplicate value %d", ErrInvalidMatcher, path, c.Value)
		}
		seen[c.Value] = true
		if err := c.validate(depth+1, childPath); err != nil {
			return err
		}
	}
	return nil
}

// Resolution is the outcome of a match
type Resolution struct {
	Prototype Prototype
	// Path holds every node visited, root first.
	Path []*Node
	// Depth is the index in Path of the node that supplied Prototype, -1 if none.
	Depth int
}

// Found reports whether a prototype was selected
func (r Resolution) Found() bool {
	return r.Depth >= 0
}

// Matcher selects the most specific prototype for an entity type.
// Lookups never mutate the tree; Replace swaps it wholesale and must
// not run concurrently with lookups.
type Matcher struct {
	root *Node
}

// NewMatcher creates a matcher over root; nil yields an empty tree
func NewMatcher(root *Node) *Matcher {
	if root == nil {
		root = &Node{Label: "root"}
	}
	return &Matcher{root: root}
}

// Root returns the tree root
func (m *Matcher) Root() *Node {
	return m.root
}

// Replace installs a new tree
func (m *Matcher) Replace(root *Node) error {
	if root == nil {
		return fmt.Errorf("%w: nil root", ErrInvalidMatcher)
	}
	if err := root.Validate(); err != nil {
		return err
	}
	m.root = root
	return nil
}

// Resolve descends level by level, preferring exact values over wildcards.
// Descent stops at the first level with no candidate; the deepest visited
// node carrying a prototype wins.
func (m *Matcher) Resolve(levels []int) Resolution {
	if len(levels) > dis.EntityTypeLevels {
		levels = levels[:dis.EntityTypeLevels]
	}

	res := Resolution{Depth: -1}
	node := m.root
	res.Path = append(res.Path, node)
	if node.Prototype != "" {
		res.Prototype = node.Prototype
		res.Depth = 0
	}

	for _, v := range levels {
		node = node.child(v)
		if node == nil {
			break
		}
		res.Path = append(res.Path, node)
		if node.Prototype != "" {
			res.Prototype = node.Prototype
			res.Depth = len(res.Path) - 1
		}
	}
	return res
}

// Match returns the best prototype for a key given as ordered level values
func (m *Matcher) Match(levels []int) (Prototype, bool) {
	res := m.Resolve(levels)
	return res.Prototype, res.Found()
}

// FindBestMatch returns the best prototype for an entity type
func (m *Matcher) FindBestMatch(t dis.EntityType) (Prototype, bool) {
	levels := t.Levels()
	return m.Match(levels[:])
}
