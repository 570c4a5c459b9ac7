// Package yml walks decoded YAML documents in source order.
package yml

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	Node yaml.Node
)

// Root returns the top level value of a document node.
func (n *Node) Root() *Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return (*Node)(n.Content[0])
	}
	return n
}

// IsMap reports whether n is a mapping.
func (n *Node) IsMap() bool {
	return n.Kind == yaml.MappingNode
}

// IsSeq reports whether n is a sequence.
func (n *Node) IsSeq() bool {
	return n.Kind == yaml.SequenceNode
}

// Lookup returns the value of key in a mapping, or nil.
func (n *Node) Lookup(key string) *Node {
	if !n.IsMap() {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

// Items visits sequence items in order.
func (n *Node) Items(callback func(index int, node *Node) error) error {
	if !n.IsSeq() {
		return n.Errorf("expected a sequence")
	}
	for i, item := range n.Content {
		if err := callback(i, (*Node)(item)); err != nil {
			return err
		}
	}
	return nil
}

// Pairs visits mapping entries in document order.
func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	if !n.IsMap() {
		return n.Errorf("expected a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := callback(n.Content[i].Value, (*Node)(n.Content[i+1])); err != nil {
			return err
		}
	}
	return nil
}

// Decode decodes n into target.
func (n *Node) Decode(target interface{}) error {
	if err := (*yaml.Node)(n).Decode(target); err != nil {
		return n.Errorf("%v", err)
	}
	return nil
}

// Errorf prefixes an error with the source line of n.
func (n *Node) Errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", n.Line, fmt.Sprintf(format, args...))
}
