// Package yml walks decoded YAML documents without binding them to a struct.
package yml

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type (
	Node yaml.Node
)

// Parse decodes data and returns its top level node; an empty document
// yields an empty mapping.
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return &Node{Kind: yaml.MappingNode}, nil
		}
		return (*Node)(doc.Content[0]), nil
	}
	return (*Node)(&doc), nil
}

// Lookup returns the value node for key in a mapping, matched case
// insensitively, or nil.
func (n *Node) Lookup(name string) *Node {
	if n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if strings.EqualFold(n.Content[i].Value, name) {
			return (*Node)(n.Content[i+1])
		}
	}
	return nil
}

func (n *Node) Pairs(callback func(key string, node *Node) error) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping at line %d", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		value := n.Content[i+1]
		if err := callback(key, (*Node)(value)); err != nil {
			return err
		}
	}
	return nil
}

// Scalar returns the raw value of a scalar node.
func (n *Node) Scalar() (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("line %d: expected scalar value", n.Line)
	}
	return n.Value, nil
}
