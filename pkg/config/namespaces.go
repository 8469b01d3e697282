package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Namespace maps a logical name to its ordered search roots.
type Namespace struct {
	Name  string
	Paths []string
}

// Namespaces keeps namespaces in the order they appear in the document.
type Namespaces []Namespace

// Lookup returns the roots registered for name.
func (n Namespaces) Lookup(name string) ([]string, bool) {
	for _, ns := range n {
		if ns.Name == name {
			return ns.Paths, true
		}
	}
	return nil, false
}

// UnmarshalYAML accepts either a sequence of roots for the main namespace
// or a mapping of namespace names to a root or a list of roots.
func (n *Namespaces) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		paths, err := decodePaths(MainNamespace, node)
		if err != nil {
			return err
		}
		*n = Namespaces{{Name: MainNamespace, Paths: paths}}
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("config: paths must be a mapping or a list (line %d)", node.Line)
	}

	out := make(Namespaces, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		name := strings.TrimSpace(key.Value)
		if name == "" {
			return fmt.Errorf("config: empty namespace name (line %d)", key.Line)
		}
		paths, err := decodePaths(name, value)
		if err != nil {
			return err
		}
		out = append(out, Namespace{Name: name, Paths: paths})
	}
	*n = out
	return nil
}

func decodePaths(namespace string, node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		path := strings.TrimSpace(node.Value)
		if path == "" {
			return nil, fmt.Errorf("config: namespace %q has an empty path (line %d)", namespace, node.Line)
		}
		return []string{path}, nil
	case yaml.SequenceNode:
		paths := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("config: namespace %q paths must be strings (line %d)", namespace, item.Line)
			}
			path := strings.TrimSpace(item.Value)
			if path == "" {
				return nil, fmt.Errorf("config: namespace %q has an empty path (line %d)", namespace, item.Line)
			}
			paths = append(paths, path)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("config: namespace %q paths must be a string or a list (line %d)", namespace, node.Line)
	}
}
