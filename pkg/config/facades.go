package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrFacadeStructure is wrapped by every malformed facade entry.
var ErrFacadeStructure = errors.New("facades array structure")

// Facade exposes a registered helper to templates under Name.
type Facade struct {
	Name string
	// Class is the key the helper was registered with.
	Class string
	// Safe marks every string result as safe HTML.
	Safe bool
	// SafeMethods marks only the listed methods as safe.
	SafeMethods []string
}

// IsSafe reports whether results of method skip autoescaping.
func (f Facade) IsSafe(method string) bool {
	return f.Safe || slices.Contains(f.SafeMethods, method)
}

// Facades keeps facades in document order.
type Facades []Facade

// UnmarshalYAML validates the facade structure while decoding so malformed
// entries are rejected before any template renders.
func (f *Facades) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("config: %w: expected a mapping of facade names (line %d)", ErrFacadeStructure, node.Line)
	}

	out := make(Facades, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		name := strings.TrimSpace(key.Value)
		if name == "" {
			return fmt.Errorf("config: %w: empty facade name (line %d)", ErrFacadeStructure, key.Line)
		}
		facade, err := decodeFacade(name, value)
		if err != nil {
			return err
		}
		out = append(out, facade)
	}
	*f = out
	return nil
}

func decodeFacade(name string, node *yaml.Node) (Facade, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("config: invalid facade %q: %w: %s", name, ErrFacadeStructure, fmt.Sprintf(format, args...))
	}

	if node.Kind != yaml.MappingNode {
		return Facade{}, invalid("expected a mapping with a \"class\" key (line %d)", node.Line)
	}

	facade := Facade{Name: name}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "class":
			if value.Kind != yaml.ScalarNode || strings.TrimSpace(value.Value) == "" {
				return Facade{}, invalid("\"class\" must be a non-empty string (line %d)", value.Line)
			}
			facade.Class = strings.TrimSpace(value.Value)
		case "is_safe":
			switch value.Kind {
			case yaml.ScalarNode:
				var safe bool
				if err := value.Decode(&safe); err != nil {
					return Facade{}, invalid("\"is_safe\" must be a boolean or a list of methods (line %d)", value.Line)
				}
				facade.Safe = safe
			case yaml.SequenceNode:
				var methods []string
				if err := value.Decode(&methods); err != nil {
					return Facade{}, invalid("\"is_safe\" methods must be strings (line %d)", value.Line)
				}
				facade.SafeMethods = methods
			default:
				return Facade{}, invalid("\"is_safe\" must be a boolean or a list of methods (line %d)", value.Line)
			}
		default:
			return Facade{}, invalid("unknown key %q (line %d)", key.Value, key.Line)
		}
	}

	if facade.Class == "" {
		return Facade{}, invalid("missing \"class\" key")
	}
	return facade, nil
}
