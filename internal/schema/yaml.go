package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aql/internal/ir"
)

// LoadYAML parses a schema written in YAML (or JSON).
//
//	tables:
//	  transactions:
//	    id: id
//	    amount: integer
//	    category: {type: id, ref: categories}
//	views:
//	  transactions: {name: v_transactions}
//	filters:
//	  categories: [{hidden: false}]
//
// Mapping order is preserved by walking the yaml.Node tree, so fields
// keep declaration order like the CUE loader.
func LoadYAML(src []byte) (*Schema, *Config, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(src, &root); err != nil {
		return nil, nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil, &Error{Path: "tables", Message: "tables is required"}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, nil, &Error{Path: "", Message: "schema document must be a mapping"}
	}

	var tablesNode, viewsNode, filtersNode *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		switch key.Value {
		case "tables":
			tablesNode = value
		case "views":
			viewsNode = value
		case "filters":
			filtersNode = value
		default:
			return nil, nil, &Error{Path: key.Value, Message: fmt.Sprintf("unknown key at line %d", key.Line)}
		}
	}
	if tablesNode == nil {
		return nil, nil, &Error{Path: "tables", Message: "tables is required"}
	}
	if tablesNode.Kind != yaml.MappingNode {
		return nil, nil, &Error{Path: "tables", Message: "tables must be a mapping"}
	}

	var tables []*Table
	for i := 0; i+1 < len(tablesNode.Content); i += 2 {
		name, body := tablesNode.Content[i].Value, tablesNode.Content[i+1]
		table, err := parseYAMLTable(name, body)
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, table)
	}

	s, err := New(tables...)
	if err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	if viewsNode != nil {
		if err := viewsNode.Decode(&cfg.Views); err != nil {
			return nil, nil, &Error{Path: "views", Message: err.Error()}
		}
	}
	if filtersNode != nil {
		if err := filtersNode.Decode(&cfg.Filters); err != nil {
			return nil, nil, &Error{Path: "filters", Message: err.Error()}
		}
	}
	if err := cfg.Validate(s); err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

type yamlField struct {
	Type      string `yaml:"type"`
	Ref       string `yaml:"ref"`
	Tombstone bool   `yaml:"tombstone"`
}

func parseYAMLTable(name string, node *yaml.Node) (*Table, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &Error{Path: name, Message: fmt.Sprintf("table must be a mapping (line %d)", node.Line)}
	}

	var fields []Field
	for i := 0; i+1 < len(node.Content); i += 2 {
		fieldName, body := node.Content[i].Value, node.Content[i+1]
		path := name + "." + fieldName

		var spec yamlField
		switch body.Kind {
		case yaml.ScalarNode:
			spec.Type = body.Value
		case yaml.MappingNode:
			if err := decodeYAMLField(body, &spec); err != nil {
				return nil, &Error{Path: path, Message: err.Error()}
			}
		default:
			return nil, &Error{Path: path, Message: fmt.Sprintf("field must be a type name or a mapping (line %d)", body.Line)}
		}

		t, err := ir.ParseSchemaType(spec.Type)
		if err != nil {
			return nil, &Error{Path: path, Message: err.Error()}
		}
		fields = append(fields, Field{Name: fieldName, Type: t, Ref: spec.Ref, Tombstone: spec.Tombstone})
	}
	return NewTable(name, fields...), nil
}

// decodeYAMLField rejects unknown keys so typos like "tombstne" fail.
func decodeYAMLField(node *yaml.Node, spec *yamlField) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch key := node.Content[i].Value; key {
		case "type", "ref", "tombstone":
		default:
			return fmt.Errorf("line %d: unknown field attribute %q", node.Content[i].Line, key)
		}
	}
	return node.Decode(spec)
}

// LoadFile loads a schema by file extension: .cue, or .yaml/.yml/.json.
// A directory is loaded as a CUE package.
func LoadFile(path string) (*Schema, *Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read schema: %w", err)
	}
	if info.IsDir() {
		return LoadCUEDir(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read schema: %w", err)
	}

	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUE(path, data)
	case ".yaml", ".yml", ".json":
		return LoadYAML(data)
	default:
		return nil, nil, fmt.Errorf("unsupported schema file extension %q", filepath.Ext(path))
	}
}
