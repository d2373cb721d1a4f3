package schema

import (
	"encoding/json"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/aql/internal/ir"
)

// LoadCUE parses a schema written in CUE.
//
//	tables: {
//		transactions: {
//			id:        "id"
//			amount:    "integer"
//			category:  {type: "id", ref: "categories"}
//			tombstone: "boolean"
//		}
//		categories: {
//			id:   "id"
//			name: "string"
//		}
//	}
//	views: transactions: {name: "v_transactions", fields: amount: "amt"}
//	filters: categories: [{hidden: false}]
//
// Tables and fields keep declaration order. A field is either a type name
// or a struct with type, and optional ref and tombstone.
func LoadCUE(filename string, src []byte) (*Schema, *Config, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, nil, formatCUEError(err)
	}
	return FromCUE(v)
}

// LoadCUEDir loads every CUE file of the package in dir.
func LoadCUEDir(dir string) (*Schema, *Config, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, nil, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, nil, formatCUEError(err)
	}
	return FromCUE(v)
}

// FromCUE reads a schema and config from an evaluated CUE value.
func FromCUE(v cue.Value) (*Schema, *Config, error) {
	tablesVal := v.LookupPath(cue.ParsePath("tables"))
	if !tablesVal.Exists() {
		return nil, nil, &Error{Path: "tables", Message: "tables is required", Pos: v.Pos()}
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}

	var tables []*Table
	for iter.Next() {
		table, err := parseCUETable(iter.Label(), iter.Value())
		if err != nil {
			return nil, nil, err
		}
		tables = append(tables, table)
	}

	s, err := New(tables...)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := parseCUEConfig(v)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(s); err != nil {
		return nil, nil, err
	}
	return s, cfg, nil
}

func parseCUETable(name string, v cue.Value) (*Table, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []Field
	for iter.Next() {
		field, err := parseCUEField(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return NewTable(name, fields...), nil
}

func parseCUEField(name string, v cue.Value) (Field, error) {
	field := Field{Name: name}

	// Shorthand: amount: "integer"
	if typeName, err := v.String(); err == nil {
		t, err := ir.ParseSchemaType(typeName)
		if err != nil {
			return Field{}, &Error{Path: name, Message: err.Error(), Pos: v.Pos()}
		}
		field.Type = t
		return field, nil
	}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return Field{}, &Error{Path: name, Message: "field must be a type name or a struct with a type", Pos: v.Pos()}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return Field{}, formatCUEError(err)
	}
	t, err := ir.ParseSchemaType(typeName)
	if err != nil {
		return Field{}, &Error{Path: name + ".type", Message: err.Error(), Pos: typeVal.Pos()}
	}
	field.Type = t

	if refVal := v.LookupPath(cue.ParsePath("ref")); refVal.Exists() {
		ref, err := refVal.String()
		if err != nil {
			return Field{}, formatCUEError(err)
		}
		field.Ref = ref
	}

	if tombVal := v.LookupPath(cue.ParsePath("tombstone")); tombVal.Exists() {
		tomb, err := tombVal.Bool()
		if err != nil {
			return Field{}, formatCUEError(err)
		}
		field.Tombstone = tomb
	}

	return field, nil
}

func parseCUEConfig(v cue.Value) (*Config, error) {
	cfg := &Config{}

	if viewsVal := v.LookupPath(cue.ParsePath("views")); viewsVal.Exists() {
		var views map[string]View
		if err := decodeCUE(viewsVal, &views); err != nil {
			return nil, err
		}
		cfg.Views = views
	}

	if filtersVal := v.LookupPath(cue.ParsePath("filters")); filtersVal.Exists() {
		var filters map[string][]any
		if err := decodeCUE(filtersVal, &filters); err != nil {
			return nil, err
		}
		cfg.Filters = filters
	}

	return cfg, nil
}

// decodeCUE goes through JSON so filter values arrive in the same shapes
// as a decoded JSON query.
func decodeCUE(v cue.Value, out any) error {
	data, err := v.MarshalJSON()
	if err != nil {
		return formatCUEError(err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Path: v.Path().String(), Message: err.Error(), Pos: v.Pos()}
	}
	return nil
}
