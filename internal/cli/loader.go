package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/schema"
)

// LoadError is a load failure carrying the code reported to the user.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// configFile is the standalone form of schema.Config accepted by --config.
type configFile struct {
	Views   map[string]schema.View `yaml:"views"`
	Filters map[string][]any       `yaml:"filters"`
}

// loadSchema loads a schema and its configuration. When configPath is set
// it replaces whatever configuration the schema file carried.
func loadSchema(schemaPath, configPath string) (*schema.Schema, *schema.Config, error) {
	if schemaPath == "" {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: "no schema given (use --schema or AQL_SCHEMA)"}
	}
	if _, err := os.Stat(schemaPath); errors.Is(err, os.ErrNotExist) {
		return nil, nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", schemaPath)}
	}

	s, cfg, err := schema.LoadFile(schemaPath)
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeSchema, Message: "failed to load schema", Err: err}
	}
	if configPath == "" {
		return s, cfg, nil
	}

	cfg, err = loadConfigFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(s); err != nil {
		return nil, nil, &LoadError{Code: ErrCodeSchema, Message: "invalid config", Err: err}
	}
	return s, cfg, nil
}

func loadConfigFile(path string) (*schema.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeGeneric, Message: "failed to read config", Err: err}
	}
	defer f.Close()

	var doc configFile
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, &LoadError{Code: ErrCodeSchema, Message: "failed to parse config", Err: err}
	}
	return &schema.Config{Views: doc.Views, Filters: doc.Filters}, nil
}

// loadQuery reads a YAML or JSON query document. "-" reads stdin.
func loadQuery(path string, stdin io.Reader) (queryir.Query, error) {
	if path == "" {
		return queryir.Query{}, &LoadError{Code: ErrCodeNotFound, Message: "no query given (use --query)"}
	}

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return queryir.Query{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("query not found: %s", path)}
			}
			return queryir.Query{}, &LoadError{Code: ErrCodeGeneric, Message: "failed to read query", Err: err}
		}
		defer f.Close()
		r = f
	}

	q, err := queryir.DecodeQuery(r)
	if err != nil {
		return queryir.Query{}, &LoadError{Code: ErrCodeQuery, Message: "invalid query", Err: err}
	}
	return q, nil
}

// parseParams turns name=value flags into parameter values. Values are
// read as YAML scalars, so 42, true and null keep their type; anything
// else is a string.
func parseParams(flags []string) (map[string]any, error) {
	params := make(map[string]any, len(flags))
	for _, flag := range flags {
		name, raw, ok := strings.Cut(flag, "=")
		if !ok || name == "" {
			return nil, &LoadError{Code: ErrCodeBadParam, Message: fmt.Sprintf("invalid --param %q: expected name=value", flag)}
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		switch value.(type) {
		case map[string]any, []any:
			value = raw
		}
		params[name] = value
	}
	return params, nil
}

// loadErrorCode returns the user-facing code of a loader error.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
