package store

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/aql/internal/textnorm"
)

// registerFunctions installs the AQL SQL functions on a new connection.
func registerFunctions(conn *sqlite3.SQLiteConn) error {
	funcs := []struct {
		name string
		impl any
	}{
		{"NORMALISE", sqlNormalise},
		{"UNICODE_LOWER", sqlLower},
		{"UNICODE_LIKE", sqlLike},
		{"REGEXP", sqlRegexp},
	}
	for _, f := range funcs {
		if err := conn.RegisterFunc(f.name, f.impl, true); err != nil {
			return fmt.Errorf("register %s: %w", f.name, err)
		}
	}
	return nil
}

// sqlText reads a function argument as text. NULL arrives as a nil byte
// slice.
func sqlText(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case []byte:
		if val == nil {
			return "", false
		}
		return string(val), true
	default:
		return fmt.Sprint(val), true
	}
}

func sqlNormalise(v any) any {
	s, ok := sqlText(v)
	if !ok {
		return nil
	}
	return textnorm.Normalise(s)
}

func sqlLower(v any) any {
	s, ok := sqlText(v)
	if !ok {
		return nil
	}
	return textnorm.Lower(s)
}

func sqlLike(pattern, value any) any {
	p, ok := sqlText(pattern)
	if !ok {
		return nil
	}
	s, ok := sqlText(value)
	if !ok {
		return nil
	}
	return textnorm.Like(p, s)
}

var (
	regexpMu    sync.Mutex
	regexpCache = map[string]*regexp.Regexp{}
)

func sqlRegexp(pattern, value any) (any, error) {
	p, ok := sqlText(pattern)
	if !ok {
		return nil, nil
	}
	s, ok := sqlText(value)
	if !ok {
		return nil, nil
	}

	regexpMu.Lock()
	re, cached := regexpCache[p]
	if !cached {
		var err error
		re, err = regexp.Compile(p)
		if err != nil {
			regexpMu.Unlock()
			return nil, fmt.Errorf("REGEXP: %w", err)
		}
		if len(regexpCache) >= 256 {
			clear(regexpCache)
		}
		regexpCache[p] = re
	}
	regexpMu.Unlock()

	return re.MatchString(s), nil
}
