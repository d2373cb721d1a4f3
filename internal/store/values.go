package store

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/aql/internal/ir"
)

// toStorage converts a Go value to the column encoding of type t.
// Date strings must be exactly YYYY-MM-DD, YYYY-MM or YYYY; a finer value
// truncates to a coarser type ("2024-03-15" binds 202403 as a month).
//
//	date        "2024-03-15" | time.Time → 20240315
//	date-month  "2024-03"    | time.Time → 202403
//	date-year   "2024"       | time.Time → 2024
//	boolean     bool → 1 / 0
//	integer     whole float64 → int64
//
// Other values pass through unchanged. nil stays nil.
func toStorage(t ir.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if f, err := n.Float64(); err == nil {
			v = f
		}
	}

	switch t {
	case ir.TypeDate, ir.TypeDateMonth, ir.TypeDateYear:
		return dateToStorage(t, v)
	case ir.TypeBoolean:
		switch b := v.(type) {
		case bool:
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		case int, int64, float64:
			return v, nil
		}
		return nil, fmt.Errorf("expected boolean, got %T", v)
	case ir.TypeInteger:
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			return int64(f), nil
		}
	}
	return v, nil
}

var dateDigits = map[ir.Type]int{
	ir.TypeDate:      8,
	ir.TypeDateMonth: 6,
	ir.TypeDateYear:  4,
}

var dateStringRe = regexp.MustCompile(`^\d{4}(-\d{2}(-\d{2})?)?$`)

func dateToStorage(t ir.Type, v any) (any, error) {
	digits := dateDigits[t]

	var s string
	switch val := v.(type) {
	case time.Time:
		s = strconv.FormatInt(ir.DateToInt(val), 10)
	case string:
		if !dateStringRe.MatchString(val) {
			return nil, fmt.Errorf("invalid %s value %q", t, val)
		}
		s = strings.ReplaceAll(val, "-", "")
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		s = strconv.FormatInt(int64(val), 10)
	default:
		return nil, fmt.Errorf("expected %s, got %T", t, v)
	}

	if len(s) < digits || len(s) > 8 || len(s)%2 != 0 {
		return nil, fmt.Errorf("invalid %s value %v", t, v)
	}
	n, err := strconv.ParseInt(s[:digits], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %v", t, v)
	}
	return n, nil
}

// fromStorage converts a scanned column to its public form.
func fromStorage(t ir.Type, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}

	switch t {
	case ir.TypeDate, ir.TypeDateMonth, ir.TypeDateYear:
		n, ok := v.(int64)
		if !ok {
			return v
		}
		return formatDate(t, n)
	case ir.TypeBoolean:
		if n, ok := v.(int64); ok {
			return n != 0
		}
	}
	return v
}

// formatDate renders an integer-encoded date: 20240315 → "2024-03-15",
// 202403 → "2024-03", 2024 → "2024".
func formatDate(t ir.Type, n int64) string {
	s := fmt.Sprintf("%0*d", dateDigits[t], n)
	switch t {
	case ir.TypeDate:
		return s[:4] + "-" + s[4:6] + "-" + s[6:]
	case ir.TypeDateMonth:
		return s[:4] + "-" + s[4:]
	}
	return s
}
