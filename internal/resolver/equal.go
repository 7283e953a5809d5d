package resolver

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/MKhiriev/go-conf-sync/models"
)

type kind int

const (
	kindPrimitive kind = iota
	kindObject
	kindArray
)

func kindOf(v any) kind {
	switch v.(type) {
	case map[string]any, models.Config:
		return kindObject
	case []any:
		return kindArray
	default:
		return kindPrimitive
	}
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case models.Config:
		return map[string]any(t), true
	default:
		return nil, false
	}
}

// Equal reports whether two JSON values are structurally equal. Numbers
// compare by value regardless of their Go type.
func Equal(a, b any) bool {
	if ak, bk := kindOf(a), kindOf(b); ak != bk {
		return false
	}

	switch av := a.(type) {
	case map[string]any, models.Config:
		ao, _ := asObject(av)
		bo, _ := asObject(b)
		if len(ao) != len(bo) {
			return false
		}
		for k, v := range ao {
			w, ok := bo[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true

	case []any:
		bv := b.([]any)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}

	an, aNum := number(a)
	bn, bNum := number(b)
	if aNum || bNum {
		return aNum && bNum && an == bn
	}

	// typed slices and maps that never went through JSON
	if !reflect.ValueOf(a).Comparable() || !reflect.ValueOf(b).Comparable() {
		return reflect.DeepEqual(a, b)
	}
	return a == b
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// timestamp reads an epoch-millisecond value. RFC 3339 strings are accepted
// as well.
func timestamp(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, false
		}
		return t.UnixMilli(), true
	}
	if t, ok := v.(time.Time); ok {
		return t.UnixMilli(), true
	}

	f, ok := number(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
