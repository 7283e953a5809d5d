package tracker

import (
	"bytes"
	"sort"

	"github.com/MKhiriev/go-conf-sync/models"
)

// diff walks previous and current and reports per-path changes. Nested
// objects are recursed into; arrays and primitives are compared atomically
// by their serialized form.
func diff(prefix string, previous, current map[string]any, emit func(models.ChangeType, string, any)) {
	for _, key := range sortedKeys(previous, current) {
		path := models.JoinPath(prefix, key)
		prev, inPrev := previous[key]
		cur, inCur := current[key]

		switch {
		case inCur && !inPrev:
			emit(models.ChangeCreate, path, cur)
		case inPrev && !inCur:
			emit(models.ChangeDelete, path, nil)
		default:
			prevObj, prevIsObj := asObject(prev)
			curObj, curIsObj := asObject(cur)
			if prevIsObj && curIsObj {
				diff(path, prevObj, curObj, emit)
				continue
			}
			if !sameValue(prev, cur) {
				emit(models.ChangeUpdate, path, cur)
			}
		}
	}
}

func sameValue(a, b any) bool {
	ab, errA := models.MarshalValue(a)
	bb, errB := models.MarshalValue(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ab, bb)
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

func sortedKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for _, m := range []map[string]any{a, b} {
		for k := range m {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
