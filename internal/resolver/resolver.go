// Package resolver reconciles two configuration trees (optionally with their
// common ancestor) into one, reporting every disagreement it finds.
//
// Resolve is a pure function: it never mutates its inputs and keeps no state
// between calls.
package resolver

import (
	"sort"

	"github.com/MKhiriev/go-conf-sync/models"
)

// Strategy selects how Resolve reconciles the two sides.
type Strategy string

const (
	// StrategyRemoteWins returns the remote tree unchanged.
	StrategyRemoteWins Strategy = "remote-wins"

	// StrategyLocalWins returns the local tree unchanged.
	StrategyLocalWins Strategy = "local-wins"

	// StrategyMostRecent returns whichever tree carries the newer
	// lastModified timestamp. Ties go to remote.
	StrategyMostRecent Strategy = "most-recent"

	// StrategyAuto walks both trees and resolves every conflict with the
	// default rules.
	StrategyAuto Strategy = "auto"

	// StrategyMerge is StrategyAuto with arrays always unioned.
	StrategyMerge Strategy = "merge"

	// StrategyManual walks both trees, merges non-conflicting keys and
	// leaves every conflict unresolved.
	StrategyManual Strategy = "manual"
)

// IsValid returns true if the strategy is recognized.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyRemoteWins, StrategyLocalWins, StrategyMostRecent, StrategyAuto, StrategyMerge, StrategyManual:
		return true
	default:
		return false
	}
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// ArrayMergePolicy decides how diverged arrays are auto-resolved.
type ArrayMergePolicy string

const (
	// ArrayUnion concatenates local and remote and drops duplicates.
	ArrayUnion ArrayMergePolicy = "union"
	// ArrayLocal keeps the local array.
	ArrayLocal ArrayMergePolicy = "local"
	// ArrayRemote keeps the remote array.
	ArrayRemote ArrayMergePolicy = "remote"
)

// IsValid returns true if the policy is recognized.
func (p ArrayMergePolicy) IsValid() bool {
	switch p {
	case ArrayUnion, ArrayLocal, ArrayRemote:
		return true
	default:
		return false
	}
}

// Options configure a Resolve call.
type Options struct {
	Strategy   Strategy
	ArrayMerge ArrayMergePolicy

	// TimestampField is the key compared by StrategyMostRecent.
	TimestampField string
}

// DefaultOptions returns auto resolution with union array merging.
func DefaultOptions() Options {
	return Options{
		Strategy:       StrategyAuto,
		ArrayMerge:     ArrayUnion,
		TimestampField: models.LastModifiedField,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Strategy == "" {
		o.Strategy = d.Strategy
	}
	if o.ArrayMerge == "" {
		o.ArrayMerge = d.ArrayMerge
	}
	if o.TimestampField == "" {
		o.TimestampField = d.TimestampField
	}
	return o
}

// Resolve reconciles local and remote. base is the common ancestor and may be
// nil; when present it is used to tell one-sided edits and deletions apart
// from concurrent ones.
//
// Under the walking strategies the resolved tree contains every key present
// in either input. Deleted-local and deleted-remote conflicts keep the
// surviving value.
func Resolve(local, remote, base models.Config, opts Options) models.ConflictResult {
	opts = opts.withDefaults()

	switch opts.Strategy {
	case StrategyRemoteWins:
		return wholeResult(pick(remote, local))
	case StrategyLocalWins:
		return wholeResult(pick(local, remote))
	case StrategyMostRecent:
		return wholeResult(mostRecent(local, remote, opts.TimestampField))
	}

	w := &walker{
		manual:     opts.Strategy == StrategyManual,
		arrayMerge: opts.ArrayMerge,
	}
	if opts.Strategy == StrategyMerge {
		w.arrayMerge = ArrayUnion
	}

	resolved := w.mergeObjects("", local, remote, base)

	result := models.ConflictResult{
		Resolved:  models.Config(resolved),
		Conflicts: w.conflicts,
	}
	if result.Conflicts == nil {
		result.Conflicts = []models.Conflict{}
	}
	for _, c := range result.Conflicts {
		if c.Resolution == nil {
			result.ManualRequiredCount++
		} else {
			result.AutoResolvedCount++
		}
	}

	return result
}

func wholeResult(c models.Config) models.ConflictResult {
	return models.ConflictResult{
		Resolved:  c.Clone(),
		Conflicts: []models.Conflict{},
	}
}

// pick returns preferred unless it is nil.
func pick(preferred, fallback models.Config) models.Config {
	if preferred == nil {
		return fallback
	}
	return preferred
}

func mostRecent(local, remote models.Config, field string) models.Config {
	if local == nil {
		return remote
	}
	if remote == nil {
		return local
	}

	lt, _ := timestamp(local[field])
	rt, _ := timestamp(remote[field])
	if lt > rt {
		return local
	}
	return remote
}

type walker struct {
	manual     bool
	arrayMerge ArrayMergePolicy
	conflicts  []models.Conflict
}

func (w *walker) mergeObjects(prefix string, local, remote, base map[string]any) map[string]any {
	out := make(map[string]any, len(local)+len(remote))

	for _, key := range unionKeys(local, remote) {
		path := models.JoinPath(prefix, key)

		lv, inLocal := local[key]
		rv, inRemote := remote[key]
		bv, inBase := base[key]

		switch {
		case !inLocal && !inRemote:
			continue

		case inLocal && !inRemote:
			out[key] = models.CloneValue(lv)
			if inBase {
				w.record(path, models.ConflictDeletedRemote, lv, nil, models.ResolutionKeep)
			}

		case !inLocal && inRemote:
			out[key] = models.CloneValue(rv)
			if inBase {
				w.record(path, models.ConflictDeletedLocal, nil, rv, models.ResolutionKeep)
			}

		case Equal(lv, rv):
			out[key] = models.CloneValue(lv)

		case inBase && Equal(lv, bv):
			// only remote changed
			out[key] = models.CloneValue(rv)

		case inBase && Equal(rv, bv):
			// only local changed
			out[key] = models.CloneValue(lv)

		default:
			out[key] = w.mergeValues(path, lv, rv, bv)
		}
	}

	return out
}

func (w *walker) mergeValues(path string, lv, rv, bv any) any {
	lk, rk := kindOf(lv), kindOf(rv)

	if lk != rk {
		w.record(path, models.ConflictTypeChange, lv, rv, models.ResolutionRemote)
		return models.CloneValue(rv)
	}

	switch lk {
	case kindObject:
		baseObj, _ := asObject(bv)
		lo, _ := asObject(lv)
		ro, _ := asObject(rv)
		return w.mergeObjects(path, lo, ro, baseObj)

	case kindArray:
		la, _ := lv.([]any)
		ra, _ := rv.([]any)
		switch w.arrayMerge {
		case ArrayLocal:
			w.record(path, models.ConflictArrayDiverged, lv, rv, models.ResolutionLocal)
			return models.CloneValue(la)
		case ArrayRemote:
			w.record(path, models.ConflictArrayDiverged, lv, rv, models.ResolutionRemote)
			return models.CloneValue(ra)
		default:
			w.record(path, models.ConflictArrayDiverged, lv, rv, models.ResolutionUnion)
			return unionArrays(la, ra)
		}

	default:
		w.record(path, models.ConflictModifiedBoth, lv, rv, models.ResolutionRemote)
		return models.CloneValue(rv)
	}
}

// record appends a conflict. In manual mode the resolution is dropped so the
// caller decides; the resolved tree still holds the provisional value.
func (w *walker) record(path string, typ models.ConflictType, local, remote any, resolution models.Resolution) {
	c := models.Conflict{
		Path:        path,
		Type:        typ,
		LocalValue:  models.CloneValue(local),
		RemoteValue: models.CloneValue(remote),
	}
	if !w.manual {
		r := resolution
		c.Resolution = &r
	}
	w.conflicts = append(w.conflicts, c)
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, m := range []map[string]any{a, b} {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func unionArrays(local, remote []any) []any {
	out := make([]any, 0, len(local)+len(remote))
	for _, src := range [][]any{local, remote} {
		for _, v := range src {
			if containsValue(out, v) {
				continue
			}
			out = append(out, models.CloneValue(v))
		}
	}
	return out
}

func containsValue(values []any, v any) bool {
	for _, existing := range values {
		if Equal(existing, v) {
			return true
		}
	}
	return false
}
