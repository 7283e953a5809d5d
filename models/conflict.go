package models

// ConflictType classifies a disagreement found by the conflict resolver.
type ConflictType string

const (
	ConflictModifiedBoth  ConflictType = "modified-both"
	ConflictDeletedLocal  ConflictType = "deleted-local"
	ConflictDeletedRemote ConflictType = "deleted-remote"
	ConflictTypeChange    ConflictType = "type-change"
	ConflictArrayDiverged ConflictType = "array-diverged"
)

// Resolution records which value was chosen for a conflict.
type Resolution string

const (
	ResolutionLocal  Resolution = "local"
	ResolutionRemote Resolution = "remote"
	ResolutionUnion  Resolution = "union"
	// ResolutionKeep means the value that survived a one-sided deletion was
	// kept.
	ResolutionKeep Resolution = "keep"
)

// Conflict describes one differing path.
type Conflict struct {
	Path        string       `json:"path"`
	Type        ConflictType `json:"type"`
	LocalValue  any          `json:"local_value"`
	RemoteValue any          `json:"remote_value"`

	// Resolution is nil when the caller must decide.
	Resolution *Resolution `json:"resolution"`
}

// ConflictResult is the outcome of a single resolve call.
type ConflictResult struct {
	Resolved            Config     `json:"resolved"`
	Conflicts           []Conflict `json:"conflicts"`
	AutoResolvedCount   int        `json:"auto_resolved_count"`
	ManualRequiredCount int        `json:"manual_required_count"`
}

// NeedsManualResolution reports whether any conflict is left unresolved.
func (r ConflictResult) NeedsManualResolution() bool {
	for _, c := range r.Conflicts {
		if c.Resolution == nil {
			return true
		}
	}
	return false
}
