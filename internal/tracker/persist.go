package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/MKhiriev/go-conf-sync/models"
	"github.com/spf13/afero"
)

const (
	// QueueFileName is the persisted queue document inside the state dir.
	QueueFileName = "offline-queue.json"
	// LockFileName guards QueueFileName against a second writer process.
	LockFileName = "offline-queue.lock"
)

// queueDocument is the on-disk shape of the offline queue.
type queueDocument struct {
	Changes          []models.ChangeEntry `json:"changes"`
	LastSnapshot     models.Config        `json:"lastSnapshot"`
	LastSnapshotHash string               `json:"lastSnapshotHash"`
	SavedAt          time.Time            `json:"savedAt"`
}

// load reads the queue document. A missing file yields an empty document.
// A corrupted file is reported through errCorrupted so the caller can log
// and discard it.
func load(fsys afero.Fs, path string) (queueDocument, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return queueDocument{}, nil
	}
	if err != nil {
		return queueDocument{}, &corruptedError{err: err}
	}

	var doc queueDocument
	if err = json.Unmarshal(data, &doc); err != nil {
		return queueDocument{}, &corruptedError{err: err}
	}

	// drop entries that cannot be addressed or are duplicated
	seen := make(map[string]struct{}, len(doc.Changes))
	kept := doc.Changes[:0]
	for _, c := range doc.Changes {
		if c.ID == "" || c.Path == "" {
			continue
		}
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		kept = append(kept, c)
	}
	doc.Changes = kept

	return doc, nil
}

// save writes doc atomically: a temp file is written and renamed over the
// queue file.
func save(fsys afero.Fs, path string, doc queueDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode offline queue: %w", err)
	}

	if err = fsys.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := path + ".tmp"
	if err = afero.WriteFile(fsys, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write offline queue: %w", err)
	}
	if err = fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return fmt.Errorf("replace offline queue: %w", err)
	}

	return nil
}

type corruptedError struct {
	err error
}

func (e *corruptedError) Error() string {
	return fmt.Sprintf("offline queue file is unreadable: %v", e.err)
}

func (e *corruptedError) Unwrap() error {
	return e.err
}
