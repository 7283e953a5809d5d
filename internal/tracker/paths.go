package tracker

import (
	"fmt"

	"github.com/MKhiriev/go-conf-sync/models"
)

func splitPath(path string) ([]string, error) {
	if path == models.RootPath {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	parts, ok := models.SplitPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return parts, nil
}

// setPath stores value at path, creating or overwriting intermediate
// objects as needed.
func setPath(root map[string]any, path string, value any) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	node := root
	for _, key := range parts[:len(parts)-1] {
		next, ok := asObject(node[key])
		if !ok {
			next = make(map[string]any)
			node[key] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = models.CloneValue(value)
	return nil
}

// deletePath removes the key at path. Missing intermediate objects are not
// an error.
func deletePath(root map[string]any, path string) error {
	parts, err := splitPath(path)
	if err != nil {
		return err
	}

	node := root
	for _, key := range parts[:len(parts)-1] {
		next, ok := asObject(node[key])
		if !ok {
			return nil
		}
		node = next
	}
	delete(node, parts[len(parts)-1])
	return nil
}
