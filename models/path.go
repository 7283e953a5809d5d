package models

import "strings"

// JoinPath appends key to a dot-separated path. Dots, backslashes and
// dollar signs inside key are escaped with a backslash, so every key
// survives a round trip through [SplitPath].
func JoinPath(prefix, key string) string {
	key = escapeKey(key)
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func escapeKey(key string) string {
	if !strings.ContainsAny(key, `.\$`) {
		return key
	}
	var b strings.Builder
	b.Grow(len(key) + 2)
	for _, r := range key {
		switch r {
		case '.', '\\', '$':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SplitPath breaks a path built by [JoinPath] into its keys. It reports
// false for empty paths, empty segments and a dangling escape.
func SplitPath(path string) ([]string, bool) {
	if path == "" {
		return nil, false
	}

	var (
		parts   []string
		cur     strings.Builder
		escaped bool
	)
	for _, r := range path {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '.':
			if cur.Len() == 0 {
				return nil, false
			}
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped || cur.Len() == 0 {
		return nil, false
	}
	return append(parts, cur.String()), true
}
