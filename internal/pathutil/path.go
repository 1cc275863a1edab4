// Package pathutil normalises the slash-separated paths that containers use
// to name each other and their resource files.
package pathutil

import "strings"

// archivePrefix marks paths inside a loaded bundle.
const archivePrefix = "archive:/"

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	// Remove trailing slash if present
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}

// Key returns the lookup key for a container or resource name: its base
// name, lowercased. External references and stream paths record names with
// differing directories and case; loaded sources are matched by this key.
func Key(path string) string {
	path = strings.TrimPrefix(path, archivePrefix)
	return strings.ToLower(Base(path))
}

// IsResource reports whether name is a raw resource file that carries
// streamed payload data rather than serialized objects.
func IsResource(name string) bool {
	ext := strings.ToLower(name)
	return strings.HasSuffix(ext, ".ress") || strings.HasSuffix(ext, ".resource")
}

// ContainsFold reports whether substr occurs in s, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
