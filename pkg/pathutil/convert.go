// Package pathutil converts between the absolute paths the index keeps and
// the project relative paths shown to users.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails, the path is already
// relative or it lies outside the root.
//
// Examples:
//   - ToRelative("/home/user/project/src/Foo.java", "/home/user/project") → "src/Foo.java"
//   - ToRelative("/other/location/Foo.java", "/home/user/project") → "/other/location/Foo.java"
//   - ToRelative("/home/user/project/lib/api.jar!/org/Api.class", "/home/user/project") → "lib/api.jar!/org/Api.class"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}
	return relPath
}

// ToRelativeAll converts every path with ToRelative into a new slice
func ToRelativeAll(paths []string, rootDir string) []string {
	if len(paths) == 0 {
		return paths
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = ToRelative(p, rootDir)
	}
	return out
}
