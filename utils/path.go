package utils

import (
	"path/filepath"
	"strings"
)

// PathGuard answers whether a path lies under one of a fixed set of roots.
// Roots are resolved once so per-file checks only resolve the candidate.
type PathGuard struct {
	roots []string
}

func getPathGuard(roots []string) *PathGuard {
	g := &PathGuard{roots: make([]string, 0, len(roots))}
	for _, root := range roots {
		if abs, ok := resolve(root); ok {
			g.roots = append(g.roots, abs)
		}
	}
	return g
}

// NewPathGuard returns a guard for roots. Roots that cannot be made absolute
// are ignored.
func NewPathGuard(roots []string) *PathGuard {
	return getPathGuard(roots)
}

func (g *PathGuard) Contains(path string) bool {
	if g == nil {
		return true
	}
	absPath, ok := resolve(path)
	if !ok {
		return false
	}
	for _, root := range g.roots {
		rel, err := filepath.Rel(root, absPath)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// IsPathWithin returns true if the given path is within any of the roots.
func IsPathWithin(path string, roots []string) bool {
	return getPathGuard(roots).Contains(path)
}

func resolve(path string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
