package registry

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// Root is a URI boundary scoping the resources a server may serve.
type Root struct {
	URI  string
	Name string
}

// ErrUnauthorized is returned by Validate when a URI falls outside every
// configured root.
type ErrUnauthorized struct{ URI string }

func (e *ErrUnauthorized) Error() string {
	return fmt.Sprintf("uri %q is outside all configured roots", e.URI)
}

// RootRegistry holds an ordered list of Roots and answers boundary queries.
// With zero roots configured, every URI is permitted (the backward
// compatible open policy).
type RootRegistry struct {
	mu    sync.RWMutex
	roots []Root
}

// NewRootRegistry creates an empty RootRegistry (open policy: everything permitted).
func NewRootRegistry() *RootRegistry {
	return &RootRegistry{}
}

// Add appends a root to the ordered list.
func (r *RootRegistry) Add(root Root) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots = append(r.roots, root)
}

// List returns the configured roots in registration order.
func (r *RootRegistry) List() []Root {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Root, len(r.roots))
	copy(out, r.roots)
	return out
}

// IsWithin reports whether uri falls within any configured root. With zero
// roots configured, returns true for any uri.
func (r *RootRegistry) IsWithin(uri string) bool {
	r.mu.RLock()
	roots := r.roots
	r.mu.RUnlock()

	if len(roots) == 0 {
		return true
	}
	for _, root := range roots {
		if within(uri, root.URI) {
			return true
		}
	}
	return false
}

// Validate returns *ErrUnauthorized if uri is outside every configured root.
func (r *RootRegistry) Validate(uri string) error {
	if r.IsWithin(uri) {
		return nil
	}
	return &ErrUnauthorized{URI: uri}
}

// within implements the boundary predicate: after normalization, target
// must be prefixed by root's path/authority.
func within(target, root string) bool {
	tu, err1 := url.Parse(target)
	ru, err2 := url.Parse(root)
	if err1 != nil || err2 != nil {
		return false
	}

	tScheme := strings.ToLower(tu.Scheme)
	rScheme := strings.ToLower(ru.Scheme)
	if tScheme != rScheme {
		return false
	}

	switch rScheme {
	case "file":
		return withinFile(tu, ru)
	case "http", "https":
		return withinHTTP(tu, ru)
	default:
		// Unknown scheme: fall back to a case-sensitive path-prefix match.
		return strings.HasPrefix(normalizePath(target), normalizePath(root))
	}
}

func withinFile(target, root *url.URL) bool {
	tPath := normalizeFilePath(target.Path)
	rPath := normalizeFilePath(root.Path)

	if caseInsensitiveFS() {
		tPath = strings.ToLower(tPath)
		rPath = strings.ToLower(rPath)
	}

	return pathWithin(tPath, rPath)
}

func withinHTTP(target, root *url.URL) bool {
	if !strings.EqualFold(target.Host, root.Host) {
		return false
	}
	return pathWithin(normalizePath(target.Path), normalizePath(root.Path))
}

// pathWithin reports whether target is the root path itself or a
// descendant of it; a sibling that merely shares a string prefix
// (e.g. /foo/bar vs /foo/ba) does not count.
func pathWithin(target, root string) bool {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return true
	}
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+"/")
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	cleaned := path.Clean(p)
	return cleaned
}

func normalizeFilePath(p string) string {
	cleaned := filepath.Clean(filepath.FromSlash(p))
	return filepath.ToSlash(cleaned)
}

// caseInsensitiveFS reports whether the host filesystem's case-folding
// behavior is Windows-style (case-insensitive).
func caseInsensitiveFS() bool {
	return runtime.GOOS == "windows"
}
