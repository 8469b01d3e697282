// Package loader resolves namespaced template references against ordered
// filesystem roots.
package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// MainNamespace is used for references without an @namespace prefix.
const MainNamespace = "__main__"

var (
	// ErrTemplateNotFound is wrapped when no root contains a template.
	ErrTemplateNotFound = errors.New("loader: template not found")
	// ErrInvalidReference is wrapped for malformed template names.
	ErrInvalidReference = errors.New("loader: invalid template reference")
)

// Source is a resolved template: its logical name, the file it was read
// from and its content.
type Source struct {
	Name string
	Path string
	Code string
}

// Checksum returns the hex sha256 of the template content.
func (s Source) Checksum() string {
	sum := sha256.Sum256([]byte(s.Code))
	return hex.EncodeToString(sum[:])
}

// FilesystemLoader maps namespaces to ordered search roots. Lookups walk
// the roots in registration order and return the first match.
type FilesystemLoader struct {
	mu         sync.RWMutex
	namespaces []string
	paths      map[string][]string
}

// New returns an empty loader.
func New() *FilesystemLoader {
	return &FilesystemLoader{paths: make(map[string][]string)}
}

// AddPath appends root to the namespace search list. An empty namespace
// targets MainNamespace. The root must be an existing directory.
func (l *FilesystemLoader) AddPath(root, namespace string) error {
	return l.add(root, namespace, false)
}

// PrependPath inserts root at the front of the namespace search list.
func (l *FilesystemLoader) PrependPath(root, namespace string) error {
	return l.add(root, namespace, true)
}

func (l *FilesystemLoader) add(root, namespace string, prepend bool) error {
	namespace = normaliseNamespace(namespace)
	root = filepath.Clean(strings.TrimSpace(root))

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("loader: the %q directory does not exist: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("loader: %q is not a directory", root)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	roots, known := l.paths[namespace]
	if !known {
		l.namespaces = append(l.namespaces, namespace)
	}
	for _, existing := range roots {
		if existing == root {
			return nil
		}
	}
	if prepend {
		roots = append([]string{root}, roots...)
	} else {
		roots = append(roots, root)
	}
	l.paths[namespace] = roots
	return nil
}

// Namespaces lists namespaces in registration order.
func (l *FilesystemLoader) Namespaces() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.namespaces...)
}

// Paths lists the roots of namespace in lookup order.
func (l *FilesystemLoader) Paths(namespace string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.paths[normaliseNamespace(namespace)]...)
}

// Find returns the file a reference resolves to.
func (l *FilesystemLoader) Find(name string) (string, error) {
	namespace, rel, err := ParseReference(name)
	if err != nil {
		return "", err
	}

	roots := l.Paths(namespace)
	if len(roots) == 0 {
		return "", fmt.Errorf("%w: there are no registered paths for namespace %q", ErrTemplateNotFound, namespace)
	}

	for _, root := range roots {
		candidate := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: unable to find template %q (looked into: %s)", ErrTemplateNotFound, name, strings.Join(roots, ", "))
}

// Exists reports whether a reference resolves to a file.
func (l *FilesystemLoader) Exists(name string) bool {
	_, err := l.Find(name)
	return err == nil
}

// Source resolves a reference and reads the template content.
func (l *FilesystemLoader) Source(name string) (Source, error) {
	file, err := l.Find(name)
	if err != nil {
		return Source{}, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return Source{}, fmt.Errorf("loader: read %s: %w", file, err)
	}
	return Source{Name: name, Path: file, Code: string(data)}, nil
}

// ParseReference splits "@namespace/relative/name" into its parts. Names
// without a prefix belong to MainNamespace.
func ParseReference(name string) (namespace, rel string, err error) {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	original := name
	namespace = MainNamespace

	if strings.HasPrefix(name, "@") {
		idx := strings.Index(name, "/")
		if idx < 0 {
			return "", "", fmt.Errorf("%w: malformed namespaced template name %q (expecting \"@namespace/template_name\")", ErrInvalidReference, name)
		}
		namespace = name[1:idx]
		name = name[idx+1:]
		if namespace == "" {
			return "", "", fmt.Errorf("%w: empty namespace in %q", ErrInvalidReference, original)
		}
	}

	name = strings.TrimLeft(name, "/")
	if name == "" {
		return "", "", fmt.Errorf("%w: template name is required", ErrInvalidReference)
	}
	rel = path.Clean(name)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", "", fmt.Errorf("%w: looks like you try to load a template outside configured directories (%s)", ErrInvalidReference, original)
	}
	return namespace, rel, nil
}

// Reference builds the logical name of rel inside namespace.
func Reference(namespace, rel string) string {
	return "@" + normaliseNamespace(namespace) + "/" + strings.TrimLeft(filepath.ToSlash(rel), "/")
}

func normaliseNamespace(namespace string) string {
	namespace = strings.TrimPrefix(strings.TrimSpace(namespace), "@")
	if namespace == "" {
		return MainNamespace
	}
	return namespace
}
