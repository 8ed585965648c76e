package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for template references that fail containment
// validation. It is a client error, not a server fault.
var ErrInvalidPath = errors.New("invalid template path")

// Resolver validates attacker-controlled relative template paths against a
// single root directory. It is purely lexical: no filesystem access happens
// here, existence checks belong to the caller.
type Resolver struct {
	root string
}

// NewResolver creates a resolver for the given template root. The root is
// canonicalized once; an empty root is rejected.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		return nil, fmt.Errorf("template root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize template root: %w", err)
	}
	return &Resolver{root: filepath.Clean(abs)}, nil
}

// Root returns the canonical template root directory
func (r *Resolver) Root() string {
	return r.root
}

// Resolve validates candidate and returns the absolute path of the template
// it denotes under the root. The returned path is not checked for existence.
//
// Rejections: empty candidates, absolute candidates, and any candidate whose
// cleaned form still contains "..". The substring check is stricter than a
// segment check and also rejects filenames with a ".." token inside them;
// that over-breadth is intentional.
func (r *Resolver) Resolve(candidate string) (string, error) {
	if candidate == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if filepath.IsAbs(candidate) {
		return "", fmt.Errorf("%w: absolute paths are not allowed", ErrInvalidPath)
	}

	cleaned := filepath.Clean(candidate)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: path escapes template root", ErrInvalidPath)
	}

	joined := filepath.Join(r.root, cleaned)

	// Segment-aligned containment check. A raw string-prefix comparison
	// would accept /templates-evil for root /templates.
	if joined != r.root && !strings.HasPrefix(joined, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes template root", ErrInvalidPath)
	}

	return joined, nil
}
