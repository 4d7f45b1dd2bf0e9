// Package artifacts is the content-addressed store for committed session
// bundles. Commits are idempotent and atomic: a bundle is staged in a
// temporary directory inside the root and renamed into place, so a reader
// never observes a partially written bundle and an existing bundle is never
// overwritten.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cabinetlabs/seanced/internal/errs"
	"github.com/cabinetlabs/seanced/internal/types"
)

// Filenames is the fixed set of files every committed bundle contains.
var Filenames = []string{
	"transcript.txt",
	"segments.json",
	"research.json",
	"analysis.json",
	"plan.txt",
	"mail.md",
}

var keyPattern = regexp.MustCompile(`^[0-9a-f]{16,64}$`)

// Store persists bundles under root/sessions/<key>/ and stages writes under
// root/tmp/.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving root %s: %v", errs.ErrStorage, root, err)
	}
	for _, dir := range []string{filepath.Join(abs, "sessions"), filepath.Join(abs, "tmp")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", errs.ErrStorage, dir, err)
		}
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute storage root.
func (s *Store) Root() string { return s.root }

// TmpDir returns the staging area inside the root.
func (s *Store) TmpDir() string { return filepath.Join(s.root, "tmp") }

func (s *Store) sessionDir(key string) string {
	return filepath.Join(s.root, "sessions", key)
}

// Lookup returns the committed bundle for key, or ErrNotFound.
func (s *Store) Lookup(key string) (*types.Bundle, error) {
	if !keyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: malformed session key %q", errs.ErrNotFound, key)
	}
	info, err := os.Stat(s.sessionDir(key))
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: no bundle for session %s", errs.ErrNotFound, key)
	}
	return s.bundle(key), nil
}

// Commit persists a complete set of bundle files for key. It is idempotent:
// if a bundle already exists the existing one is returned unchanged and the
// second return value is true. Writes go to a staging directory first and
// are moved into place with a single rename.
func (s *Store) Commit(key string, files map[string][]byte) (*types.Bundle, bool, error) {
	if b, err := s.Lookup(key); err == nil {
		return b, true, nil
	}
	if !keyPattern.MatchString(key) {
		return nil, false, fmt.Errorf("%w: malformed session key %q", errs.ErrStorage, key)
	}

	stage := filepath.Join(s.TmpDir(), uuid.New().String())
	if err := os.MkdirAll(stage, 0755); err != nil {
		return nil, false, fmt.Errorf("%w: creating staging dir: %v", errs.ErrStorage, err)
	}
	defer os.RemoveAll(stage)

	for name, data := range files {
		if err := os.WriteFile(filepath.Join(stage, name), data, 0644); err != nil {
			return nil, false, fmt.Errorf("%w: writing %s: %v", errs.ErrStorage, name, err)
		}
	}

	dst := s.sessionDir(key)
	if err := os.Rename(stage, dst); err != nil {
		// A concurrent commit may have won the rename; that bundle is
		// just as valid as ours.
		if b, lerr := s.Lookup(key); lerr == nil {
			return b, true, nil
		}
		return nil, false, fmt.Errorf("%w: committing bundle %s: %v", errs.ErrStorage, key, err)
	}
	return s.bundle(key), false, nil
}

// ReadFile returns the contents of one named file of a committed bundle.
func (s *Store) ReadFile(key, name string) ([]byte, error) {
	if _, err := s.Lookup(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.sessionDir(key), name))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s of %s: %v", errs.ErrStorage, name, key, err)
	}
	return data, nil
}

// Resolve maps a caller-supplied relative artifact path onto an absolute
// path strictly inside the root. Any path escaping the root, via "..", an
// absolute path or backslash separators, fails with ErrAccessDenied.
func (s *Store) Resolve(rel string) (string, error) {
	rel = strings.ReplaceAll(rel, "\\", "/")
	if rel == "" || strings.HasPrefix(rel, "/") || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q", errs.ErrAccessDenied, rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", errs.ErrAccessDenied, rel)
	}
	abs := filepath.Join(s.root, clean)
	if abs != s.root && !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", errs.ErrAccessDenied, rel)
	}
	return abs, nil
}

func (s *Store) bundle(key string) *types.Bundle {
	paths := make(map[string]string, len(Filenames))
	for _, name := range Filenames {
		field := strings.NewReplacer(".", "_").Replace(name)
		paths[field] = filepath.ToSlash(filepath.Join("sessions", key, name))
	}
	return &types.Bundle{SessionID: key, Paths: paths}
}
