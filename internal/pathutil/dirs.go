// Package pathutil provides filesystem helpers for run directories.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DirResult reports what EnsureDir did.
type DirResult int

const (
	// Created means the directory did not exist and was created.
	Created DirResult = iota
	// AlreadyExists means a directory was already present at the path.
	AlreadyExists
)

func (r DirResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExists:
		return "already-exists"
	default:
		return fmt.Sprintf("DirResult(%d)", int(r))
	}
}

// EnsureDir creates path and any missing parents. An existing directory is
// reported as AlreadyExists, including when another process created it
// concurrently; every other failure, including a non-directory occupying
// the path, is returned as an error.
func EnsureDir(path string, perm fs.FileMode) (DirResult, error) {
	err := os.Mkdir(path, perm)
	switch {
	case err == nil:
		return Created, nil
	case errors.Is(err, fs.ErrExist):
		return existingDir(path)
	case errors.Is(err, fs.ErrNotExist):
		// Parent missing: create the chain, then retry the leaf so the
		// result reflects who actually created it.
		if err := os.MkdirAll(filepath.Dir(path), perm); err != nil {
			return 0, fmt.Errorf("creating parent of %s: %w", RedactPath(path), err)
		}
		if err := os.Mkdir(path, perm); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return existingDir(path)
			}
			return 0, fmt.Errorf("creating %s: %w", RedactPath(path), err)
		}
		return Created, nil
	default:
		return 0, fmt.Errorf("creating %s: %w", RedactPath(path), err)
	}
}

func existingDir(path string) (DirResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("checking %s: %w", RedactPath(path), err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("creating %s: path exists and is not a directory", RedactPath(path))
	}
	return AlreadyExists, nil
}

// RedactPath reduces a full path to .../<parent>/<basename> for error messages.
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	cleaned := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(cleaned))
	base := filepath.Base(cleaned)
	if parent == "." || parent == string(filepath.Separator) {
		return base
	}
	return ".../" + parent + "/" + base
}

// Within reports an error unless path resolves to root or a directory below
// it. Symlinks are resolved on the deepest existing ancestor of each side.
func Within(path, root string) error {
	if path == "" || root == "" {
		return errors.New("path validation failed: empty path")
	}
	if strings.ContainsRune(path, '\x00') {
		return errors.New("path validation failed: path contains null byte")
	}

	resolvedPath, err := resolve(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	resolvedRoot, err := resolve(root)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}

	if resolvedPath == resolvedRoot || strings.HasPrefix(resolvedPath, resolvedRoot+string(os.PathSeparator)) {
		return nil
	}
	return fmt.Errorf("path validation failed: %q is outside %q", RedactPath(path), RedactPath(root))
}

func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(abs)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return resolved, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("cannot resolve %s", RedactPath(path))
		}
		tail = append(tail, filepath.Base(abs))
		abs = parent
	}
}
