// Package snapshot records the state of a content directory tree and
// classifies the differences between two recordings.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry is the recorded state of one regular file.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Tree maps slash-separated root-relative paths to their entries.
type Tree map[string]Entry

// Options control which files a snapshot records.
type Options struct {
	// IgnoreSuffixes lists extra file suffixes to skip, e.g. ".bak".
	IgnoreSuffixes []string
}

// Take walks root recursively and records every regular file.
// Directories, symlinks and editor temporaries are skipped.
func Take(root string, opts Options) (Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", root)
	}

	tree := make(Tree)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// Files can vanish between readdir and stat while an editor saves
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if IsTemporary(d.Name()) || hasSuffix(d.Name(), opts.IgnoreSuffixes) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		tree[rel] = Entry{Path: rel, Size: fi.Size(), ModTime: fi.ModTime()}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return tree, nil
}

// IsTemporary reports whether a file name looks like an editor or tool
// temporary that should never be treated as content.
func IsTemporary(name string) bool {
	if name == "" {
		return true
	}
	switch filepath.Ext(name) {
	case ".tmp", ".swp", ".swx":
		return true
	}
	return name[0] == '.' || name[0] == '~' || strings.HasSuffix(name, "~")
}

func hasSuffix(name string, suffixes []string) bool {
	for _, s := range suffixes {
		if s != "" && strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
