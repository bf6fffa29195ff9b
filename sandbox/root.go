// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"path/filepath"
)

// ResolveRoot walks the directory ancestry of startDir, nearest first and
// including startDir itself, looking for a directory that directly contains
// any of the marker names. startDir must be absolute.
//
// With outermost false the nearest candidate wins. With outermost true the
// walk continues through consecutive candidates and stops at the first
// ancestor that is not one: the outermost contiguous candidate wins. A gap
// of non-candidate directories ends the climb rather than being skipped,
// because jumping the gap would silently widen the sandbox root to an
// unrelated ancestor project.
//
// The walk is pure string ancestry (filepath.Dir) and marker presence is
// checked with Lstat, so a symlinked marker counts as present but is never
// followed; a crafted symlink cannot redirect the root outside the ancestor
// chain.
//
// The boolean is false when no ancestor up to the filesystem root is a
// candidate. Callers treat that as degradation, not an error.
func ResolveRoot(startDir string, markers []string, outermost bool) (string, bool) {
	dir := filepath.Clean(startDir)
	found := ""
	for {
		if hasMarker(dir, markers) {
			if !outermost {
				return dir, true
			}
			found = dir
		} else if found != "" {
			// The contiguous candidate chain ended below this gap.
			return found, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if found != "" {
		return found, true
	}
	return "", false
}

// hasMarker reports whether dir directly contains a file or directory with
// any of the marker names.
func hasMarker(dir string, markers []string) bool {
	for _, marker := range markers {
		if _, err := os.Lstat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}
