// Copyright 2026 The Nodo Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

// mktree creates a directory hierarchy under root, touching the named
// marker files along the way. Entries ending in "/" are directories only.
func mktree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, file := range files {
		path := filepath.Join(root, file)
		if file[len(file)-1] == '/' {
			if err := os.MkdirAll(path, 0o755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolveRootNearest(t *testing.T) {
	root := t.TempDir()
	mktree(t, root, "ws/Cargo.toml", "ws/pkg/Cargo.toml", "ws/pkg/src/")

	got, ok := ResolveRoot(filepath.Join(root, "ws/pkg/src"), []string{"Cargo.toml"}, false)
	if !ok {
		t.Fatal("expected a root to be found")
	}
	if want := filepath.Join(root, "ws/pkg"); got != want {
		t.Errorf("got %q, want nearest candidate %q", got, want)
	}
}

func TestResolveRootOutermostContiguous(t *testing.T) {
	root := t.TempDir()
	mktree(t, root, "ws/Cargo.toml", "ws/pkg/Cargo.toml", "ws/pkg/src/")

	got, ok := ResolveRoot(filepath.Join(root, "ws/pkg/src"), []string{"Cargo.toml"}, true)
	if !ok {
		t.Fatal("expected a root to be found")
	}
	if want := filepath.Join(root, "ws"); got != want {
		t.Errorf("got %q, want outermost candidate %q", got, want)
	}
}

func TestResolveRootOutermostStopsAtGap(t *testing.T) {
	// a/ has a marker, a/b does not, a/b/c does. The outermost walk from
	// c must stop at c: jumping the gap would hand the sandbox root to an
	// unrelated ancestor project.
	root := t.TempDir()
	mktree(t, root, "a/Cargo.toml", "a/b/c/Cargo.toml")

	got, ok := ResolveRoot(filepath.Join(root, "a/b/c"), []string{"Cargo.toml"}, true)
	if !ok {
		t.Fatal("expected a root to be found")
	}
	if want := filepath.Join(root, "a/b/c"); got != want {
		t.Errorf("got %q, want candidate below the gap %q", got, want)
	}
}

func TestResolveRootStartDirItself(t *testing.T) {
	root := t.TempDir()
	mktree(t, root, "proj/Makefile")

	got, ok := ResolveRoot(filepath.Join(root, "proj"), []string{"Makefile"}, false)
	if !ok || got != filepath.Join(root, "proj") {
		t.Errorf("got (%q, %v), want startDir itself", got, ok)
	}
}

func TestResolveRootAnyMarkerSuffices(t *testing.T) {
	root := t.TempDir()
	mktree(t, root, "proj/GNUmakefile", "proj/sub/")

	markers := []string{"Makefile", "makefile", "GNUmakefile"}
	got, ok := ResolveRoot(filepath.Join(root, "proj/sub"), markers, false)
	if !ok || got != filepath.Join(root, "proj") {
		t.Errorf("got (%q, %v), want %q", got, ok, filepath.Join(root, "proj"))
	}
}

func TestResolveRootNoneFound(t *testing.T) {
	root := t.TempDir()
	mktree(t, root, "empty/sub/")

	// Marker name chosen so no real ancestor of the temp dir can match.
	got, ok := ResolveRoot(filepath.Join(root, "empty/sub"), []string{"nodo-test-marker-a6f3"}, false)
	if ok {
		t.Errorf("expected no root, got %q", got)
	}
	if got != "" {
		t.Errorf("path must be empty when no root is found, got %q", got)
	}
}

func TestResolveRootSymlinkedMarkerCounts(t *testing.T) {
	root := t.TempDir()
	mktree(t, root, "proj/sub/")
	// A dangling symlink still marks the directory: presence is checked
	// with Lstat and the link target is never followed.
	if err := os.Symlink(filepath.Join(root, "does-not-exist"), filepath.Join(root, "proj", "Makefile")); err != nil {
		t.Fatal(err)
	}

	got, ok := ResolveRoot(filepath.Join(root, "proj/sub"), []string{"Makefile"}, false)
	if !ok || got != filepath.Join(root, "proj") {
		t.Errorf("got (%q, %v), want %q", got, ok, filepath.Join(root, "proj"))
	}
}
