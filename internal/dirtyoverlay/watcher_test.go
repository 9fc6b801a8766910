package dirtyoverlay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_FiresOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n"), 0o644))

	fired := make(chan struct{}, 1)
	w, err := NewWatcher(dir, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main\n\nfunc main() {}\n"), 0o644))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("onChange was not called after a file write")
	}
}

func TestWatcher_SkipsGitDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git", "objects"), 0o755))

	fired := make(chan struct{}, 1)
	w, err := NewWatcher(dir, func() {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "objects", "pack"), []byte("x"), 0o644))

	select {
	case <-fired:
		t.Fatal("onChange fired for a change inside .git, which should not be watched")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestOverlay_InvalidateForcesRecompute(t *testing.T) {
	o := newOverlay(t)

	adapter := &fakeAdapter{}
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\nfunc A() {}\n")
	adapter.status.Modified = map[string]bool{"a.go": true}

	first, err := o.GetDirtySymbols(dir, adapter)
	require.NoError(t, err)
	require.Len(t, first.DirtyFilePaths, 1)

	second, err := o.GetDirtySymbols(dir, adapter)
	require.NoError(t, err)
	require.Same(t, first, second, "expected a cached result when nothing invalidated the overlay")

	o.Invalidate()

	third, err := o.GetDirtySymbols(dir, adapter)
	require.NoError(t, err)
	require.NotSame(t, first, third, "expected Invalidate to force a fresh parse")
}
