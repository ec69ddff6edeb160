package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/skelly-dev/atlas/internal/ignore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goOnly(path string) bool {
	return strings.HasSuffix(path, ".go")
}

func TestScanReturnsSortedSupportedFiles(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "zeta.go"), "package z")
	mustWriteFile(t, filepath.Join(root, "alpha", "b.go"), "package a")
	mustWriteFile(t, filepath.Join(root, "alpha", "a.go"), "package a")
	mustWriteFile(t, filepath.Join(root, "README.txt"), "hi")
	mustWriteFile(t, filepath.Join(root, "node_modules", "dep", "x.go"), "package x")
	mustWriteFile(t, filepath.Join(root, "skip", "y.go"), "package y")

	result, err := Scan(context.Background(), Options{
		Root:     root,
		Matcher:  ignore.NewMatcher([]string{"skip/"}),
		Supports: goOnly,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha/a.go", "alpha/b.go", "zeta.go"}, result.Files)
	assert.Empty(t, result.Warnings)
	assert.NotEmpty(t, result.Fingerprint)
}

func TestScanWalksIntoReincludedDirectories(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "main.go"), "package main")
	mustWriteFile(t, filepath.Join(root, "vendor", "lib", "a.go"), "package lib")
	mustWriteFile(t, filepath.Join(root, "vendor", "keep", "b.go"), "package keep")

	result, err := Scan(context.Background(), Options{
		Root:     root,
		Matcher:  ignore.NewMatcher([]string{"!vendor/keep/"}),
		Supports: goOnly,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go", "vendor/keep/b.go"}, result.Files)
}

func TestScanTerminatesOnSymlinkCycle(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "pkg", "a.go"), "package pkg")
	require.NoError(t, os.Symlink(root, filepath.Join(root, "pkg", "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "pkg"), filepath.Join(root, "alias")))

	done := make(chan struct{})
	var result *Result
	var err error
	go func() {
		defer close(done)
		result, err = Scan(context.Background(), Options{Root: root, Supports: goOnly, FollowSymlinks: true})
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("scan did not terminate on a symlink cycle")
	}
	require.NoError(t, err)
	assert.Len(t, result.Files, 1, "each real file is listed once")
}

func TestScanRecordsUnreadableEntriesAsWarnings(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "ok.go"), "package ok")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing.go"), filepath.Join(root, "dangling.go")))

	result, err := Scan(context.Background(), Options{Root: root, Supports: goOnly, FollowSymlinks: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"ok.go"}, result.Files)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "dangling.go", result.Warnings[0].File)
	assert.Equal(t, "warning", result.Warnings[0].Severity)
}

func TestScanSkipsSymlinksWhenNotFollowing(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	mustWriteFile(t, filepath.Join(other, "ext.go"), "package ext")
	mustWriteFile(t, filepath.Join(root, "main.go"), "package main")
	require.NoError(t, os.Symlink(other, filepath.Join(root, "ext")))

	result, err := Scan(context.Background(), Options{Root: root, Supports: goOnly})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, result.Files)

	followed, err := Scan(context.Background(), Options{Root: root, Supports: goOnly, FollowSymlinks: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"ext/ext.go", "main.go"}, followed.Files)
}

func TestFingerprintTracksSizeAndMtime(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.go")
	mustWriteFile(t, file, "package a")

	first, err := Scan(context.Background(), Options{Root: root, Supports: goOnly})
	require.NoError(t, err)
	again, err := Scan(context.Background(), Options{Root: root, Supports: goOnly})
	require.NoError(t, err)
	assert.Equal(t, first.Fingerprint, again.Fingerprint)

	mustWriteFile(t, file, "package a // changed")
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(file, later, later))

	changed, err := Scan(context.Background(), Options{Root: root, Supports: goOnly})
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, changed.Fingerprint)
}

func TestScanRejectsMissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}

func TestScanHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.go"), "package a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, Options{Root: root})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiffReportsAddedChangedDeleted(t *testing.T) {
	previous := map[string]string{"a.go": "1", "b.go": "2", "gone.go": "3"}
	current := map[string]string{"a.go": "1", "b.go": "20", "new.go": "4"}

	changes := Diff(previous, current)
	assert.Equal(t, []string{"new.go"}, changes.Added)
	assert.Equal(t, []string{"b.go"}, changes.Changed)
	assert.Equal(t, []string{"gone.go"}, changes.Deleted)
	assert.False(t, changes.Empty())
	assert.True(t, Diff(previous, previous).Empty())
}

func TestHashFilesSkipsUnreadable(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.go"), "package a")

	hashes := HashFiles(root, []string{"a.go", "missing.go"})
	assert.Len(t, hashes, 1)
	assert.Contains(t, hashes, "a.go")
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
