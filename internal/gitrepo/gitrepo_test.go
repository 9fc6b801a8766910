package gitrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests against real git repositories. These run sequentially
// (NO t.Parallel()) to avoid resource exhaustion, matching the rest of the
// suite's integration-test style.

func TestAdapter_ResolveRef(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	sha, err := a.ResolveRef("main")
	require.NoError(t, err)
	assert.Len(t, sha, 40)

	_, err = a.ResolveRef("does-not-exist")
	assert.ErrorIs(t, err, ErrRefNotFound)
}

func TestAdapter_Open_NotARepository(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	assert.ErrorIs(t, err, ErrNotARepository)
}

func TestAdapter_ListFilesAtCommit(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	sha, err := a.ResolveRef("main")
	require.NoError(t, err)

	entries, err := a.ListFilesAtCommit(sha)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "README.md", entries[0].Path)
	assert.Len(t, entries[0].Blob, 40)
}

func TestAdapter_ListFilesAtCommit_UnknownCommit(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	_, err = a.ListFilesAtCommit("0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrCommitNotFound)
}

func TestAdapter_ReadBlob(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	sha, err := a.ResolveRef("main")
	require.NoError(t, err)
	entries, err := a.ListFilesAtCommit(sha)
	require.NoError(t, err)

	data, isBinary, err := a.ReadBlob(entries[0].Blob)
	require.NoError(t, err)
	assert.False(t, isBinary)
	assert.Equal(t, "# Test\n", string(data))
}

func TestAdapter_ReadBlob_DetectsBinary(t *testing.T) {
	dir := createTestGitRepo(t)
	binPath := filepath.Join(dir, "data.bin")
	require.NoError(t, os.WriteFile(binPath, []byte{0x00, 0x01, 0x02, 0xff}, 0644))
	runGitCmd(t, dir, "add", "data.bin")
	runGitCmd(t, dir, "commit", "-m", "add binary")

	a, err := Open(dir)
	require.NoError(t, err)
	sha, err := a.ResolveRef("main")
	require.NoError(t, err)

	entries, err := a.ListFilesAtCommit(sha)
	require.NoError(t, err)

	var binEntry Entry
	for _, e := range entries {
		if e.Path == "data.bin" {
			binEntry = e
		}
	}
	require.NotEmpty(t, binEntry.Blob)

	_, isBinary, err := a.ReadBlob(binEntry.Blob)
	require.NoError(t, err)
	assert.True(t, isBinary)
}

func TestAdapter_Diff_ModifiedAndAdded(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	from, err := a.ResolveRef("main")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test v2\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.go"), []byte("package main\n"), 0644))
	runGitCmd(t, dir, "add", "README.md", "new.go")
	runGitCmd(t, dir, "commit", "-m", "modify and add")

	to, err := a.ResolveRef("main")
	require.NoError(t, err)

	changes, err := a.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 2)

	byPath := make(map[string]Change)
	for _, c := range changes {
		byPath[c.To] = c
	}
	assert.Equal(t, ChangeModified, byPath["README.md"].Kind)
	assert.Equal(t, ChangeAdded, byPath["new.go"].Kind)
}

func TestAdapter_Diff_DetectsRename(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	from, err := a.ResolveRef("main")
	require.NoError(t, err)

	runGitCmd(t, dir, "mv", "README.md", "README2.md")
	runGitCmd(t, dir, "commit", "-m", "rename")

	to, err := a.ResolveRef("main")
	require.NoError(t, err)

	changes, err := a.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeRenamed, changes[0].Kind)
	assert.Equal(t, "README.md", changes[0].From)
	assert.Equal(t, "README2.md", changes[0].To)
}

func TestAdapter_Diff_DetectsCopy(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	from, err := a.ResolveRef("main")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "COPY.md"), data, 0644))
	runGitCmd(t, dir, "add", "COPY.md")
	runGitCmd(t, dir, "commit", "-m", "copy")

	to, err := a.ResolveRef("main")
	require.NoError(t, err)

	changes, err := a.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeCopied, changes[0].Kind)
	assert.Equal(t, "README.md", changes[0].From)
	assert.Equal(t, "COPY.md", changes[0].To)
}

func TestAdapter_Diff_DetectsDeletion(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	from, err := a.ResolveRef("main")
	require.NoError(t, err)

	runGitCmd(t, dir, "rm", "README.md")
	runGitCmd(t, dir, "commit", "-m", "delete")

	to, err := a.ResolveRef("main")
	require.NoError(t, err)

	changes, err := a.Diff(from, to)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeDeleted, changes[0].Kind)
	assert.Equal(t, "README.md", changes[0].From)
}

func TestAdapter_WorktreeStatus(t *testing.T) {
	dir := createTestGitRepo(t)
	a, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Changed\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "untracked.go"), []byte("package main\n"), 0644))

	status, err := a.WorktreeStatus()
	require.NoError(t, err)
	assert.True(t, status.Modified["README.md"])
	assert.True(t, status.Untracked["untracked.go"])
}

// Test helpers

func createTestGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	cmd := exec.Command("git", "init", "-b", "main")
	cmd.Dir = dir
	require.NoError(t, cmd.Run(), "git init failed")

	runGitCmd(t, dir, "config", "user.email", "test@example.com")
	runGitCmd(t, dir, "config", "user.name", "Test User")

	testFile := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(testFile, []byte("# Test\n"), 0644))
	runGitCmd(t, dir, "add", "README.md")
	runGitCmd(t, dir, "commit", "-m", "Initial commit")

	return dir
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
}
