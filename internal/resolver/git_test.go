// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package resolver_test

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blinklabs-io/fwversion/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGitBinary(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// gitCmd runs git in dir isolated from the user's and system's git config
func gitCmd(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(
		os.Environ(),
		"GIT_CONFIG_GLOBAL="+os.DevNull,
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=Firmware Builder",
		"GIT_AUTHOR_EMAIL=builder@example.com",
		"GIT_COMMITTER_NAME=Firmware Builder",
		"GIT_COMMITTER_EMAIL=builder@example.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	return strings.TrimSpace(string(out))
}

func gitRepo(t *testing.T) string {
	t.Helper()
	requireGitBinary(t)
	dir := t.TempDir()
	// Keep git from discovering a repository above the temp dir
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	gitCmd(t, dir, "init", "-q")
	return dir
}

func gitCommit(t *testing.T, dir string, name string, content string) string {
	t.Helper()
	require.NoError(
		t,
		os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644),
	)
	gitCmd(t, dir, "add", name)
	gitCmd(t, dir, "commit", "-q", "--no-gpg-sign", "-m", "update "+name)
	return gitCmd(t, dir, "rev-parse", "--short=7", "HEAD")
}

func gitResolve(t *testing.T, dir string) string {
	t.Helper()
	r, _ := newTestResolver(
		resolver.NewGitDescriber(""),
		resolver.WithDir(dir),
	)
	return r.Resolve(context.Background())
}

func TestGitScenarios(t *testing.T) {
	t.Run("tag at HEAD", func(t *testing.T) {
		dir := gitRepo(t)
		gitCommit(t, dir, "main.cpp", "int main() {}\n")
		gitCmd(t, dir, "tag", "v1.0.2")
		assert.Equal(t, "v1.0.2", gitResolve(t, dir))
	})

	t.Run("commits after tag", func(t *testing.T) {
		dir := gitRepo(t)
		gitCommit(t, dir, "main.cpp", "int main() {}\n")
		gitCmd(t, dir, "tag", "v1.0.2")
		gitCommit(t, dir, "main.cpp", "int main() { return 0; }\n")
		head := gitCommit(t, dir, "README.md", "firmware\n")
		assert.Equal(t, "v1.0.2-2-g"+head, gitResolve(t, dir))
	})

	t.Run("dirty tree", func(t *testing.T) {
		dir := gitRepo(t)
		gitCommit(t, dir, "main.cpp", "int main() {}\n")
		gitCmd(t, dir, "tag", "v1.0.2")
		require.NoError(
			t,
			os.WriteFile(
				filepath.Join(dir, "main.cpp"),
				[]byte("int main() { for (;;) {} }\n"),
				0o644,
			),
		)
		version := gitResolve(t, dir)
		assert.True(t, strings.HasSuffix(version, "-dirty"), version)
	})

	t.Run("no tags", func(t *testing.T) {
		dir := gitRepo(t)
		head := gitCommit(t, dir, "main.cpp", "int main() {}\n")
		assert.Equal(t, head, gitResolve(t, dir))
	})

	t.Run("empty repository", func(t *testing.T) {
		dir := gitRepo(t)
		assert.Equal(t, resolver.Fallback, gitResolve(t, dir))
	})

	t.Run("not a repository", func(t *testing.T) {
		requireGitBinary(t)
		dir := t.TempDir()
		t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
		assert.Equal(t, resolver.Fallback, gitResolve(t, dir))
	})
}

func TestGitMatchesNative(t *testing.T) {
	dir := gitRepo(t)
	gitCommit(t, dir, "main.cpp", "1\n")
	gitCmd(t, dir, "tag", "-a", "-m", "release", "v1.0.0")
	gitCommit(t, dir, "main.cpp", "2\n")
	gitCommit(t, dir, "main.cpp", "3\n")
	assert.Equal(t, gitResolve(t, dir), nativeResolve(t, dir))
}

func TestGitBinaryMissing(t *testing.T) {
	r, _ := newTestResolver(
		resolver.NewGitDescriber(filepath.Join(t.TempDir(), "no-such-git")),
	)
	assert.Equal(t, resolver.Fallback, r.Resolve(context.Background()))
}

func TestGitNonZeroExit(t *testing.T) {
	falseBinary, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false binary not available")
	}
	describer := resolver.NewGitDescriber(falseBinary)
	_, err = describer.Describe(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 1")

	r, _ := newTestResolver(describer)
	assert.Equal(t, resolver.Fallback, r.Resolve(context.Background()))
}
