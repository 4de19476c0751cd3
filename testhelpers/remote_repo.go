// Package testhelpers provides scaffolding for tests that need real git
// repositories: local bare remotes, seeded branches and change refs.
package testhelpers

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// RemoteRepo is a local bare repository standing in for a project's remote,
// plus a seed working clone used to manufacture branches and change refs.
// The bare directory path doubles as the remote URL.
type RemoteRepo struct {
	BareDir string
	seedDir string
}

// NewRemoteRepo creates a bare remote with an initial commit on main.
// Cleanup is handled by t.TempDir.
func NewRemoteRepo(t *testing.T) *RemoteRepo {
	t.Helper()
	root := t.TempDir()
	r := &RemoteRepo{
		BareDir: filepath.Join(root, "origin.git"),
		seedDir: filepath.Join(root, "seed"),
	}

	Git(t, "", "init", "--bare", "-b", "main", r.BareDir)
	Git(t, "", "clone", r.BareDir, r.seedDir)
	Git(t, r.seedDir, "config", "user.name", "Test User")
	Git(t, r.seedDir, "config", "user.email", "test@example.com")
	// The clone of an empty remote may have picked a different initial
	// branch name depending on ambient git defaults.
	Git(t, r.seedDir, "checkout", "-B", "main")
	r.CommitFile(t, "README.md", "seed\n", "initial commit")
	return r
}

// CommitFile writes a file on the seed clone's current branch, commits it and
// pushes the branch. It returns the new commit SHA.
func (r *RemoteRepo) CommitFile(t *testing.T, name, content, message string) string {
	t.Helper()
	path := filepath.Join(r.seedDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	Git(t, r.seedDir, "add", "-A")
	Git(t, r.seedDir, "commit", "-m", message)
	Git(t, r.seedDir, "push", "origin", "HEAD")
	return Git(t, r.seedDir, "rev-parse", "HEAD")
}

// CreateBranch creates and pushes a branch at the current main tip, leaving
// the seed clone back on main.
func (r *RemoteRepo) CreateBranch(t *testing.T, name string) {
	t.Helper()
	Git(t, r.seedDir, "checkout", "-b", name, "main")
	Git(t, r.seedDir, "push", "-u", "origin", name)
	Git(t, r.seedDir, "checkout", "main")
}

// CreateChange commits the given files on top of baseBranch's current remote
// tip and pushes the commit to refspec (e.g. "refs/changes/1/1"), without
// moving any branch. It returns the change's commit SHA.
func (r *RemoteRepo) CreateChange(t *testing.T, refspec, baseBranch string, files map[string]string, message string) string {
	t.Helper()
	Git(t, r.seedDir, "fetch", "origin")
	Git(t, r.seedDir, "checkout", "--force", "--detach", "origin/"+baseBranch)
	for name, content := range files {
		path := filepath.Join(r.seedDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	Git(t, r.seedDir, "add", "-A")
	Git(t, r.seedDir, "commit", "-m", message)
	sha := Git(t, r.seedDir, "rev-parse", "HEAD")
	Git(t, r.seedDir, "push", "origin", "HEAD:"+refspec)
	Git(t, r.seedDir, "checkout", "--force", "main")
	return sha
}

// StackedChange commits files on top of an existing change commit and pushes
// the result to refspec, modelling a change that depends on another.
func (r *RemoteRepo) StackedChange(t *testing.T, refspec, parentSHA string, files map[string]string, message string) string {
	t.Helper()
	Git(t, r.seedDir, "fetch", "origin", parentSHA)
	Git(t, r.seedDir, "checkout", "--force", "--detach", parentSHA)
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(r.seedDir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	Git(t, r.seedDir, "add", "-A")
	Git(t, r.seedDir, "commit", "-m", message)
	sha := Git(t, r.seedDir, "rev-parse", "HEAD")
	Git(t, r.seedDir, "push", "origin", "HEAD:"+refspec)
	Git(t, r.seedDir, "checkout", "--force", "main")
	return sha
}

// BranchTip returns the remote's current tip of a branch.
func (r *RemoteRepo) BranchTip(t *testing.T, branch string) string {
	t.Helper()
	return Git(t, r.BareDir, "rev-parse", "refs/heads/"+branch)
}

// RefExists reports whether a fully qualified ref resolves in dir.
func RefExists(dir, ref string) bool {
	_, err := gitOutput(dir, "show-ref", "--verify", "--quiet", ref)
	return err == nil
}

// Git runs a git command in dir (or the process directory when dir is empty)
// and returns its trimmed stdout, failing the test on error. The global and
// system git configs are suppressed so tests are hermetic.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := gitOutput(dir, args...)
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
	return out
}

func gitOutput(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(),
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_SYSTEM=/dev/null",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %v: %w", args, err)
	}
	return strings.TrimSpace(string(out)), nil
}
