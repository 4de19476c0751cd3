package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	mqerrors "mergeq.dev/mergeq/internal/errors"
)

// remoteName is the remote every working copy is bound to.
const remoteName = "origin"

// Repo is one local working copy bound to one project and one remote URL.
// It is not safe for concurrent use: the checked-out state is mutated in
// place, so a single queue pass must own it exclusively.
type Repo struct {
	remoteURL string
	localPath string
	email     string
	username  string
	runner    *CommandRunner
	log       *zap.Logger

	initialized bool
}

// NewRepo creates a handle for the working copy at localPath, cloned from
// remoteURL on first use. The email and username configure the identity used
// for commits the engine itself creates.
func NewRepo(remoteURL, localPath, email, username string, log *zap.Logger) *Repo {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repo{
		remoteURL: remoteURL,
		localPath: localPath,
		email:     email,
		username:  username,
		runner:    NewCommandRunner(localPath),
		log:       log,
	}
}

// RemoteURL returns the remote the working copy is bound to.
func (r *Repo) RemoteURL() string {
	return r.remoteURL
}

// LocalPath returns the working copy directory.
func (r *Repo) LocalPath() string {
	return r.localPath
}

// EnsureCloned clones the remote if no local copy exists and configures the
// commit identity. It is idempotent.
func (r *Repo) EnsureCloned(ctx context.Context, cred *Credential) error {
	cloned := r.isCloned()
	if r.initialized && cloned {
		return nil
	}
	if !cloned {
		r.log.Debug("cloning repository",
			zap.String("remote", r.remoteURL),
			zap.String("local", r.localPath))
		cloner := NewCommandRunner("")
		if _, err := cloner.RunWithEnv(ctx, cred.Env(), "clone", r.remoteURL, r.localPath); err != nil {
			return fmt.Errorf("failed to clone %s: %w", r.remoteURL, err)
		}
	}
	if r.email != "" {
		if _, err := r.runner.Run(ctx, "config", "user.email", r.email); err != nil {
			return fmt.Errorf("failed to set user.email: %w", err)
		}
	}
	if r.username != "" {
		if _, err := r.runner.Run(ctx, "config", "user.name", r.username); err != nil {
			return fmt.Errorf("failed to set user.name: %w", err)
		}
	}
	r.initialized = true
	return nil
}

func (r *Repo) isCloned() bool {
	_, err := os.Stat(filepath.Join(r.localPath, ".git"))
	return err == nil
}

// ResetToRemoteDefault discards local modifications and untracked files and
// leaves the working copy detached at the remote's default branch. It is used
// when no speculative base exists yet, so the subsequent branch-tip reading is
// authoritative rather than whatever a stale working copy reports.
func (r *Repo) ResetToRemoteDefault(ctx context.Context, cred *Credential) error {
	r.log.Debug("resetting repository", zap.String("local", r.localPath))
	if err := r.FetchAll(ctx, cred); err != nil {
		return err
	}
	def, err := r.remoteDefaultRef(ctx)
	if err != nil {
		return err
	}
	if _, err := r.runner.Run(ctx, "checkout", "--force", "--detach", def); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", def, err)
	}
	// '--' disambiguates in case a file named HEAD exists in the tree root.
	if _, err := r.runner.Run(ctx, "reset", "--hard", "HEAD", "--"); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	if _, err := r.runner.Run(ctx, "clean", "-x", "-f", "-d"); err != nil {
		return fmt.Errorf("failed to clean: %w", err)
	}
	return nil
}

// remoteDefaultRef returns the remote's default branch ref, falling back to
// the first remote-tracking branch when the remote HEAD symref is unknown.
func (r *Repo) remoteDefaultRef(ctx context.Context) (string, error) {
	if out, err := r.runner.Run(ctx, "symbolic-ref", "refs/remotes/"+remoteName+"/HEAD"); err == nil && out != "" {
		return out, nil
	}
	// The symref may not exist in older clones; refresh it from the remote.
	if _, err := r.runner.Run(ctx, "remote", "set-head", remoteName, "--auto"); err == nil {
		if out, err := r.runner.Run(ctx, "symbolic-ref", "refs/remotes/"+remoteName+"/HEAD"); err == nil && out != "" {
			return out, nil
		}
	}
	refs, err := r.remoteTrackingRefs()
	if err != nil {
		return "", err
	}
	if len(refs) == 0 {
		return "", fmt.Errorf("no remote-tracking refs in %s", r.localPath)
	}
	return refs[0], nil
}

// Fetch retrieves a refspec from the remote into FETCH_HEAD. The one known
// transient failure class is retried exactly once before being treated as a
// genuine failure.
func (r *Repo) Fetch(ctx context.Context, refspec string, cred *Credential) error {
	err := r.fetchOnce(ctx, refspec, cred)
	if err == nil {
		return nil
	}
	if errors.Is(err, mqerrors.ErrTransient) {
		r.log.Debug("transient fetch failure, retrying once",
			zap.String("refspec", refspec), zap.Error(err))
		err = r.fetchOnce(ctx, refspec, cred)
	}
	return err
}

func (r *Repo) fetchOnce(ctx context.Context, refspec string, cred *Credential) error {
	if _, err := r.runner.RunWithEnv(ctx, cred.Env(), "fetch", remoteName, refspec); err != nil {
		if isTransientFetch(err) {
			return mqerrors.NewTransientError(err)
		}
		return fmt.Errorf("failed to fetch %s: %w", refspec, err)
	}
	return nil
}

// Checkout moves the working tree to the given commit or ref in detached
// state and returns the resulting HEAD commit.
func (r *Repo) Checkout(ctx context.Context, rev string) (string, error) {
	r.log.Debug("checking out", zap.String("rev", rev))
	if _, err := r.runner.Run(ctx, "checkout", "--force", "--detach", rev); err != nil {
		return "", fmt.Errorf("failed to checkout %s: %w", rev, err)
	}
	return r.head(ctx)
}

// Merge merges rev into the current checkout and returns the new HEAD commit.
// An empty strategy uses git's default; "resolve" requests the resolve
// strategy. A content conflict is reported as a MergeConflictError.
func (r *Repo) Merge(ctx context.Context, rev string, strategy string) (string, error) {
	args := []string{"merge", "--no-edit"}
	if strategy != "" {
		args = append(args, "-s", strategy)
	}
	args = append(args, rev)
	r.log.Debug("merging", zap.String("rev", rev), zap.String("strategy", strategy))
	if _, err := r.runner.Run(ctx, args...); err != nil {
		if isMergeConflict(err) {
			// Leave no half-merged tree behind for the next item.
			_, _ = r.runner.Run(ctx, "merge", "--abort")
			return "", mqerrors.NewMergeConflictError(r.localPath, rev, "")
		}
		return "", fmt.Errorf("failed to merge %s: %w", rev, err)
	}
	return r.head(ctx)
}

// CherryPick applies rev onto the current checkout and returns the new HEAD
// commit. A content conflict is reported as a MergeConflictError.
func (r *Repo) CherryPick(ctx context.Context, rev string) (string, error) {
	r.log.Debug("cherry-picking", zap.String("rev", rev))
	if _, err := r.runner.Run(ctx, "cherry-pick", rev); err != nil {
		if isMergeConflict(err) {
			_, _ = r.runner.Run(ctx, "cherry-pick", "--abort")
			return "", mqerrors.NewMergeConflictError(r.localPath, rev, "")
		}
		return "", fmt.Errorf("failed to cherry-pick %s: %w", rev, err)
	}
	return r.head(ctx)
}

// PruneStaleRemoteRefs removes remote-tracking refs that no longer exist on
// the remote. Maintenance only; not on the merge path.
func (r *Repo) PruneStaleRemoteRefs(ctx context.Context, cred *Credential) error {
	if _, err := r.runner.RunWithEnv(ctx, cred.Env(), "remote", "prune", remoteName); err != nil {
		return fmt.Errorf("failed to prune stale refs: %w", err)
	}
	return nil
}

// Push pushes a local ref to a remote ref. Maintenance only; not on the
// merge path.
func (r *Repo) Push(ctx context.Context, local, remote string, cred *Credential) error {
	r.log.Debug("pushing", zap.String("local", local), zap.String("remote", remote))
	if _, err := r.runner.RunWithEnv(ctx, cred.Env(), "push", remoteName, local+":"+remote); err != nil {
		return fmt.Errorf("failed to push %s:%s: %w", local, remote, err)
	}
	return nil
}

// FetchAll updates all remote-tracking refs and tags from the remote.
func (r *Repo) FetchAll(ctx context.Context, cred *Credential) error {
	r.log.Debug("updating repository", zap.String("local", r.localPath))
	if _, err := r.runner.RunWithEnv(ctx, cred.Env(), "fetch", "--tags", "--force", remoteName); err != nil {
		return fmt.Errorf("failed to fetch from %s: %w", r.remoteURL, err)
	}
	return nil
}

func (r *Repo) head(ctx context.Context) (string, error) {
	out, err := r.runner.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return out, nil
}

// transientFetchSignatures is the narrow class of spurious fetch failures the
// underlying tool is known to emit even though the data transferred fine.
var transientFetchSignatures = []string{
	"unexpected disconnect while reading sideband packet",
	"early EOF",
}

func isTransientFetch(err error) bool {
	var cmdErr *mqerrors.GitCommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	for _, sig := range transientFetchSignatures {
		if strings.Contains(cmdErr.Stderr, sig) {
			return true
		}
	}
	return false
}

// conflictSignatures distinguish normal content conflicts from tool or
// environment errors in merge and cherry-pick output.
var conflictSignatures = []string{
	"Automatic merge failed",
	"CONFLICT",
	"could not apply",
	"after resolving the conflicts",
}

func isMergeConflict(err error) bool {
	var cmdErr *mqerrors.GitCommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	combined := cmdErr.Stdout + "\n" + cmdErr.Stderr
	for _, sig := range conflictSignatures {
		if strings.Contains(combined, sig) {
			return true
		}
	}
	return false
}
