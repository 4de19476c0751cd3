package git_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/testhelpers"
)

// newClonedRepo clones a working copy of the remote and returns it together
// with its local path.
func newClonedRepo(t *testing.T, remote *testhelpers.RemoteRepo) (*git.Repo, string) {
	t.Helper()
	work := filepath.Join(t.TempDir(), "work")
	repo := git.NewRepo(remote.BareDir, work, "mergeq@example.com", "mergeq", zap.NewNop())
	require.NoError(t, repo.EnsureCloned(context.Background(), nil))
	return repo, work
}

func TestRepo_EnsureCloned(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	repo, work := newClonedRepo(t, remote)

	// The clone exists and carries the engine's commit identity.
	assert.Equal(t, "mergeq@example.com",
		testhelpers.Git(t, work, "config", "user.email"))
	assert.Equal(t, "mergeq",
		testhelpers.Git(t, work, "config", "user.name"))

	// Idempotent on an existing clone.
	require.NoError(t, repo.EnsureCloned(context.Background(), nil))
}

func TestRepo_BranchHead(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	remote.CreateBranch(t, "feature")
	repo, _ := newClonedRepo(t, remote)

	head, err := repo.BranchHead("main")
	require.NoError(t, err)
	assert.Equal(t, remote.BranchTip(t, "main"), head)

	head, err = repo.BranchHead("feature")
	require.NoError(t, err)
	assert.Equal(t, remote.BranchTip(t, "feature"), head)

	_, err = repo.BranchHead("no-such-branch")
	require.ErrorIs(t, err, mqerrors.ErrBranchNotFound)
}

func TestRepo_FetchCheckoutMerge(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	remote.CreateChange(t, "refs/changes/1/1", "main",
		map[string]string{"feature.txt": "feature\n"}, "add feature")
	repo, work := newClonedRepo(t, remote)
	ctx := context.Background()

	base, err := repo.BranchHead("main")
	require.NoError(t, err)

	head, err := repo.Checkout(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, base, head)

	require.NoError(t, repo.Fetch(ctx, "refs/changes/1/1", nil))
	commit, err := repo.Merge(ctx, "FETCH_HEAD", "")
	require.NoError(t, err)
	require.NotEmpty(t, commit)

	testhelpers.Git(t, work, "cat-file", "-e", commit+":feature.txt")
}

func TestRepo_MergeConflict(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	remote.CreateChange(t, "refs/changes/9/1", "main",
		map[string]string{"README.md": "change version\n"}, "conflicting change")
	remote.CommitFile(t, "README.md", "mainline version\n", "advance main")
	repo, work := newClonedRepo(t, remote)
	ctx := context.Background()

	require.NoError(t, repo.ResetToRemoteDefault(ctx, nil))
	base, err := repo.BranchHead("main")
	require.NoError(t, err)
	_, err = repo.Checkout(ctx, base)
	require.NoError(t, err)
	require.NoError(t, repo.Fetch(ctx, "refs/changes/9/1", nil))

	_, err = repo.Merge(ctx, "FETCH_HEAD", "")
	require.ErrorIs(t, err, mqerrors.ErrMergeConflict)

	// The aborted merge leaves a clean tree for the next item.
	assert.Empty(t, testhelpers.Git(t, work, "status", "--porcelain"))
}

func TestRepo_CherryPick(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	remote.CreateChange(t, "refs/changes/1/1", "main",
		map[string]string{"picked.txt": "picked\n"}, "pickable change")
	remote.CommitFile(t, "unrelated.txt", "advance\n", "advance main")
	repo, work := newClonedRepo(t, remote)
	ctx := context.Background()

	require.NoError(t, repo.ResetToRemoteDefault(ctx, nil))
	base, err := repo.BranchHead("main")
	require.NoError(t, err)
	_, err = repo.Checkout(ctx, base)
	require.NoError(t, err)
	require.NoError(t, repo.Fetch(ctx, "refs/changes/1/1", nil))

	commit, err := repo.CherryPick(ctx, "FETCH_HEAD")
	require.NoError(t, err)
	assert.NotEqual(t, base, commit)
	testhelpers.Git(t, work, "cat-file", "-e", commit+":picked.txt")
	testhelpers.Git(t, work, "cat-file", "-e", commit+":unrelated.txt")
}

func TestRepo_CherryPickConflict(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	remote.CreateChange(t, "refs/changes/9/1", "main",
		map[string]string{"README.md": "change version\n"}, "conflicting change")
	remote.CommitFile(t, "README.md", "mainline version\n", "advance main")
	repo, work := newClonedRepo(t, remote)
	ctx := context.Background()

	require.NoError(t, repo.ResetToRemoteDefault(ctx, nil))
	base, err := repo.BranchHead("main")
	require.NoError(t, err)
	_, err = repo.Checkout(ctx, base)
	require.NoError(t, err)
	require.NoError(t, repo.Fetch(ctx, "refs/changes/9/1", nil))

	_, err = repo.CherryPick(ctx, "FETCH_HEAD")
	require.ErrorIs(t, err, mqerrors.ErrMergeConflict)
	assert.Empty(t, testhelpers.Git(t, work, "status", "--porcelain"))
}

func TestRepo_MarkerRefs(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	repo, work := newClonedRepo(t, remote)

	head, err := repo.BranchHead("main")
	require.NoError(t, err)

	// Absent marker is not an error.
	commit, err := repo.LookupMarkerRef("main/r1")
	require.NoError(t, err)
	assert.Empty(t, commit)

	require.NoError(t, repo.CreateMarkerRef("main/r1", head))
	commit, err = repo.LookupMarkerRef("main/r1")
	require.NoError(t, err)
	assert.Equal(t, head, commit)
	assert.Equal(t, head, testhelpers.Git(t, work, "rev-parse", "refs/mergeq/main/r1"))

	// Create-or-overwrite: repointing an existing marker succeeds.
	second := remote.CommitFile(t, "more.txt", "more\n", "advance main")
	require.NoError(t, repo.FetchAll(context.Background(), nil))
	require.NoError(t, repo.CreateMarkerRef("main/r1", second))
	commit, err = repo.LookupMarkerRef("main/r1")
	require.NoError(t, err)
	assert.Equal(t, second, commit)
}

func TestRepo_MarkerRefsCommitsOnly(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	repo, work := newClonedRepo(t, remote)

	head, err := repo.BranchHead("main")
	require.NoError(t, err)
	tree := testhelpers.Git(t, work, "rev-parse", head+"^{tree}")

	// Creation validates the target object type.
	err = repo.CreateMarkerRef("main/bad", tree)
	require.ErrorIs(t, err, mqerrors.ErrNotACommit)
	assert.False(t, testhelpers.RefExists(work, "refs/mergeq/main/bad"))

	// A marker corrupted out-of-band is an error on lookup, not a guess.
	testhelpers.Git(t, work, "update-ref", "refs/mergeq/main/corrupt", tree)
	_, err = repo.LookupMarkerRef("main/corrupt")
	require.ErrorIs(t, err, mqerrors.ErrNotACommit)
}

func TestRepo_ResetToRemoteDefault(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	repo, work := newClonedRepo(t, remote)
	ctx := context.Background()

	// Dirty the working copy and let the remote advance.
	testhelpers.Git(t, work, "commit", "--allow-empty", "-m", "local noise")
	require.NoError(t, writeFile(work, "untracked.txt", "junk\n"))
	require.NoError(t, writeFile(work, "README.md", "scribbled\n"))
	newTip := remote.CommitFile(t, "advance.txt", "new\n", "advance main")

	require.NoError(t, repo.ResetToRemoteDefault(ctx, nil))

	assert.Empty(t, testhelpers.Git(t, work, "status", "--porcelain"))
	assert.Equal(t, newTip, testhelpers.Git(t, work, "rev-parse", "HEAD"))

	head, err := repo.BranchHead("main")
	require.NoError(t, err)
	assert.Equal(t, newTip, head)
}

func TestRepo_Push(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	repo, _ := newClonedRepo(t, remote)
	ctx := context.Background()

	base, err := repo.BranchHead("main")
	require.NoError(t, err)
	_, err = repo.Checkout(ctx, base)
	require.NoError(t, err)

	require.NoError(t, repo.Push(ctx, "HEAD", "refs/heads/published", nil))
	assert.Equal(t, base, testhelpers.Git(t, remote.BareDir, "rev-parse", "refs/heads/published"))
}

func TestRepo_PruneStaleRemoteRefs(t *testing.T) {
	remote := testhelpers.NewRemoteRepo(t)
	remote.CreateBranch(t, "doomed")
	repo, work := newClonedRepo(t, remote)
	ctx := context.Background()

	require.NoError(t, repo.FetchAll(ctx, nil))
	assert.True(t, testhelpers.RefExists(work, "refs/remotes/origin/doomed"))

	testhelpers.Git(t, remote.BareDir, "branch", "-D", "doomed")
	require.NoError(t, repo.PruneStaleRemoteRefs(ctx, nil))
	assert.False(t, testhelpers.RefExists(work, "refs/remotes/origin/doomed"))
}
