package merger

import (
	"context"

	"mergeq.dev/mergeq/internal/git"
)

// Repository is the version-control contract the orchestrator requires from
// one local working copy. The real implementation is git.Repo; tests inject
// an in-memory fake. A Repository is not safe for concurrent use: it owns a
// single working tree whose checked-out state is mutated in place.
type Repository interface {
	// EnsureCloned clones from the remote if no local copy exists and
	// configures the commit identity. Idempotent.
	EnsureCloned(ctx context.Context, cred *git.Credential) error

	// ResetToRemoteDefault discards local modifications and untracked files
	// and selects the remote's default branch, guaranteeing an authoritative
	// branch-tip reading afterwards.
	ResetToRemoteDefault(ctx context.Context, cred *git.Credential) error

	// BranchHead returns the tip commit of a branch as known to the remote.
	BranchHead(branch string) (string, error)

	// Fetch retrieves a refspec from the remote into a transient fetch
	// target, retrying the known transient failure class exactly once.
	Fetch(ctx context.Context, refspec string, cred *git.Credential) error

	// Checkout moves the working tree to a commit or ref and returns the
	// resulting HEAD commit.
	Checkout(ctx context.Context, rev string) (string, error)

	// Merge merges rev into the current checkout. A content conflict is a
	// non-exceptional failure satisfying errors.Is(err, ErrMergeConflict).
	Merge(ctx context.Context, rev string, strategy string) (string, error)

	// CherryPick applies rev onto the current checkout, with the same
	// conflict reporting as Merge.
	CherryPick(ctx context.Context, rev string) (string, error)

	// LookupMarkerRef returns the commit a marker reference points at, ""
	// when absent, or an error when the marker exists but is corrupt.
	LookupMarkerRef(name string) (string, error)

	// CreateMarkerRef creates or overwrites a marker reference. The target
	// must be a commit object.
	CreateMarkerRef(name, commit string) error

	// PruneStaleRemoteRefs, Push and FetchAll are maintenance operations
	// used outside the merge path.
	PruneStaleRemoteRefs(ctx context.Context, cred *git.Credential) error
	Push(ctx context.Context, local, remote string, cred *git.Credential) error
	FetchAll(ctx context.Context, cred *git.Credential) error
}

// RepositoryFactory builds the Repository handle for a project's working
// copy. The default factory returns git.NewRepo.
type RepositoryFactory func(remoteURL, localPath string) Repository
