package merger_test

import (
	"context"
	"fmt"

	mqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/git"
	"mergeq.dev/mergeq/internal/merger"
)

// fakeRepo is an in-memory Repository for orchestrator tests. It models just
// enough state to observe the engine's behavior: the checked-out head, the
// marker-reference store and per-operation call counts.
type fakeRepo struct {
	project     string
	branchHeads map[string]string // branch -> remote tip
	markers     map[string]string // marker name -> commit
	corrupt     map[string]bool   // marker name -> corrupt flag
	conflicts   map[string]bool   // refspec -> conflict on apply
	fetchErrs   map[string]error  // refspec -> fetch failure
	markerErr   error             // forced CreateMarkerRef failure

	head    string // current checkout
	fetched string // last fetched refspec
	seq     int

	cloneCalls    int
	resetCalls    int
	fetchCalls    int
	checkoutCalls int
	mergeCalls    int
	cherryCalls   int
	fetchAllCalls int
	fetchAllErr   error

	mergeBases []string // head observed at each merge/cherry-pick
	strategies []string // strategy observed at each merge
}

func newFakeRepo(project string, branchHeads map[string]string) *fakeRepo {
	return &fakeRepo{
		project:     project,
		branchHeads: branchHeads,
		markers:     make(map[string]string),
		corrupt:     make(map[string]bool),
		conflicts:   make(map[string]bool),
		fetchErrs:   make(map[string]error),
	}
}

func (f *fakeRepo) EnsureCloned(ctx context.Context, cred *git.Credential) error {
	f.cloneCalls++
	return nil
}

func (f *fakeRepo) ResetToRemoteDefault(ctx context.Context, cred *git.Credential) error {
	f.resetCalls++
	return nil
}

func (f *fakeRepo) BranchHead(branch string) (string, error) {
	tip, ok := f.branchHeads[branch]
	if !ok {
		return "", fmt.Errorf("%w: %s", mqerrors.ErrBranchNotFound, branch)
	}
	return tip, nil
}

func (f *fakeRepo) Fetch(ctx context.Context, refspec string, cred *git.Credential) error {
	f.fetchCalls++
	if err := f.fetchErrs[refspec]; err != nil {
		return err
	}
	f.fetched = refspec
	return nil
}

func (f *fakeRepo) Checkout(ctx context.Context, rev string) (string, error) {
	f.checkoutCalls++
	f.head = rev
	return rev, nil
}

func (f *fakeRepo) Merge(ctx context.Context, rev string, strategy string) (string, error) {
	f.mergeCalls++
	f.strategies = append(f.strategies, strategy)
	return f.apply()
}

func (f *fakeRepo) CherryPick(ctx context.Context, rev string) (string, error) {
	f.cherryCalls++
	return f.apply()
}

func (f *fakeRepo) apply() (string, error) {
	if f.conflicts[f.fetched] {
		return "", mqerrors.NewMergeConflictError(f.project, f.fetched, "")
	}
	f.mergeBases = append(f.mergeBases, f.head)
	f.seq++
	f.head = fmt.Sprintf("%s-m%d(%s)", f.project, f.seq, f.fetched)
	return f.head, nil
}

func (f *fakeRepo) LookupMarkerRef(name string) (string, error) {
	if f.corrupt[name] {
		return "", fmt.Errorf("marker ref %s: %w", name, mqerrors.ErrNotACommit)
	}
	return f.markers[name], nil
}

func (f *fakeRepo) CreateMarkerRef(name, commit string) error {
	if f.markerErr != nil {
		return f.markerErr
	}
	f.markers[name] = commit
	return nil
}

func (f *fakeRepo) PruneStaleRemoteRefs(ctx context.Context, cred *git.Credential) error {
	return nil
}

func (f *fakeRepo) Push(ctx context.Context, local, remote string, cred *git.Credential) error {
	return nil
}

func (f *fakeRepo) FetchAll(ctx context.Context, cred *git.Credential) error {
	f.fetchAllCalls++
	return f.fetchAllErr
}

// fakeFleet hands out fakeRepos by project and counts factory invocations.
type fakeFleet struct {
	repos        map[string]*fakeRepo
	factoryCalls int
}

func newFakeFleet(repos ...*fakeRepo) *fakeFleet {
	fleet := &fakeFleet{repos: make(map[string]*fakeRepo)}
	for _, r := range repos {
		fleet.repos[r.project] = r
	}
	return fleet
}

// factory resolves the project from the working-copy path, which the merger
// derives as <workingRoot>/<project>.
func (f *fakeFleet) factory(workingRoot string) merger.RepositoryFactory {
	return func(remoteURL, localPath string) merger.Repository {
		f.factoryCalls++
		project := localPath[len(workingRoot)+1:]
		repo, ok := f.repos[project]
		if !ok {
			panic("no fake repo for project " + project)
		}
		return repo
	}
}
