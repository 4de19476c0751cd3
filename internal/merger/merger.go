package merger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	mqerrors "mergeq.dev/mergeq/internal/errors"
	"mergeq.dev/mergeq/internal/git"
)

// Options configures a Merger.
type Options struct {
	// WorkingRoot is the directory holding one working copy per project.
	WorkingRoot string

	// Email and Username configure the identity for commits the engine
	// creates.
	Email    string
	Username string

	// Connections maps connection names to SSH private key paths. One
	// wrapper script is written per connection under WorkingRoot.
	Connections map[string]string

	// Logger defaults to a no-op logger when nil.
	Logger *zap.Logger

	// Factory builds repository handles; nil selects the real git
	// implementation.
	Factory RepositoryFactory
}

// Merger computes speculative merged states for an ordered queue of changes
// and publishes them through marker references. A Merger owns its working
// copies exclusively: at most one MergeChanges call may be in flight per
// instance, and parallelism is obtained by running several instances with
// independent working roots.
type Merger struct {
	workingRoot string
	repos       map[string]Repository
	creds       map[string]*git.Credential
	newRepo     RepositoryFactory
	log         *zap.Logger
}

// New creates a Merger rooted at opts.WorkingRoot, creating the directory
// and the per-connection SSH wrapper scripts.
func New(opts Options) (*Merger, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(opts.WorkingRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create working root: %w", err)
	}

	creds := make(map[string]*git.Credential)
	for name, key := range opts.Connections {
		if key == "" {
			continue
		}
		cred, err := git.WriteSSHWrapper(opts.WorkingRoot, name, key)
		if err != nil {
			return nil, err
		}
		creds[name] = cred
	}

	m := &Merger{
		workingRoot: opts.WorkingRoot,
		repos:       make(map[string]Repository),
		creds:       creds,
		newRepo:     opts.Factory,
		log:         log,
	}
	if m.newRepo == nil {
		m.newRepo = func(remoteURL, localPath string) Repository {
			return git.NewRepo(remoteURL, localPath, opts.Email, opts.Username, log.Named("git"))
		}
	}
	return m, nil
}

// MergeChanges processes the queue strictly in arrival order and returns the
// commit produced by the last item. The first failing item aborts the call:
// prior working-copy mutations and already-written marker references are left
// as-is, and no result is returned for a partially processed queue.
func (m *Merger) MergeChanges(ctx context.Context, items []ChangeItem) (string, error) {
	if len(items) == 0 {
		return "", mqerrors.ErrEmptyQueue
	}
	recent := make(speculativeCache)
	var commit string
	for _, item := range items {
		m.logItemIdentity(item)
		c, err := m.mergeItem(ctx, item, recent)
		if err != nil {
			return "", err
		}
		commit = c
	}
	return commit, nil
}

// RegisterRepository returns the handle for a project, creating and cloning
// it if needed. The URL is required only on first registration.
func (m *Merger) RegisterRepository(ctx context.Context, project, url string) (Repository, error) {
	repo, err := m.repoFor(project, url)
	if err != nil {
		return nil, err
	}
	if err := repo.EnsureCloned(ctx, nil); err != nil {
		return nil, err
	}
	return repo, nil
}

// CredentialFor returns the credential registered under a connection name.
// The empty name selects the ambient environment (a nil credential); a name
// that was never configured is an error.
func (m *Merger) CredentialFor(connection string) (*git.Credential, error) {
	if connection == "" {
		return nil, nil
	}
	cred, ok := m.creds[connection]
	if !ok {
		return nil, fmt.Errorf("unknown connection %q", connection)
	}
	return cred, nil
}

// RefreshRepository fetches the latest remote state for a project. It is
// best-effort maintenance off the critical merge path: failures are logged
// and swallowed.
func (m *Merger) RefreshRepository(ctx context.Context, project, url string) {
	repo, err := m.RegisterRepository(ctx, project, url)
	if err != nil {
		m.log.Warn("unable to register repository for refresh",
			zap.String("project", project), zap.Error(err))
		return
	}
	m.log.Info("updating local repository", zap.String("project", project))
	if err := repo.FetchAll(ctx, nil); err != nil {
		m.log.Warn("unable to update repository",
			zap.String("project", project), zap.Error(err))
	}
}

// repoFor returns the cached handle for a project, creating one when a URL
// is supplied. A handle, once created, is reused for all later operations on
// the project.
func (m *Merger) repoFor(project, url string) (Repository, error) {
	if repo, ok := m.repos[project]; ok {
		return repo, nil
	}
	if url == "" {
		return nil, mqerrors.NewUnknownProjectError(project)
	}
	repo := m.newRepo(url, filepath.Join(m.workingRoot, project))
	m.repos[project] = repo
	return repo, nil
}

func (m *Merger) mergeItem(ctx context.Context, item ChangeItem, recent speculativeCache) (string, error) {
	m.log.Debug("processing change",
		zap.String("project", item.Project),
		zap.String("branch", item.Branch),
		zap.String("ref", item.Ref),
		zap.String("refspec", item.Refspec))

	// A bad mode is a configuration error; fail before any version-control
	// operation.
	if !item.MergeMode.Valid() {
		return "", mqerrors.NewUnsupportedModeError(string(item.MergeMode))
	}

	cred := m.creds[item.Connection]
	repo, err := m.repoFor(item.Project, item.URL)
	if err != nil {
		return "", err
	}
	if err := repo.EnsureCloned(ctx, cred); err != nil {
		return "", err
	}

	// A surviving marker reference means the item was already resolved in an
	// earlier pass; reuse its commit without touching the working tree.
	marker := item.MarkerName()
	commit, err := repo.LookupMarkerRef(marker)
	if err != nil {
		return "", err
	}
	if commit != "" {
		m.log.Debug("found commit for marker ref",
			zap.String("ref", marker), zap.String("commit", commit))
		recent.put(item.Project, item.Branch, commit)
		return commit, nil
	}

	base, ok := recent.get(item.Project, item.Branch)
	if !ok {
		// No speculative base in this pass: reset so the branch-tip reading
		// is authoritative, not whatever a stale working copy reports.
		m.log.Debug("no base commit found",
			zap.String("project", item.Project), zap.String("branch", item.Branch))
		if err := repo.ResetToRemoteDefault(ctx, cred); err != nil {
			return "", err
		}
		base, err = repo.BranchHead(item.Branch)
		if err != nil {
			return "", err
		}
	} else {
		m.log.Debug("found base commit",
			zap.String("project", item.Project),
			zap.String("branch", item.Branch),
			zap.String("base", base))
	}

	commit, err = m.applyChange(ctx, repo, item, base, cred)
	if err != nil {
		if errors.Is(err, mqerrors.ErrMergeConflict) {
			// Conflicts are expected and frequent; keep them quiet.
			m.log.Debug("unable to merge change",
				zap.String("project", item.Project),
				zap.String("refspec", item.Refspec),
				zap.Error(err))
		} else {
			m.log.Error("exception while merging change",
				zap.String("project", item.Project),
				zap.String("refspec", item.Refspec),
				zap.Error(err))
		}
		return "", err
	}
	recent.put(item.Project, item.Branch, commit)

	if err := m.publishMarkers(item.Ref, recent); err != nil {
		return "", err
	}
	return commit, nil
}

// applyChange checks out the base and applies the item's content per its
// merge mode, returning the resulting commit.
func (m *Merger) applyChange(ctx context.Context, repo Repository, item ChangeItem, base string, cred *git.Credential) (string, error) {
	if _, err := repo.Checkout(ctx, base); err != nil {
		return "", err
	}
	if err := repo.Fetch(ctx, item.Refspec, cred); err != nil {
		return "", err
	}
	switch item.MergeMode {
	case ModeMerge:
		return repo.Merge(ctx, "FETCH_HEAD", "")
	case ModeMergeResolve:
		return repo.Merge(ctx, "FETCH_HEAD", "resolve")
	case ModeCherryPick:
		return repo.CherryPick(ctx, "FETCH_HEAD")
	}
	return "", mqerrors.NewUnsupportedModeError(string(item.MergeMode))
}

// publishMarkers writes a marker reference named "<branch>/<ref>" for every
// (project, branch) pair in the cache, so a consumer can check out a
// mutually consistent snapshot across all projects touched so far using the
// single ref name tied to the current item.
func (m *Merger) publishMarkers(ref string, recent speculativeCache) error {
	for key, commit := range recent {
		repo, err := m.repoFor(key.project, "")
		if err != nil {
			return err
		}
		name := key.branch + "/" + ref
		if err := repo.CreateMarkerRef(name, commit); err != nil {
			return fmt.Errorf("unable to set marker ref %s for project %s: %w", name, key.project, err)
		}
	}
	return nil
}

func (m *Merger) logItemIdentity(item ChangeItem) {
	switch {
	case item.Number != "" && item.Patchset != "":
		m.log.Debug("merging change",
			zap.String("number", item.Number), zap.String("patchset", item.Patchset))
	case item.NewRev != "" && item.OldRev != "":
		m.log.Debug("merging rev",
			zap.String("newrev", item.NewRev), zap.String("oldrev", item.OldRev))
	}
}
