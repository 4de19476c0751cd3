package git

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	mqerrors "mergeq.dev/mergeq/internal/errors"
)

// MarkerRefPrefix is the reference namespace reserved for the engine. It is
// disjoint from refs/heads and refs/tags, so published speculative states
// never touch real branches.
const MarkerRefPrefix = "refs/mergeq/"

// MarkerRefName returns the full reference name for a marker named
// "<branch>/<ref>".
func MarkerRefName(name string) string {
	return MarkerRefPrefix + name
}

// open returns a go-git handle on the local copy for plumbing operations.
func (r *Repo) open() (*gogit.Repository, error) {
	repo, err := gogit.PlainOpen(r.localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository %s: %w", r.localPath, err)
	}
	return repo, nil
}

// BranchHead returns the commit at the tip of a branch as known to the
// remote, read from the remote-tracking reference.
func (r *Repo) BranchHead(branch string) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	refName := plumbing.NewRemoteReferenceName(remoteName, branch)
	ref, err := repo.Reference(refName, true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", fmt.Errorf("%w: %s", mqerrors.ErrBranchNotFound, branch)
		}
		return "", fmt.Errorf("failed to resolve %s: %w", refName, err)
	}
	return ref.Hash().String(), nil
}

// LookupMarkerRef returns the commit a marker reference points at, or ""
// when the marker does not exist. A marker that exists but does not resolve
// to a commit object is an error: the engine never guesses recovery intent
// for a corrupt marker.
func (r *Repo) LookupMarkerRef(name string) (string, error) {
	repo, err := r.open()
	if err != nil {
		return "", err
	}
	ref, err := repo.Reference(plumbing.ReferenceName(MarkerRefName(name)), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read marker ref %s: %w", name, err)
	}
	if _, err := repo.CommitObject(ref.Hash()); err != nil {
		return "", fmt.Errorf("marker ref %s points at %s: %w", name, ref.Hash(), mqerrors.ErrNotACommit)
	}
	return ref.Hash().String(), nil
}

// CreateMarkerRef creates or overwrites a marker reference pointing at the
// given commit. The target is validated to be a commit object; trees, blobs
// and tags are rejected.
func (r *Repo) CreateMarkerRef(name, commit string) error {
	repo, err := r.open()
	if err != nil {
		return err
	}
	hash := plumbing.NewHash(commit)
	if _, err := repo.CommitObject(hash); err != nil {
		return fmt.Errorf("cannot create marker ref %s at %s: %w", name, commit, mqerrors.ErrNotACommit)
	}
	r.log.Debug("creating marker ref",
		zap.String("name", name), zap.String("commit", commit))
	ref := plumbing.NewHashReference(plumbing.ReferenceName(MarkerRefName(name)), hash)
	if err := repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to create marker ref %s: %w", name, err)
	}
	return nil
}

// remoteTrackingRefs lists the remote-tracking branch refs of the working
// copy, excluding the remote HEAD symref.
func (r *Repo) remoteTrackingRefs() ([]string, error) {
	repo, err := r.open()
	if err != nil {
		return nil, err
	}
	iter, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	prefix := "refs/remotes/" + remoteName + "/"
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		if strings.TrimPrefix(name, prefix) == "HEAD" {
			return nil
		}
		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return names, nil
}
