package merger

// MergeMode selects how a change's content is applied onto its base.
type MergeMode string

const (
	// ModeMerge merges the fetched change with git's default strategy.
	ModeMerge MergeMode = "merge"
	// ModeMergeResolve merges the fetched change with the resolve strategy.
	ModeMergeResolve MergeMode = "merge-resolve"
	// ModeCherryPick cherry-picks the fetched change onto the base.
	ModeCherryPick MergeMode = "cherry-pick"
)

// Valid reports whether the mode is one the engine supports.
func (m MergeMode) Valid() bool {
	switch m {
	case ModeMerge, ModeMergeResolve, ModeCherryPick:
		return true
	}
	return false
}

// ChangeItem is one entry in the input queue. Items are immutable once
// enqueued; the engine only reads them.
type ChangeItem struct {
	// Project identifies the repository the change targets.
	Project string `yaml:"project"`

	// URL is the remote location. It is required only the first time a
	// project is seen; later items may leave it empty.
	URL string `yaml:"url"`

	// Branch is the target branch of the change.
	Branch string `yaml:"branch"`

	// Ref is the identifier of the change, used to name its marker
	// reference.
	Ref string `yaml:"ref"`

	// Refspec is what to fetch from the remote to obtain the change's
	// content.
	Refspec string `yaml:"refspec"`

	// MergeMode selects the application strategy.
	MergeMode MergeMode `yaml:"merge_mode"`

	// Connection names the credential used for network operations while
	// processing this item.
	Connection string `yaml:"connection"`

	// Opaque identity metadata, used only for diagnostics.
	Number   string `yaml:"number"`
	Patchset string `yaml:"patchset"`
	OldRev   string `yaml:"oldrev"`
	NewRev   string `yaml:"newrev"`
}

// MarkerName returns the marker-reference name tied to this item,
// "<branch>/<ref>".
func (i ChangeItem) MarkerName() string {
	return i.Branch + "/" + i.Ref
}
