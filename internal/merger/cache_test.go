package merger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeculativeCache(t *testing.T) {
	c := make(speculativeCache)

	_, ok := c.get("p1", "main")
	assert.False(t, ok)

	c.put("p1", "main", "c1")
	commit, ok := c.get("p1", "main")
	assert.True(t, ok)
	assert.Equal(t, "c1", commit)

	// One entry per (project, branch): a newer result replaces the older.
	c.put("p1", "main", "c2")
	commit, _ = c.get("p1", "main")
	assert.Equal(t, "c2", commit)

	// Distinct branches and projects are tracked independently.
	c.put("p1", "feature", "f1")
	c.put("p2", "main", "m1")
	assert.Len(t, c, 3)

	commit, _ = c.get("p1", "feature")
	assert.Equal(t, "f1", commit)
}

func TestChangeItemMarkerName(t *testing.T) {
	i := ChangeItem{Branch: "main", Ref: "Z1a2b3"}
	assert.Equal(t, "main/Z1a2b3", i.MarkerName())
}

func TestMergeModeValid(t *testing.T) {
	assert.True(t, ModeMerge.Valid())
	assert.True(t, ModeMergeResolve.Valid())
	assert.True(t, ModeCherryPick.Valid())
	assert.False(t, MergeMode("").Valid())
	assert.False(t, MergeMode("rebase").Valid())
}
