package merger

// projectBranch keys the speculative cache: one entry per (project, branch)
// pair per queue pass.
type projectBranch struct {
	project string
	branch  string
}

// speculativeCache maps (project, branch) to the most advanced merged commit
// produced so far in the current queue pass. It is created empty at the start
// of each MergeChanges call and discarded at its end; durable memoization
// lives in the marker references instead.
type speculativeCache map[projectBranch]string

func (c speculativeCache) get(project, branch string) (string, bool) {
	commit, ok := c[projectBranch{project: project, branch: branch}]
	return commit, ok
}

func (c speculativeCache) put(project, branch, commit string) {
	c[projectBranch{project: project, branch: branch}] = commit
}
