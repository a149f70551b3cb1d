package conflict

// DispatchParams describes a single failed merge step awaiting resolution.
type DispatchParams struct {
	RunID         string
	PhaseNumber   int
	RepoDir       string
	PhaseBranch   string
	SourceBranch  string
	TargetBranch  string
	ConflictFiles []string
	ProjectGoal   string
}

// fileVersions bundles the three renderings of a conflicting file the
// resolver prompt needs: the working tree (with conflict markers still in
// place), and the file as it exists at each side of the failed merge.
type fileVersions struct {
	Path        string
	WorkingTree string
	AtSource    string
	AtSourceOK  bool
	AtTarget    string
	AtTargetOK  bool
}
