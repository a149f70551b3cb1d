package conflict

import (
	"fmt"
	"strings"

	"github.com/karlmjogila/swarmops/internal/phase"
)

// buildPrompt assembles the conflict-resolution prompt: project goal, the
// failing branch's own task, every other branch already folded into the
// phase branch, and a per-file block with the working tree (still carrying
// conflict markers) alongside the two ref versions.
func buildPrompt(projectGoal, failedBranch, targetBranch string, contexts []phase.WorkerTaskContext, versions []fileVersions) string {
	var b strings.Builder

	if projectGoal != "" {
		fmt.Fprintf(&b, "Project goal: %s\n\n", projectGoal)
	}

	fmt.Fprintf(&b, "A merge of branch %q into %q produced conflicts.\n\n", failedBranch, targetBranch)

	for _, ctx := range contexts {
		label := "Previously merged task"
		if ctx.Branch == failedBranch {
			label = "Failing task (this branch's changes are being merged)"
		}
		fmt.Fprintf(&b, "%s — branch %s (task %s):\n%s\nChanged files: %s\n\n",
			label, ctx.Branch, ctx.TaskID, ctx.CommitLog, strings.Join(ctx.ChangedFiles, ", "))
	}

	fmt.Fprintf(&b, "Conflicting files (%d):\n\n", len(versions))
	for _, v := range versions {
		fmt.Fprintf(&b, "--- %s ---\n", v.Path)
		fmt.Fprintf(&b, "Working tree (contains conflict markers):\n%s\n\n", v.WorkingTree)
		fmt.Fprintf(&b, "At %s:\n%s\n\n", failedBranch, renderVersion(v.AtSource, v.AtSourceOK))
		fmt.Fprintf(&b, "At %s:\n%s\n\n", targetBranch, renderVersion(v.AtTarget, v.AtTargetOK))
	}

	b.WriteString(
		"Resolve each conflict in the working tree, preserving the intent of both sides " +
			"where possible. Stage and commit the resolution. When done, POST a completion " +
			"notification to the orchestrator's fix-complete callback.",
	)
	return b.String()
}

func renderVersion(content string, ok bool) string {
	if !ok {
		return "(file does not exist at this ref)"
	}
	return content
}
