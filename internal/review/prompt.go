package review

import (
	"fmt"

	"github.com/karlmjogila/swarmops/internal/config"
)

var builtinRolePrompts = map[string]string{
	"reviewer": "You are a general code reviewer. Check correctness, test coverage, and " +
		"adherence to the surrounding codebase's conventions.",
	"security-reviewer": "You are a security reviewer. Check for injection vulnerabilities, " +
		"authentication/authorization gaps, and unsafe handling of secrets or untrusted input.",
	"designer": "You are a UI/design reviewer. Check visual consistency, accessibility, and " +
		"adherence to the project's component and layout conventions.",
	"fixer": "You are applying a requested fix. Make the minimal change that satisfies the " +
		"instructions below, then commit.",
	"conflict-resolver": "You are resolving a merge conflict. Reconcile the conflicting hunks " +
		"in place, preserving the intent of both sides where possible, then commit.",
	"builder": "You are implementing a task from a task list. Make the change described, " +
		"then commit.",
}

// roleInstructions returns the role's prompt, preferring an operator
// override from ReviewConfig.RolePrompts over the built-in default.
func roleInstructions(role string, cfg config.ReviewConfig) string {
	if override, ok := cfg.RolePrompts[role]; ok && override != "" {
		return override
	}
	if builtin, ok := builtinRolePrompts[role]; ok {
		return builtin
	}
	return "You are reviewing a code change."
}

const decisionCallbackSpec = `Respond with exactly one decision:
- approve: the change is acceptable as-is.
- fix: the change needs a specific correction; include fixInstructions describing it.
- escalate: the change needs human judgment; include escalationReason.`

// buildReviewerPrompt assembles the prompt for the reviewer at the chain's
// current position: role instructions, the chain position string, and the
// three-decision callback contract.
func buildReviewerPrompt(state *ChainState, cfg config.ReviewConfig) string {
	role := state.CurrentRole()
	return fmt.Sprintf(
		"%s\n\n%s\n\nReview branch %q in %s.\n\n%s",
		roleInstructions(role, cfg),
		state.PositionString(),
		state.PhaseBranch,
		state.RepoDir,
		decisionCallbackSpec,
	)
}

// buildFixerPrompt assembles the prompt for a fixer agent responding to a
// "fix" decision.
func buildFixerPrompt(state *ChainState, fixInstructions string, cfg config.ReviewConfig) string {
	return fmt.Sprintf(
		"%s\n\nBranch %q in %s.\n\nRequested fix:\n%s",
		roleInstructions("fixer", cfg),
		state.PhaseBranch,
		state.RepoDir,
		fixInstructions,
	)
}

// reviewLabel builds the spawn label for a reviewer, per spec format
// "<role>:<phaseName>:phase-<n>". internal/dispatch.Client truncates and
// uniquifies further.
func reviewLabel(role, runID string, phaseNumber int) string {
	return fmt.Sprintf("%s:%s:phase-%d", role, runID, phaseNumber)
}

func fixerLabel(runID string, phaseNumber int) string {
	return fmt.Sprintf("fixer:%s:phase-%d", runID, phaseNumber)
}
