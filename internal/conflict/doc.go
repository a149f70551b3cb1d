// Package conflict implements the conflict resolver dispatcher: given a
// merge step that stopped on conflicting files, it builds a context-rich
// prompt from phase task history and per-file content at both branches,
// and spawns an AI agent to resolve the conflict in place.
package conflict
