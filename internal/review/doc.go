// Package review implements the sequential review chain engine: an
// ordered list of reviewer roles, spawned one at a time against a merged
// phase branch, advancing on approval, restarting from the first reviewer
// whenever a fix is applied, and escalating to a human when a reviewer
// asks for one.
package review
