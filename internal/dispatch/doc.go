// Package dispatch implements the guarded gateway client: a stateful
// wrapper around the external agent-spawn RPC that enforces a circuit
// breaker, a sliding-window rate limiter, unique spawn labels, exponential
// backoff, and optional post-spawn verification before a spawned session is
// trusted.
package dispatch
