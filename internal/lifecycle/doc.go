// Package lifecycle implements the synthetic owner a detached surface needs to host content.
//
// An Owner bundles three capabilities: a forward-only lifecycle state machine with observers,
// a saved-state registry that must be restored exactly once before the first transition, and a
// transient object store scoped to the owner's lifetime. Callers serialize Advance and
// RestoreState; State and Observe are safe from any goroutine.
package lifecycle
