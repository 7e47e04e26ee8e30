// Package remote is the client for the flow persistence API.
//
// The API has two routes:
//
//	GET /flows/{graphId}  -> {"name": ..., "nodes": [...], "edges": [...]}
//	PUT /flows/{graphId}  <- {"name": ..., "nodes": [...], "edges": [...]}
//
// Loads are idempotent and retried on transient failures. Saves are not
// retried; the next debounced save supersedes a failed one. Saves go
// through a circuit breaker so a failing backend is not hammered by every
// edit.
//
// Every failure is returned as a categorized error from the errors
// package. Non-2xx responses carry an *errors.HTTPError; a 401 also fires
// the OnUnauthorized hook.
package remote
