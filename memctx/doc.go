// Package memctx bridges the host's hierarchical arena allocator to Go.
//
// The host has no per-call allocation-target parameter: "allocate here" is
// expressed by switching the active context. With performs that switch with
// guaranteed restoration on every exit path, so scopes follow strict stack
// discipline.
//
// Allocations are never freed individually. Reclamation happens exclusively
// through context reset or deletion, which invalidates every reference
// derived from the context at once. Guard captures a context's identity and
// generation when a reference is taken, turning a would-be use-after-reset
// into a checkable dangling-reference error instead of a memory access into
// reclaimed storage.
package memctx
