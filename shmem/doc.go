// Package shmem provides cross-process shared state with an explicit
// registration lifecycle.
//
// A shared primitive moves through Unregistered -> Registered -> Initialized
// -> Ready. Registration reserves space during host startup, before any
// backend process attaches, and happens exactly once per process group.
// First access performs in-place construction, mutually exclusive across
// backends; later accesses read or mutate the constructed value. Accessing a
// primitive that was never registered is a lock protocol violation, reported
// with the cell's name and lifecycle state rather than silently ignored.
//
// SharedCell guards access with a lock in shared or exclusive mode, released
// on every exit path before any failure is reported. SharedAtomic skips the
// lock but admits only types the host can update with a single atomic
// primitive. Neither is ever individually freed: their lifetime is the
// server process group's.
package shmem
