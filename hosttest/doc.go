// Package hosttest provides an in-process pgbridge.Host for tests: context
// memory with generation-tagged reclamation, lz4-backed toast storage, error
// reports that unwind as panics, named shared regions with reader/writer
// locks, and injectable interrupts. It exists so every other package can be
// tested against host semantics without a running database.
package hosttest
