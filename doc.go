// Package pgbridge provides a Go runtime bridge for native code running inside
// a PostgreSQL server process as a loadable extension.
//
// The library bridges two incompatible memory and type models: the host's
// arena allocator (memory contexts), tagged type-erased values (datums) and
// transaction-scoped lifetimes on one side, and Go's ownership and type system
// on the other.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	pg-bridge/       Root package with Datum, Oid and the host interfaces
//	├── errors/      Structured error types with stable SQLSTATE codes
//	├── pgtypes/     Type OIDs, type metadata, tuple descriptors, null bitmaps
//	├── memctx/      Memory context bridge: scoped activation, allocation, guards
//	├── datum/       Datum <-> Go value marshaling, arrays, composites, detoasting
//	├── boundary/    Panic/error translation at every host call boundary
//	├── shmem/       Cross-process shared cells and atomics with LWLock discipline
//	├── fcall/       Function registry, marshaling wrappers, SQL DDL emission
//	├── manifest/    Extension manifest (TOML) and installation script assembly
//	└── hosttest/    Throwaway in-process host for tests
//
// # Memory Model
//
// Every host allocation belongs to exactly one memory context. Resetting or
// deleting a context invalidates every allocation under it and its descendant
// contexts; nothing is freed individually. Values decoded from host memory are
// borrowed by default and carry a guard naming their owning context. A
// borrowed value must be promoted to an owned copy before it outlives the
// scope in which its context is guaranteed alive.
//
// # Error Model
//
// The host's error reporting is a non-local jump, not a Go error. The two
// propagation channels are bridged at every entry and exit point by the
// boundary package: Go failures become host error reports before control
// returns to the host, and host error reports raised during host calls are
// caught and converted to Go errors before they cross native frames.
//
// # Process Model
//
// Each database backend is a separate OS process. The only state shared
// between backends is what the shmem package manages; cross-process ordering
// comes exclusively from its lock discipline.
package pgbridge
