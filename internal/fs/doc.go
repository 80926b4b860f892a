// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: Represents an open file with read/write/sync capabilities
//   - [FileSystem]: Abstracts filesystem operations (open, remove, rename, etc.)
//
// # Implementations
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility for fault injection (simulate I/O errors)
//
// # Atomic writes
//
// Every file the engine materializes (partition output, cached datasets)
// goes through [WriteAtomic]: data streams into a sibling temporary path and
// is renamed into place only after a successful sync. An aborted write never
// appears at its final path.
//
// # Design Notes
//
// This package intentionally does NOT include context.Context parameters.
// Filesystem operations are typically fast (microseconds for local NVMe) and
// non-interruptible at the syscall level. Cancellation applies at the level
// of the operation producing the data, not the syscalls persisting it.
package fs
