// Package bridge turns an immutable database image into a live SQLite
// connection and back.
//
// Every unit of work runs against a private Handle: a single pinned
// connection to one engine instance that exists only for the duration of a
// call. A Strategy decides where that instance lives:
//
//   - MemoryStrategy keeps the database in memory. The image is first adopted
//     into a buffer allocated by SQLite's own allocator (the engine frees and
//     may reallocate that buffer later, so it must never be Go memory), then
//     its pages are copied into a growable in-memory database which becomes
//     the live handle. Capture serializes the main schema back into a
//     Go-owned byte slice.
//   - TempFileStrategy writes the image to a private temporary file and opens
//     that file. Capture closes the handle and reads the file back. A
//     read-only round trip through this strategy is byte-identical.
//
// Persistent handles (OpenPersistent) bind to a caller-supplied path and are
// used for import/export; Copy performs the page-level backup between two
// handles with a bounded retry policy for busy or locked pages.
//
// Handles are not safe for concurrent use. Strategies hold no mutable state
// and may be shared.
package bridge
