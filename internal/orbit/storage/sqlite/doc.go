// Package sqlite contains the SQLite repositories for capture sequences
// and calibration runs.
//
// All database read/write operations live here rather than in the core
// estimation package: the pipeline consumes an in-memory Sequence and
// never performs serialization itself, which keeps the geometry code free
// of SQL noise and makes the storage backend swappable in tests.
package sqlite
