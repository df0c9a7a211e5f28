// Package store persists hiscores entities in SQLite or PostgreSQL.
//
// Each entity maps to one table described in schema.go and created from the
// embedded schema files. Writes go through Apply, which runs every operation
// kind in a single transaction and returns raw stored values; the access
// layer decodes them. Reads go through Select, which supports partial
// column selection.
//
// # Value representation
//
// Counters that may exceed 2^53 are stored as TEXT (SQLite) or NUMERIC
// (PostgreSQL) and scanned into codec.StoredNumeric, so no driver ever
// routes them through float64. Timestamps are stored in UTC.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema versions are tracked with PRAGMA user_version on SQLite and a
// schema_version table on PostgreSQL.
package store
