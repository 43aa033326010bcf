// Package store provides SQLite-backed persistence for jobs, parts,
// inspections, and the audit trail.
//
// A single Store owns the database handle, a process-level lock file, and a
// per-job mutex table used by callers that need to serialize read-modify-write
// cycles on one job. All timestamps are stored as RFC 3339 strings in UTC.
package store
