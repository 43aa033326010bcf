// Package services defines the shared error taxonomy used across the
// workflow engine. Operations tag failures with one of the sentinel errors so
// callers can distinguish validation problems, missing records, conflicts,
// and transient store failures without inspecting message text.
package services
