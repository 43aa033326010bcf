// Package notifications delivers quality escalations to the people who need
// to act on them.
//
// Escalations fan out as in-app notifications to every active user holding a
// configured quality role, with an optional ntfy push when a topic is
// configured. Delivery is best effort: a failed write for one recipient never
// blocks the others, and callers treat notification errors as non-fatal.
package notifications
