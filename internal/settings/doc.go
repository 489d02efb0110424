// Package settings defines the user's filter settings and how they are
// normalized, stored and backed up.
//
// A Settings value is a snapshot. It is never changed in place: the With*
// helpers return a new snapshot, and consumers replace their copy wholesale
// when a Store reports a change.
//
// Malformed or missing input never fails: it normalizes to the permissive
// default, which is disabled with no terms.
package settings
