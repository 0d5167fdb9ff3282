// Package configset manages named, user-editable configuration entries.
//
// Each Entry has a permanent identity (a UUID) that survives renames and
// save/load round-trips, a display name that is unique within its
// Collection, a description, and a domain payload.
//
// A Collection is seeded with built-in entries that have well-known
// identities. Built-ins cannot be deleted or renamed, and ReseedBuiltins
// recreates them from the hard-coded defaults after every load so that they
// always match the current release.
//
// Collections order entries for display with built-ins first (in declared
// order), then user entries alphabetically, then by identity.
//
// The command constructors in this package return (command, ok). ok is
// false when the edit would be rejected (a name collision, deleting a
// built-in) or would have no effect; callers must not submit in that case.
package configset
