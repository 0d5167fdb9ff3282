// Package prefs holds the editor's preference root and its persistence.
//
// A Root owns the scalar preferences (undo depth, volumes, receptor
// position, view toggles, the default expressed config), the expressed and
// performed chart config collections, and the key-binding table. Every
// mutable value fires a notification on change.
//
// Preferences are stored as TOML by default, or YAML when the path ends in
// .yaml or .yml. Loading never fails: unreadable or corrupt files fall back
// to defaults, unknown enum names fall back to their default value, and the
// loaded state is repaired before it is observed (built-ins reseeded,
// invalid entries pruned, out-of-range scalars clamped). Files written by
// older versions are migrated by version number before decoding.
//
// Loads replace the contents of an existing Root in place, so observers
// attached to the Root and its collections stay attached.
package prefs
