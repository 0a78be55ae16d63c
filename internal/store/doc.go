// Package store persists the append-only monitoring history: one record per
// check, the content items a changed check produced, and the outcome of any
// notification fan-out. The most recent changed check is the "previous state"
// the next run compares against.
//
// There is no transaction spanning CreateCheck/AddItems/LogNotification; a
// crash in between can leave an orphaned check record. The next run simply
// reads whatever the latest committed state is, so the window is accepted
// rather than guarded.
package store
