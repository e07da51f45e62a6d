// Package notes owns every read and write of the ledger note.
//
// A Ledger serializes writers with a cross-process file lock, applies a
// transform to a fresh snapshot, re-reads the note before committing and
// refuses to overwrite edits made in the meantime. Writes land atomically and
// their content digest is registered with a Guard so the note watcher can
// recognize and skip its own echo.
package notes
