// Package ledger reads and rewrites the nutrition ledger embedded in a
// markdown note.
//
// A note holds free text plus marker-delimited regions: dated day sections
// (totals line, per-100g base table, derived portion table), meal blocks,
// and at most one meals table whose rows point back at the blocks through
// hidden id markers. Parse decomposes raw text into that structure with a
// line-oriented state machine; Sync, RemoveBlock, Aggregator and the
// writers transform text and are idempotent: a second pass over their own
// output is a no-op.
//
// Everything here is pure text in, text out. Persistence, locking and
// change notification live in the notes and watch packages.
package ledger
