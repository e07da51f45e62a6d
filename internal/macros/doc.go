// Package macros normalizes heterogeneous nutrition payloads into a canonical
// four-field macro set.
//
// Payloads are held as gjson results so object keys keep their document
// order; every traversal is therefore deterministic. Extraction runs an
// ordered pipeline of strategies (direct synonym keys, deep structural
// search, loose key patterns, free-text regexes) and stops at the first
// strategy that yields any value. Nothing in this package returns an error:
// missing data is reported as nil fields.
//
// The package also owns the tolerant number parser and the cell/total
// formatting rules shared by the ledger renderer.
package macros
