// Package capture turns estimator replies into ledger entries and writes
// them into the food log note.
//
// The flow mirrors how a meal is logged by hand: estimate (photo or text),
// optionally correct or apply a portion weight, finalize, then export. The
// latest reply is kept as the session payload in the entry store so each
// step can run as a separate command.
//
// Export depends on the configured ledger mode. In meals_table mode the meal
// becomes a block plus a Meals Table row. In daily mode it becomes a base
// table row of its day section, preceded by the reply's markdown when the
// backend supplied one. Both modes record the entry in the store.
//
// Every note write goes through notes.Ledger, so a missing note fails with
// notes.ErrTargetNotFound and nothing is created.
package capture
