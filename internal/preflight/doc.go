// Package preflight provides readiness checks for the note, the state
// directory and the estimator backend.
//
// The CLI "foodlog doctor" command runs RunAll and prints each result.
// Commands that estimate meals only need CheckEstimator; the watcher and
// tool server start after CheckNote passes.
package preflight
