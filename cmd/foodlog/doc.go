// Package main hosts the foodlog CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the capture service:
// estimating meals, exporting them into the note, keeping the Meals Table and
// daily totals in sync, and running the watcher or tool server. It resolves
// configuration and logging once so subcommands only deal with output.
package main
