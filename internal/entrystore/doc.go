// Package entrystore keeps the dated log of recorded meals in SQLite.
//
// Entries are appended in capture order and the oldest are evicted once the
// configured capacity is exceeded. Schema changes and one-time data fixes
// ship as embedded SQL migrations recorded in schema_migrations.
package entrystore
