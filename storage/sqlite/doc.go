// Package sqlite implements the metadata store on a single SQLite
// database file, using the pure-Go modernc.org/sqlite driver. Schema
// changes ship as embedded migrations applied on open.
package sqlite
