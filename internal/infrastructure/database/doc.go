// Package database owns the hwcore SQLite store: the last-known value
// of every device control (replayed into the hardware after a power
// cycle or restart) and the device state transition history.
//
// Schema changes ship as embedded *.up.sql files applied by Migrate.
// Steps are additive only: new columns are nullable or carry defaults,
// and nothing is dropped or renamed, so an old binary can still read a
// newer database.
package database
