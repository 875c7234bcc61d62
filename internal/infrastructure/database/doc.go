// Package database manages the SQLite connection for Relay Automation Core.
//
// It opens the database with WAL mode and a busy timeout, applies embedded
// SQL migrations in version order, and exposes health checks for the
// startup sequence.
package database
