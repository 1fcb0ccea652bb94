// Package repositories implements SQLite persistence for download history.
//
// [HistoryRepository] stores one jobs row per finished job and one downloads row per track outcome,
// written in a single transaction. History is an audit log: nothing in the download path reads it back.
//
// Sequence numbers provide stable ordering independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments named counters in the sequences table.
package repositories
