// Package importer reconciles spreadsheet extracts from the external
// scheduling platform against the existing graph of events, teachers and
// volunteers.
//
// The package is organized around five pieces: the ImportBatch audit
// record, the UnmatchedRecord review queue, the event resolver, the
// participant resolver, and the Orchestrator that drives the per-row
// pipeline. It has no HTTP or decoding dependencies; rows arrive through
// the RowReader interface and entities are reached through the narrow
// store interfaces in Store, so any frontend and any storage backend can
// sit on either side.
package importer
