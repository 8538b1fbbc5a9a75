// Package ingest turns the upstream directory exports into the stored
// office graph and the postcode reference data.
//
// # Office ingestion
//
// Coordinator.Load validates the header of every source, then inside one
// transaction defers the referential constraints, deletes the existing
// offices, served areas and opening times, builds the new graph with
// OfficeGraphBuilder and OpeningTimeBuilder and inserts it. Any error rolls
// the whole run back and the previously committed dataset stays in place.
//
// # Reference data
//
// ReferenceLoader.Load replaces the local authorities and upserts the
// postcode table keyed by normalised postcode. Postcode chunks are written
// while the next chunk is read. It returns the AuthoritySet that office
// ingestion validates authority references against.
//
// # Errors
//
// Header mismatches wrap schema.ErrHeaderMismatch and unknown type codes
// wrap ErrUnrecognisedCode; both abort the run. Single-row data problems
// (dangling references, blank required fields, closes-before-opens) drop
// or repair the row and are counted in the result and in metrics.
//
// Runs must be serialised by the caller. See Lock.
package ingest
