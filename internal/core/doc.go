// Package core ties ingestion, resolution and office lookups together
// behind one Service used by the HTTP server, the CLI and the scheduler.
//
// # Ingestion
//
// Every write goes through the service's ingest.Lock, so at most one run
// touches the dataset at a time, across replicas when the lock is Redis
// backed. [Service.Refresh] opens the configured sources (local files or
// gs:// objects) and runs, under a single lock hold:
//
//  1. the reference load, replacing local authorities and upserting
//     postcodes, when a postcode source is configured
//  2. the office load, replacing offices, served areas and opening times
//
// Each stage commits on its own. A failed office load leaves the previous
// office dataset in place.
//
// [Service.LoadReference] and [Service.LoadOffices] run one stage from
// readers the caller already opened.
//
// # Reads
//
// [Service.Resolve] classifies a location query and returns matching
// offices. [Service.OfficeDetail] assembles an office page. Neither takes
// the lock; the store guarantees each read sees one committed dataset.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Error codes (SRC001, ING002, etc.) help operators match a report to the
// log line that holds the original error.
package core
