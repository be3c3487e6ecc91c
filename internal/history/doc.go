// Package history keeps a SQLite ledger of completed conversion batches.
//
// Each run stores its summary counts, backend, and timing, along with one
// row per item outcome. The CLI "rawconv history" command reads it back.
// Gate refusals and empty batches are not recorded.
//
// The schema is versioned; a mismatched database must be deleted and is
// recreated on the next run.
package history
