// Package batch runs the concurrent conversion pipeline.
//
// A Runner consults the preflight gate, enumerates WorkItems, selects the
// enhancement backend once, and hands the items to a bounded worker pool.
// Each worker runs Convert (decode, enhance, encode) and turns every failure,
// including panics, into a failed Outcome, so one bad file never stops the
// batch. Outcomes are collected under a mutex and sorted by source path when
// the Report is built.
package batch
