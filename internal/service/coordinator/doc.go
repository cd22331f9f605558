// Package coordinator implements the safety/SOS coordination engine: the
// safety check lifecycle, the SOS alert lifecycle, response aggregation and
// group status derivation.
//
// Every client process runs its own coordinators against the shared record
// store; there is no central coordinator and no distributed lock. Races
// between clients are tolerated by idempotent recomputation: after every
// mutation the group status is re-derived from currently visible records by
// the pure resolver and written unconditionally, so any two racing writers
// converge once both writes are visible.
package coordinator
