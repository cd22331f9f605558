// Package records implements the shared record store the coordinators run
// against.
//
// The backing store offers per-path atomic writes with last-write-wins
// semantics, an equality query on the group id, and push delivery of
// record-change events to subscribers. RedisStore maps this contract onto
// Redis: records are hashes keyed by id (one hash field per leaf path),
// group membership and per-group record indexes are sets, change push is
// pub/sub on a per-group channel, and the single compare-and-swap in the
// system (accepting an invitation) is a WATCH transaction. There are no
// cross-record transactions anywhere else; callers tolerate races by
// re-deriving state instead of locking.
package records
