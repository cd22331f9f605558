// Package guard implements the cooldown checks that rate limit safety
// checks and direct SOS alerts.
//
// Both checks are pure predicates over state the caller has already read;
// there is no locking. Two concurrent "allowed" evaluations can admit two
// near-simultaneous operations, which the coordinators tolerate through
// idempotent aggregation rather than mutual exclusion.
package guard
