// Package safety contains the core domain types for group safety
// coordination.
//
// It defines Group, SafetyCheck, SafetyResponse and SOSAlert records, the
// GroupStatus priority ordering, the error taxonomy shared by the
// coordinators, and Resolve, the pure function that derives a group's
// status from the currently visible record set. Every coordinator mutation
// finishes by re-running Resolve and writing the result, so concurrent
// writers converge without locks.
package safety
