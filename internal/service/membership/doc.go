// Package membership manages group lifecycle and roster changes: creating
// and deleting groups, inviting members and accepting invitations.
//
// Roster invariants are enforced here, not in the store: the admin is always
// a member, the member and pending sets stay disjoint, and the admin can
// never be removed without deleting the group.
package membership
