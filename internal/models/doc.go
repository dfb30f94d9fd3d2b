// Package models defines the core domain models for Fare.
//
// # Models
//
//   - TimeSlot: a scheduled dinner occasion users sign up for
//   - Signup: one user's registration for a time slot
//   - DinnerGroup: signups seated together by the matcher
//   - GroupMember: one signup placed in a dinner group
//   - Restaurant: a venue groups are sent to
//   - User: a diner or operator account
//
// # Lifecycles
//
// Signups start pending and become grouped when the matcher places them.
// A diner may cancel while still pending. Signups are never deleted by the
// matcher.
//
// Time slots start open. A matching run claims the slot (matching), then
// leaves it grouped when every group it planned was persisted, or open
// otherwise. A claim left behind by a dead process is reopened once it is
// stale. Only open slots accept signups, and a user holds at most one live
// signup per slot. Closed slots are never matched.
//
// Relationships use ID strings rather than pointers.
package models
