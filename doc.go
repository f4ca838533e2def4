// Package sge implements the session and registration lifecycle of the
// Master 60+ sports management console: credential authentication with
// an offline fallback ladder, moderated user registration, forced
// password rotation, and role-gated navigation.
//
// Authentication:
//   - Gateway.Login tries the remote authority under a bounded timeout
//     and opens the fallback ladder (local identity store, then the
//     configured allow-list) only when the authority is unreachable.
//     A definitive remote rejection never falls back. Sessions persist
//     through SessionStore and survive process restarts.
//   - TokenService mints HS256 access tokens for both the authority
//     and the offline path; tokens carry the identity, role, and
//     session mode.
//
// Registration and approval:
//   - Gateway.Register validates submissions (CPF checksum included)
//     and records them durably before the best-effort remote delivery,
//     so the pending-approval state is reachable offline.
//   - Workbench lists pending requests for managers and resolves them.
//     Approval mints a temporary credential and an identity flagged for
//     rotation; rejection requires a reason. Resolution is terminal and
//     race-safe: concurrent approvers get exactly one winner.
//
// Shell:
//   - Shell is the screen-level state machine (loading, login,
//     register, pending-approval, change-password, authenticated). It
//     serializes mutating operations, routes rotation flags to the
//     change-password screen, and exposes role-filtered navigation.
//
// Activity sinks:
//   - ActivitySink receives login, registration, approval, and password
//     rotation events. Sinks run best-effort (errors are logged) so
//     audit forwarding never blocks authentication.
package sge
