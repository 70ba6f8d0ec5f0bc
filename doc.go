// Package bookshelf implements the account lifecycle for a multi-user e-book
// shelf gated by administrator approval.
//
// Account lifecycle:
//   - Every user record carries a UserStatus persisted via Bun. Accounts start
//     pending and only become usable once an administrator approves them; the
//     sign-in path enforces the gate even when the credential check succeeds.
//   - ApprovalWorkflow centralizes the admin transitions (approve/reject) plus
//     the best-effort credential confirmation that rides along with approval.
//
// Security sinks:
//   - SecuritySink is a light-weight audit emitter used by the orchestrator and
//     the approval workflow to describe registration, login, and admin events.
//     Sinks run best-effort (errors are logged) so a degraded log store never
//     blocks the user-visible flow.
//
// Registration throttling:
//   - RegistrationThrottle bounds sign-up attempts per origin and per
//     (origin, email) pair over a rolling window. The check fails open when
//     the backing store is unreachable.
package bookshelf
