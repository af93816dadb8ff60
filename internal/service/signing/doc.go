// Package signing implements the petition signature intake and confirmation
// workflows.
//
// The service layer contains all business logic: submission validation,
// disposable-email policy, bot verification, duplicate and rate-limit checks,
// the pending/confirmed status decision, and the single pending -> confirmed
// state transition. It depends on the Repository, BotChecker, Notifier and
// RateLimiter interfaces defined in this package and should never import
// from api/.
//
// Repository implementations live in repository/postgres/.
package signing
