// Package remito is the authorization, status workflow and audit core of a
// multi tenant remito (delivery note) service.
//
// Sessions:
//   - EffectiveSession is passed explicitly to every operation. Its Identity is
//     the acting identity; while an administrator impersonates somebody the
//     original identity is kept in the Impersonating back-reference and only
//     used for audit attribution.
//   - Guard resolves the acting identity and pins non SUPERADMIN identities to
//     their own tenant. ImpersonationBroker starts and stops impersonations.
//   - SessionCodec carries sessions across requests as HS256 tokens.
//
// Statuses:
//   - StatusRegistry keeps a per tenant catalog of named, colored statuses.
//     Definitions are deactivated rather than deleted, so history that refers
//     to them stays valid.
//   - StatusWorkflow moves remitos to any active status of their tenant. The
//     status write and the history entry share one transaction; cached views
//     are invalidated afterwards and the audit record is queued.
//
// Activity:
//   - ActivityLog queues events and writes them through an ActivitySink on a
//     worker goroutine. Recording never blocks nor fails the caller; dropped
//     events are logged and counted.
package remito
