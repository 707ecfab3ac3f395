// Package allocator commits draft orders against table capacity.
//
// Commit is the only place an Order is created. It runs the critical
// section under a single process-wide named lock (CommitLockName):
//
//  1. acquire the lock
//  2. reload the active menu from the store, bypassing any cache
//  3. re-validate the draft against the reloaded menu
//  4. check the reloaded deadline
//  5. reject a second active order for the same user
//  6. recount active orders for the chosen table and compare to capacity
//  7. insert the order (all or nothing)
//  8. release the lock on every exit path
//
// Only after the lock is released, and only on success, a notification is
// handed to the Notifier without waiting for delivery.
//
// The lock serializes commits inside one process. Running several
// instances against one database is not supported; the store's conditional
// insert still refuses to overfill a table, but no other guarantee is made.
package allocator
