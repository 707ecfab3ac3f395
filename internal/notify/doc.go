// Package notify delivers best-effort notifications about committed orders.
//
// Notify never blocks the caller: events are appended to an unbounded
// in-memory queue and delivered by Dispatcher.Run on its own goroutine.
// A failing sink is logged and skipped; nothing is retried and nothing is
// reported back to the code that committed the order.
package notify
