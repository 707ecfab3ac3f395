// Package order defines the lunch order records exchanged between the
// conversation engine, the allocator and the store.
//
// A Draft is owned by exactly one session and is mutated step by step while
// the user walks through a flow. An Order is the immutable result of a
// successful commit; only its rating and cancellation mark change afterwards.
//
// INVARIANTS:
//   - Exactly one of First/Second is set on a committed Order.
//   - An Order always references the menu and table it was committed against.
package order
