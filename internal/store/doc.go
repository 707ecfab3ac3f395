// Package store provides SQLite-backed durable storage for daily menus,
// principals and lunch orders.
//
// The store is the authoritative source the allocator reloads inside the
// commit critical section. It keeps no cache of its own; every read goes to
// the database.
//
// # Orders
//
//   - Active orders are rows with cancelled_at IS NULL.
//   - A partial UNIQUE index on (menu_id, owner_id) allows one active order
//     per user and menu.
//   - CreateOrder inserts with a conditional INSERT ... SELECT so the row is
//     only written while the table's active count is below capacity. This
//     backs the in-process commit lock; it does not make the service safe to
//     run as several instances.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Timestamps are stored as RFC 3339 text in UTC.
package store
