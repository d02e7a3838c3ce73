// Package ledger provides SQLite-backed durable storage for the floor.
//
// The ledger holds three append-only tables and two master registries:
//   - operator_sessions: operator check-in ("active") and check-out ("ended") rows
//   - product_runs: product run "start"/"stop" rows per machine
//   - telemetry_samples: raw and batched tag samples
//   - operators, products: master data used for identity checks
//
// # Ordering
//
// "Latest" always means highest id, i.e. append order. Timestamps are recorded
// for reporting only and never used to order rows, so two rows written in the
// same clock tick still have a well-defined order.
//
// # Database Configuration
//
//   - WAL mode: the coordinator and the ingester share one database file
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for the other process's write lock up to 5 seconds
package ledger
