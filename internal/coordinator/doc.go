// Package coordinator turns operator and product events into ledger writes,
// feedback messages and actuator commands.
//
// The Engine owns one subscription over the operator, product and raw tag
// topics and handles messages one at a time on a single goroutine, so at most
// one validation decision mutates the ledger and the StateCache at any moment.
// A floorbus.Watchdog runs beside it and only resets the subscription after a
// reconnect; it never touches validation state.
//
// Decisions are made by the Validator against the StateCache (the latest
// operator session and the latest product run, globally) plus targeted ledger
// lookups. The Emitter maps each decision to bus messages.
package coordinator
