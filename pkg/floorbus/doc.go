// Package floorbus provides the typed message bus shared by the floor
// coordinator, the telemetry ingester and the floor CLI.
//
// # Overview
//
// The bus is Redis Pub/Sub. Field devices (badge terminals, product scanners,
// I/O modules and machine controllers) exchange JSON messages on a small, fixed
// set of topics. Topic strings are used verbatim as Redis channel names so a
// device gateway can bridge them one-to-one.
//
// # Topics
//
//	data/manpower            operator check-in/out requests   {operatorId, operatorName}
//	data/product             product run toggles              {machineId, productId}
//	data/machine             single raw tag samples           {tagName, tagValue}
//	machine_01/data          batched telemetry                {ts, readings:[{tag, value}]}
//	data/feedback/manpower   operator feedback                {operatorId, operatorName, success, message}
//	data/feedback/product    product feedback                 {machineId, productId, success, message}
//	machine_01/cmd           actuator commands                {writes:[{tag, value}]}
//
// All topics are configurable through Topics; DefaultTopics returns the set
// above.
//
// # Delivery
//
// Pub/Sub is at-most-once. A Subscription delivers raw messages in arrival
// order on a single channel; decoding is left to the consumer because the
// decoder depends on the topic. Payloads that cannot be decoded are reported
// as ErrMalformedPayload and must be dropped by the caller.
//
// # Connectivity
//
// Watchdog pings the broker on a fixed interval and walks the
// connected → disconnected → retrying → connected state machine, retrying with
// bounded exponential backoff. On recovery it invokes a callback, normally
// Subscription.Reset, so the subscription is re-established on a fresh
// connection.
package floorbus
