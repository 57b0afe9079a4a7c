// Package pipeline buffers points and delivers them to sinks in batches.
//
// Points accumulate in a single lineprotocol.Batch guarded by a mutex. A
// flush detaches the batch with CloneAndClear, renders it once per distinct
// sink precision and hands the bytes to every sink. A payload a sink fails
// to accept is written to the spool and retried by Replay.
//
// Flushes happen when the batch reaches the configured size, on the flush
// interval, and on Close.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Flushes are serialised so sinks
// see batches in the order they were detached.
package pipeline
