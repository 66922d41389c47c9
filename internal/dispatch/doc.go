// Package dispatch implements the dispatcher's reactor-thread-resident
// core: the submission queue, the pending table, the worker-state table,
// the idle roster, and the dispatch/result/timeout/idle-sweep algorithms
// that tie them together. Everything in this package assumes it is only
// ever called from one logical thread of control — the reactor the
// Dispatcher was built against — except the Result Channel, which is the
// single deliberately-synchronized crossing point for worker goroutines.
package dispatch
