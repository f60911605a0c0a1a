// Package potok contains the result-aggregation node: a unit of a pipeline
// that accepts asynchronously settling units of work, runs each of them
// through a fixed handler set and collects the outcomes in arrival order.
// Fulfilled nulls are dropped unless the node passes nulls; rejections are
// always kept as data.
//
// Key operations:
// - New: build a Node from Handlers and Options
// - Enter/Push/PushFinal: feed units, bypassing handlers for Push
// - End/LazyEnd: close the node; Ended/Wait deliver the outcome list
// - Chain/Pipe/Branch: forward outcomes to any Receiver
// - Combine: fan several nodes into one that ends after all of them
// - FailOnReject/OnlyFulfilled/OnlyRejected: project the outcome list
//
// Nothing accepted is ever cancelled: handler contexts keep the values of the
// context passed to New but never its cancellation.
package potok
