// Package each contains ready-made per-task handlers for potok nodes. They
// are plain constructors returning EachFulfilledFunc or EachRejectedFunc
// values, so they drop straight into potok.Handlers.
//
// Highlights:
// - Map/Try/FailOnError: transform or check a fulfilled value
// - Validate/Filter: reject or drop values that do not qualify
// - Tee: side effects on fulfilled values
// - Steps: run several fulfilled handlers in sequence, stopping early
// - Recover/Ignore: turn rejections into values or drop them
package each
