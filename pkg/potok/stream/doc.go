// Package stream adapts potok nodes to external push sinks and pull sources.
// It only relies on the potok.Receiver contract, so anything with Enter and
// End can be fed or drained here.
//
// # Sink
//
// Sink is a Receiver that writes settled units in the order they were
// entered. Fulfilled values go to OnValue, rejections to OnError, nulls are
// skipped. OnEnd runs once, after the last write. NewLineSink and
// NewChanSink cover the usual io.Writer and channel targets.
//
// # Sources
//
// FromSlice, FromResults, FromChannel and FromReader translate a source's
// data, error and end signals into Enter and End calls. They block until the
// source is exhausted and always end the receiver.
package stream
