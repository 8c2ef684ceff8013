// Package bus provides a small synchronous multicast channel for in-process
// notifications.
//
// A Bus delivers every published message to every listener that was registered
// before the message was enqueued, in registration order. There is no replay:
// a listener never sees messages from before its subscription.
//
// Delivery model:
//
//	Publish = Enqueue + Flush. Enqueue fixes the position of a message in the
//	queue, Flush delivers the queue on the calling goroutine. Only one goroutine
//	delivers at a time; a Flush that finds delivery in progress returns at once
//	and its messages are delivered by the active deliverer. A listener that
//	publishes from inside its callback therefore does not deadlock, its message
//	is delivered after the current one has reached all listeners.
//
// Listeners are expected to return quickly. For consumers that prefer channels,
// SubscribeChan installs a buffered tap that drops messages when full.
package bus
