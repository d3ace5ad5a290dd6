package identity

import "github.com/adsid/adsid-go/pkg/asyncx"

// waiter is a single entry in the Manager's waiter queue: a promise-shaped
// handle for a caller of GetAdvertisingTokenAsync that arrived before the
// lifecycle had a definitive answer.
type waiter = asyncx.Deferred[string]

func newWaiter() *waiter {
	return asyncx.NewDeferred[string]()
}

// drainWaiters resolves every queued waiter with token, in FIFO order, and
// empties the queue.
func drainWaiters(queue []*waiter, token string) []*waiter {
	for _, w := range queue {
		w.Resolve(token)
	}
	return queue[:0]
}

// rejectWaiters rejects every queued waiter with err, in FIFO order, and
// empties the queue.
func rejectWaiters(queue []*waiter, err error) []*waiter {
	for _, w := range queue {
		w.Reject(err)
	}
	return queue[:0]
}
