package queue

import "errors"

// ErrQueueClosed marks enqueue attempts on a closed queue.
var ErrQueueClosed = errors.New("queue closed")
