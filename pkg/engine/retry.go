package engine

import (
	"time"

	"github.com/loopcraft/loopcraft/pkg/buffer"
)

// retryAttempts and retryDelay match the frontend's send policy: the
// command (and event-consumption) queues are bounded SPSC rings, so a
// send can transiently fail while the audio thread is mid-cycle. The
// frontend is not real-time, so it is allowed to retry with a short
// sleep rather than fail immediately.
const (
	retryAttempts = 100
	retryDelay    = 10 * time.Millisecond
)

// RetrySend pushes v onto ring, retrying with a short sleep if the ring
// is momentarily full. Reports false if it never succeeded within the
// retry budget; the caller surfaces that as a failure to whatever
// initiated the send.
func RetrySend[T any](ring *buffer.Ring[T], v T) bool {
	for i := 0; i < retryAttempts; i++ {
		if ring.TryPush(v) {
			return true
		}
		time.Sleep(retryDelay)
	}
	return false
}
