// Package queue defines message payloads exchanged over the message
// broker and the background consumer that processes them.
package queue

// SeatsReleasedEvent is published after a sweep cycle returned expired
// seat holds to the available pool.  It carries enough information for
// downstream consumers to log or trigger analytics without querying the
// primary database.
type SeatsReleasedEvent struct {
	Count      int64  `json:"count"`
	ReleasedAt string `json:"released_at"`
}
