// Package status delivers crawl progress notifications without ever
// blocking the crawl loop.
package status

import "sync/atomic"

// Update is one progress notification
type Update struct {
	Phase        string
	Message      string
	PagesScraped int
	QueueDepth   int
	Accepted     int
}

// Notifier fans updates into a buffered channel, dropping them when the
// consumer falls behind. A nil Notifier discards everything.
type Notifier struct {
	updates chan Update
	dropped atomic.Int64
}

// NewNotifier creates a notifier buffering up to size updates
func NewNotifier(size int) *Notifier {
	return &Notifier{updates: make(chan Update, size)}
}

// Notify publishes u if there is room
func (n *Notifier) Notify(u Update) {
	if n == nil {
		return
	}
	select {
	case n.updates <- u:
	default:
		n.dropped.Add(1)
	}
}

// Updates returns the channel updates are delivered on
func (n *Notifier) Updates() <-chan Update {
	return n.updates
}

// Dropped returns how many updates were discarded
func (n *Notifier) Dropped() int {
	if n == nil {
		return 0
	}
	return int(n.dropped.Load())
}

// Close ends delivery. Notify must not be called afterwards.
func (n *Notifier) Close() {
	if n != nil {
		close(n.updates)
	}
}
