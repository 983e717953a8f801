package media

import "sync"

// Status is a snapshot of the engine's observable state.
type Status struct {
	Phase Phase
	// Fraction is overall run progress in [0,1]. Hashing advances it
	// through [0, 0.45], a successful server check jumps it to 0.5, and
	// uploads advance it through [0.5, 1.0].
	Fraction float64
	// Upload is item-level upload progress, zero-valued outside the
	// upload phase.
	Upload UploadProgress
	// Err is the terminal error message when Phase is PhaseError.
	Err string
}

// statusFeed publishes engine status to subscribers. The engine is the
// single writer; subscribers read snapshots or watch a channel that
// always carries the latest status (intermediate updates may be dropped,
// never delivered out of order).
type statusFeed struct {
	mu   sync.Mutex
	cur  Status
	subs map[chan Status]struct{}
}

func newStatusFeed() *statusFeed {
	return &statusFeed{
		subs: make(map[chan Status]struct{}),
	}
}

// Current returns the latest status snapshot.
func (f *statusFeed) Current() Status {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cur
}

// Subscribe registers a watcher. The returned channel has capacity one
// and is primed with the current status; cancel must be called to
// release it.
func (f *statusFeed) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	ch <- f.cur
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}

	return ch, cancel
}

// publish replaces the current status and notifies subscribers. A
// subscriber that has not drained its channel gets the stale value
// replaced so it always observes the newest status.
func (f *statusFeed) publish(s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cur = s

	for ch := range f.subs {
		select {
		case ch <- s:
		default:
			// Drop the stale buffered value and replace it.
			select {
			case <-ch:
			default:
			}

			ch <- s
		}
	}
}
