package frontier

import "sync"

// Record is one unit of crawl work: a normalized URL, how many links deep
// it was discovered, and the page it was discovered on.
type Record struct {
	// URL is the normalized absolute URL to fetch.
	URL string

	// Depth is the link distance from the root (root = 0).
	Depth int

	// Origin is the normalized URL of the page this one was found on.
	// Empty for the root.
	Origin string
}

// Stats is a point-in-time snapshot of frontier state, used by the crawl
// monitor and for progress logging.
type Stats struct {
	// Queued is the number of records awaiting dequeue.
	Queued int

	// InFlight is the number of records dequeued but not yet marked Done.
	InFlight int

	// Claimed is the total number of URLs ever admitted, including those
	// already processed. This equals the number of unique same-site URLs
	// discovered so far.
	Claimed int

	// Closed reports whether the frontier has been shut down.
	Closed bool
}

// Frontier is a thread-safe FIFO of URL records with built-in
// deduplication and quiescence detection. The zero value is not usable;
// call New.
//
// Ordering is approximate breadth-first: records are served in insertion
// order, but concurrent producers interleave, so no total order is
// guaranteed across workers.
type Frontier struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queue    []Record
	claimed  map[string]struct{}
	inFlight int
	closed   bool
}

// New creates an empty Frontier.
func New() *Frontier {
	f := &Frontier{
		claimed: make(map[string]struct{}),
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Enqueue admits rec if its URL has not been claimed before.
// It returns true when the record was admitted and false when the URL was
// already claimed or the frontier is closed. The claim persists for the
// lifetime of the crawl: a URL rejected here is never re-enqueued.
func (f *Frontier) Enqueue(rec Record) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return false
	}
	if _, ok := f.claimed[rec.URL]; ok {
		return false
	}

	f.claimed[rec.URL] = struct{}{}
	f.queue = append(f.queue, rec)
	f.cond.Signal()
	return true
}

// Dequeue removes and returns the oldest record, blocking while the queue
// is empty but other workers still hold in-flight records (they may yet
// enqueue more). It returns ok=false once the crawl is quiescent (queue
// empty and nothing in flight) or the frontier is closed.
//
// Every Dequeue that returns ok=true must be followed by exactly one Done.
func (f *Frontier) Dequeue() (rec Record, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if f.closed {
			return Record{}, false
		}
		if len(f.queue) > 0 {
			rec = f.queue[0]
			f.queue = f.queue[1:]
			f.inFlight++
			return rec, true
		}
		if f.inFlight == 0 {
			// Quiescent: nobody can produce more work. Wake the other
			// blocked consumers so they observe the same state and exit.
			f.cond.Broadcast()
			return Record{}, false
		}
		f.cond.Wait()
	}
}

// Done marks one previously dequeued record as fully processed.
// When the last in-flight record completes against an empty queue, all
// consumers blocked in Dequeue are released.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inFlight == 0 {
		panic("frontier: Done called without matching Dequeue")
	}
	f.inFlight--
	if f.inFlight == 0 && len(f.queue) == 0 {
		f.cond.Broadcast()
	}
}

// Close shuts the frontier down, releasing all blocked consumers and
// rejecting further enqueues. It is used for external cancellation; a
// normally completing crawl never needs it.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.cond.Broadcast()
}

// Stats returns a snapshot of the frontier's counters.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Stats{
		Queued:   len(f.queue),
		InFlight: f.inFlight,
		Claimed:  len(f.claimed),
		Closed:   f.closed,
	}
}
