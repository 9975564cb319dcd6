// internal/service/catalog/feed.go

package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"casaview/internal/domain/listing"
)

// Snapshot is one delivery of the live feed: the full, freshly-decoded set
// of current listings, or an error state when the query failed
type Snapshot struct {
	Listings []listing.Listing `json:"listings"`
	Err      string            `json:"error,omitempty"`
}

// Lister is the read surface the feed needs
type Lister interface {
	List(ctx context.Context) ([]listing.Listing, error)
}

// Feed maintains the derived, disposable cache of the listing collection and
// pushes a fresh snapshot to every subscriber on each upstream change. The
// cache is mutated only by the feed loop; subscribers receive values they
// must treat as read-only.
type Feed struct {
	store Lister

	mu      sync.Mutex
	current Snapshot
	ready   bool
	nextID  int
	subs    map[int]chan Snapshot
}

// NewFeed creates a new live feed over the given store
func NewFeed(store Lister) *Feed {
	return &Feed{
		store: store,
		subs:  make(map[int]chan Snapshot),
	}
}

// ListenChanges bridges a NATS change subject onto a coalescing channel
// suitable for Run. The returned stop function drops the subscription.
func ListenChanges(nc *nats.Conn, subject string) (<-chan struct{}, func(), error) {
	changes := make(chan struct{}, 1)

	sub, err := nc.Subscribe(subject, func(_ *nats.Msg) {
		select {
		case changes <- struct{}{}:
		default:
			// A refresh is already pending; it will pick up this change too
		}
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	return changes, func() { sub.Unsubscribe() }, nil
}

// Run loads the initial snapshot, then refreshes on every change
// notification until the context ends
func (f *Feed) Run(ctx context.Context, changes <-chan struct{}) {
	f.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			f.refresh(ctx)
		}
	}
}

// Subscribe returns a channel of snapshots. The current snapshot, if any, is
// delivered immediately; the subscription ends with the context.
func (f *Feed) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 8)

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	if f.ready {
		ch <- f.current
	}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()

		f.mu.Lock()
		delete(f.subs, id)
		close(ch)
		f.mu.Unlock()
	}()

	return ch
}

// Current returns the latest snapshot and whether one has been loaded yet
func (f *Feed) Current() (Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.current, f.ready
}

// refresh re-queries the full ordered set and broadcasts it
func (f *Feed) refresh(ctx context.Context) {
	listings, err := f.store.List(ctx)

	var snap Snapshot
	if err != nil {
		snap = Snapshot{Err: fmt.Sprintf("failed to fetch listings: %v", err)}
	} else {
		if listings == nil {
			listings = []listing.Listing{}
		}
		snap = Snapshot{Listings: listings}
	}

	f.mu.Lock()
	f.current = snap
	f.ready = true
	for _, ch := range f.subs {
		select {
		case ch <- snap:
		default:
			// Slow consumer; it will catch up on the next change
		}
	}
	f.mu.Unlock()
}
