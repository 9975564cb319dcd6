package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"casaview/internal/domain/listing"
)

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		if !ok {
			t.Fatal("snapshot channel closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot{}
}

func TestFeedDeliversCurrentSnapshotOnSubscribe(t *testing.T) {
	store := newFakeStore()
	store.listings["l-1"] = listing.Listing{ID: "l-1", Title: "One"}

	feed := NewFeed(store)
	changes := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx, changes)

	// Wait for the initial refresh
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ready := feed.Current(); ready {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("feed never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}

	sub := feed.Subscribe(ctx)
	snap := waitSnapshot(t, sub)

	if snap.Err != "" {
		t.Fatalf("unexpected snapshot error: %s", snap.Err)
	}
	if len(snap.Listings) != 1 || snap.Listings[0].ID != "l-1" {
		t.Errorf("unexpected snapshot contents: %+v", snap.Listings)
	}
}

func TestFeedBroadcastsOnChange(t *testing.T) {
	store := newFakeStore()
	feed := NewFeed(store)
	changes := make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx, changes)

	sub := feed.Subscribe(ctx)
	first := waitSnapshot(t, sub)
	if len(first.Listings) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", first.Listings)
	}

	store.listings["l-2"] = listing.Listing{ID: "l-2", Title: "Two"}
	changes <- struct{}{}

	second := waitSnapshot(t, sub)
	if len(second.Listings) != 1 || second.Listings[0].ID != "l-2" {
		t.Errorf("change not reflected in snapshot: %+v", second.Listings)
	}
}

func TestFeedReportsQueryErrors(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection refused")

	feed := NewFeed(store)
	feed.refresh(context.Background())

	snap, ready := feed.Current()
	if !ready {
		t.Fatal("feed should be ready even after a failed query")
	}
	if snap.Err == "" {
		t.Error("expected an error snapshot")
	}
	if snap.Listings != nil {
		t.Errorf("error snapshot must carry no listings, got %+v", snap.Listings)
	}
}

func TestFeedSubscriptionEndsWithContext(t *testing.T) {
	feed := NewFeed(newFakeStore())
	feed.refresh(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	sub := feed.Subscribe(ctx)
	waitSnapshot(t, sub)

	cancel()

	select {
	case _, ok := <-sub:
		if ok {
			t.Error("expected closed channel after context cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after context cancel")
	}
}
