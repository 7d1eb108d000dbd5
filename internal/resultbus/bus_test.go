package resultbus

import (
	"sync"
	"testing"
	"time"

	"github.com/care/myo/internal/types"
)

func makeResult(window uint64) *types.WindowResult {
	return &types.WindowResult{Window: window}
}

// TestBasicPublishSubscribe verifies basic functionality.
func TestBasicPublishSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan *types.WindowResult, 10)
	if err := bus.Subscribe("test", ch); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	bus.Publish(makeResult(1))

	select {
	case received := <-ch:
		if received.Window != 1 {
			t.Errorf("Expected window 1, got %d", received.Window)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for result")
	}
}

// TestNonBlockingPublish verifies Publish never blocks.
func TestNonBlockingPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	// Subscribe with buffer=1
	ch := make(chan *types.WindowResult, 1)
	bus.Subscribe("slow", ch)

	done := make(chan bool)
	go func() {
		bus.Publish(makeResult(1)) // Should succeed
		bus.Publish(makeResult(2)) // Should drop (buffer full)
		done <- true
	}()

	select {
	case <-done:
		// Success - Publish completed without blocking
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Publish blocked (should be non-blocking)")
	}

	received := <-ch
	if received.Window != 1 {
		t.Errorf("Expected window 1, got %d", received.Window)
	}

	stats, err := bus.Stats("slow")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Sent != 1 {
		t.Errorf("Expected 1 sent, got %d", stats.Sent)
	}
	if stats.Dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", stats.Dropped)
	}
}

// TestConservationLaw verifies sent + dropped == published per subscriber.
func TestConservationLaw(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := make(chan *types.WindowResult, 10) // Large buffer
	ch2 := make(chan *types.WindowResult, 1)  // Small buffer (will drop)

	bus.Subscribe("wide", ch1)
	bus.Subscribe("narrow", ch2)

	for i := uint64(1); i <= 5; i++ {
		bus.Publish(makeResult(i))
	}

	if bus.TotalPublished() != 5 {
		t.Errorf("Expected 5 published, got %d", bus.TotalPublished())
	}

	for _, id := range []string{"wide", "narrow"} {
		stats, err := bus.Stats(id)
		if err != nil {
			t.Fatalf("Stats(%s) failed: %v", id, err)
		}
		if stats.Sent+stats.Dropped != 5 {
			t.Errorf("%s: expected sent+dropped == 5, got %d+%d",
				id, stats.Sent, stats.Dropped)
		}
	}

	wide, _ := bus.Stats("wide")
	if wide.Sent != 5 {
		t.Errorf("Expected wide to receive all 5, got %d", wide.Sent)
	}
	narrow, _ := bus.Stats("narrow")
	if narrow.Dropped != 4 {
		t.Errorf("Expected narrow to drop 4, got %d", narrow.Dropped)
	}
}

// TestSubscribeDuplicateID verifies error handling.
func TestSubscribeDuplicateID(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := make(chan *types.WindowResult, 1)
	ch2 := make(chan *types.WindowResult, 1)

	if err := bus.Subscribe("test", ch1); err != nil {
		t.Fatalf("First subscribe failed: %v", err)
	}

	if err := bus.Subscribe("test", ch2); err != ErrSubscriberExists {
		t.Errorf("Expected ErrSubscriberExists, got %v", err)
	}

	if _, err := bus.SubscribeLatest("test"); err != ErrSubscriberExists {
		t.Errorf("Expected ErrSubscriberExists, got %v", err)
	}
}

// TestNilChannelSubscribe verifies error handling.
func TestNilChannelSubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	if err := bus.Subscribe("test", nil); err != ErrNilChannel {
		t.Errorf("Expected ErrNilChannel, got %v", err)
	}
}

// TestUnsubscribe verifies removal stops delivery.
func TestUnsubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan *types.WindowResult, 1)
	bus.Subscribe("test", ch)

	if err := bus.Unsubscribe("test"); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if _, err := bus.Stats("test"); err != ErrSubscriberNotFound {
		t.Errorf("Expected ErrSubscriberNotFound, got %v", err)
	}

	bus.Publish(makeResult(1))

	select {
	case <-ch:
		t.Error("Received result after unsubscribe")
	case <-time.After(50 * time.Millisecond):
		// Expected - no result received
	}
}

// TestUnsubscribeNotFound verifies error handling.
func TestUnsubscribeNotFound(t *testing.T) {
	bus := New()
	defer bus.Close()

	if err := bus.Unsubscribe("nonexistent"); err != ErrSubscriberNotFound {
		t.Errorf("Expected ErrSubscriberNotFound, got %v", err)
	}
}

// TestLatestSeesNewest verifies a latest subscriber observes only the most
// recent result.
func TestLatestSeesNewest(t *testing.T) {
	bus := New()
	defer bus.Close()

	recv, err := bus.SubscribeLatest("status")
	if err != nil {
		t.Fatalf("SubscribeLatest failed: %v", err)
	}

	for i := uint64(1); i <= 3; i++ {
		bus.Publish(makeResult(i))
	}

	result, ok := recv.TryReceive()
	if !ok {
		t.Fatal("Expected a result")
	}
	if result.Window != 3 {
		t.Errorf("Expected window 3, got %d", result.Window)
	}
}

// TestLatestReceiveBlocks verifies Receive waits for the first result.
func TestLatestReceiveBlocks(t *testing.T) {
	bus := New()
	defer bus.Close()

	recv, err := bus.SubscribeLatest("status")
	if err != nil {
		t.Fatalf("SubscribeLatest failed: %v", err)
	}

	got := make(chan *types.WindowResult, 1)
	go func() {
		got <- recv.Receive()
	}()

	// Give the receiver a moment to block
	time.Sleep(20 * time.Millisecond)
	bus.Publish(makeResult(7))

	select {
	case result := <-got:
		if result == nil || result.Window != 7 {
			t.Errorf("Expected window 7, got %v", result)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for Receive")
	}
}

// TestLatestTryReceiveEmpty verifies TryReceive before any publish.
func TestLatestTryReceiveEmpty(t *testing.T) {
	bus := New()
	defer bus.Close()

	recv, _ := bus.SubscribeLatest("status")

	if result, ok := recv.TryReceive(); ok {
		t.Errorf("Expected no result, got window %d", result.Window)
	}
}

// TestLatestClosedOnUnsubscribe verifies a blocked Receive unblocks with nil
// when its subscription is removed.
func TestLatestClosedOnUnsubscribe(t *testing.T) {
	bus := New()
	defer bus.Close()

	recv, _ := bus.SubscribeLatest("status")

	got := make(chan *types.WindowResult, 1)
	go func() {
		got <- recv.Receive()
	}()

	time.Sleep(20 * time.Millisecond)
	bus.Unsubscribe("status")

	select {
	case result := <-got:
		if result != nil {
			t.Errorf("Expected nil from closed receiver, got window %d", result.Window)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("Timeout waiting for closed Receive")
	}
}

// TestClosedBus verifies behavior after Close().
func TestClosedBus(t *testing.T) {
	bus := New()

	ch := make(chan *types.WindowResult, 1)
	bus.Subscribe("test", ch)

	bus.Close()

	if err := bus.Subscribe("new", make(chan *types.WindowResult, 1)); err != ErrBusClosed {
		t.Errorf("Expected ErrBusClosed, got %v", err)
	}
	if _, err := bus.SubscribeLatest("new"); err != ErrBusClosed {
		t.Errorf("Expected ErrBusClosed, got %v", err)
	}

	// Publish after close is a silent no-op
	bus.Publish(makeResult(1))
	if bus.TotalPublished() != 0 {
		t.Errorf("Expected 0 published after close, got %d", bus.TotalPublished())
	}

	// Close is idempotent
	bus.Close()
}

// TestConcurrentPublish verifies thread safety with multiple publishers.
func TestConcurrentPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch := make(chan *types.WindowResult, 1000)
	bus.Subscribe("test", ch)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(makeResult(uint64(id*100 + j)))
			}
		}(i)
	}

	wg.Wait()

	if bus.TotalPublished() != 1000 {
		t.Errorf("Expected 1000 published, got %d", bus.TotalPublished())
	}

	stats, _ := bus.Stats("test")
	if stats.Sent+stats.Dropped != 1000 {
		t.Errorf("Expected 1000 total (sent+dropped), got %d", stats.Sent+stats.Dropped)
	}
}

// BenchmarkPublishQueued measures Publish with a channel subscriber.
func BenchmarkPublishQueued(b *testing.B) {
	bus := New()
	defer bus.Close()

	ch := make(chan *types.WindowResult, 1000)
	bus.Subscribe("bench", ch)

	go func() {
		for range ch {
		}
	}()

	result := makeResult(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(result)
	}
}

// BenchmarkPublishLatest measures Publish with a latest subscriber.
func BenchmarkPublishLatest(b *testing.B) {
	bus := New()
	defer bus.Close()

	bus.SubscribeLatest("bench")

	result := makeResult(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bus.Publish(result)
	}
}
