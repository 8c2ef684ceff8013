package bus

import (
	"sync"
	"testing"
	"time"
)

// TestRegistrationOrder verifies that listeners run in registration order
func TestRegistrationOrder(t *testing.T) {
	b := New[int]()
	var got []string

	b.Subscribe(func(v int) { got = append(got, "first") })
	b.Subscribe(func(v int) { got = append(got, "second") })
	b.Publish(1)

	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("unexpected delivery order %v", got)
	}
}

// TestNoReplay verifies that late subscribers only see later messages
func TestNoReplay(t *testing.T) {
	b := New[int]()
	b.Publish(1)

	var got []int
	b.Subscribe(func(v int) { got = append(got, v) })
	b.Publish(2)

	if len(got) != 1 || got[0] != 2 {
		t.Errorf("expected only message 2, got %v", got)
	}
}

func TestCancel(t *testing.T) {
	b := New[int]()
	count := 0
	cancel := b.Subscribe(func(int) { count++ })

	b.Publish(1)
	cancel()
	cancel()
	b.Publish(2)

	if count != 1 {
		t.Errorf("expected 1 delivery, got %d", count)
	}
	if b.Subscribers() != 0 {
		t.Errorf("expected no subscribers, got %d", b.Subscribers())
	}
}

// TestReentrantPublish verifies that publishing from a listener neither
// deadlocks nor reorders the outer message
func TestReentrantPublish(t *testing.T) {
	b := New[int]()
	var got []int

	b.Subscribe(func(v int) {
		got = append(got, v)
		if v == 1 {
			b.Publish(2)
			if len(got) != 1 {
				t.Errorf("nested message delivered before the outer one finished: %v", got)
			}
		}
	})

	done := make(chan struct{})
	go func() {
		b.Publish(1)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reentrant publish deadlocked")
	}

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("unexpected delivery %v", got)
	}
}

// TestEnqueueKeepsOrder verifies that messages keep their enqueue order when
// flushed later
func TestEnqueueKeepsOrder(t *testing.T) {
	b := New[int]()
	var got []int
	b.Subscribe(func(v int) { got = append(got, v) })

	for i := 0; i < 5; i++ {
		b.Enqueue(i)
	}
	if len(got) != 0 {
		t.Fatalf("Enqueue delivered early: %v", got)
	}
	b.Flush()

	for i, v := range got {
		if v != i {
			t.Fatalf("unexpected order %v", got)
		}
	}
}

func TestConcurrentPublish(t *testing.T) {
	b := New[int]()
	var (
		mu    sync.Mutex
		count int
	)
	b.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				b.Publish(i)
			}
		}()
	}
	wg.Wait()
	b.Flush()

	mu.Lock()
	defer mu.Unlock()
	if count != producers*perProducer {
		t.Errorf("expected %d deliveries, got %d", producers*perProducer, count)
	}
}

func TestSubscribeChan(t *testing.T) {
	b := New[int]()
	ch, cancel := b.SubscribeChan(1)

	b.Publish(1)
	b.Publish(2) // buffer full, dropped

	select {
	case v := <-ch:
		if v != 1 {
			t.Errorf("expected 1, got %d", v)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	if b.Dropped() != 1 {
		t.Errorf("expected 1 dropped message, got %d", b.Dropped())
	}

	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after cancel")
	}
	b.Publish(3)
}
