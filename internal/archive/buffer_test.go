package archive

import (
	"sync"
	"testing"
)

func TestBuffer_BasicSendReceive(t *testing.T) {
	buf := NewBuffer[int](10)

	for i := 0; i < 5; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	if buf.Len() != 5 {
		t.Errorf("Len() = %d, want 5", buf.Len())
	}

	for i := 0; i < 5; i++ {
		val, ok := buf.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}

	if buf.Len() != 0 {
		t.Errorf("Len() = %d, want 0", buf.Len())
	}
}

func TestBuffer_GrowAt70Percent(t *testing.T) {
	buf := NewBuffer[int](10)

	// 7 items is 70% of 10
	for i := 0; i < 7; i++ {
		buf.Send(i)
	}

	stats := buf.Stats()
	if stats.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", stats.Capacity)
	}
	if stats.Resizes != 1 {
		t.Errorf("Resizes = %d, want 1", stats.Resizes)
	}

	for i := 0; i < 7; i++ {
		val, ok := buf.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}
}

func TestBuffer_MultipleGrows(t *testing.T) {
	buf := NewBuffer[int](4)

	for i := 0; i < 100; i++ {
		if !buf.Send(i) {
			t.Fatalf("Send(%d) returned false", i)
		}
	}

	stats := buf.Stats()
	if stats.Len != 100 {
		t.Errorf("Len = %d, want 100", stats.Len)
	}
	if stats.Resizes < 3 {
		t.Errorf("Resizes = %d, expected at least 3", stats.Resizes)
	}

	for i := 0; i < 100; i++ {
		val, ok := buf.TryReceive()
		if !ok {
			t.Fatalf("TryReceive() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("received %d, want %d", val, i)
		}
	}
}

func TestBuffer_WrapAround(t *testing.T) {
	buf := NewBuffer[int](10)

	// Advance head so the ring wraps before the next growth
	for i := 1; i <= 5; i++ {
		buf.Send(i)
	}
	for i := 1; i <= 5; i++ {
		buf.TryReceive()
	}

	// These sends wrap past the end of the ring and the last one grows it
	for i := 6; i <= 12; i++ {
		buf.Send(i)
	}

	for want := 6; want <= 12; want++ {
		got, ok := buf.TryReceive()
		if !ok {
			t.Fatalf("TryReceive failed, expected %d", want)
		}
		if got != want {
			t.Errorf("got %d, want %d", got, want)
		}
	}
}

func TestBuffer_Close(t *testing.T) {
	buf := NewBuffer[int](10)

	buf.Send(1)
	buf.Send(2)

	buf.Close()

	if buf.Send(3) {
		t.Error("Send should return false after Close")
	}

	// Items queued before Close stay receivable
	val, ok := buf.TryReceive()
	if !ok || val != 1 {
		t.Errorf("TryReceive() = %d, %v; want 1, true", val, ok)
	}

	val, ok = buf.TryReceive()
	if !ok || val != 2 {
		t.Errorf("TryReceive() = %d, %v; want 2, true", val, ok)
	}

	_, ok = buf.TryReceive()
	if ok {
		t.Error("TryReceive should return false when empty and closed")
	}
}

func TestBuffer_ConcurrentSend(t *testing.T) {
	buf := NewBuffer[int](10)
	const senders = 4
	const perSender = 250

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perSender; i++ {
				buf.Send(base + i)
			}
		}(s * perSender)
	}
	wg.Wait()

	if buf.Len() != senders*perSender {
		t.Fatalf("Len() = %d, want %d", buf.Len(), senders*perSender)
	}

	seen := make(map[int]bool)
	for {
		val, ok := buf.TryReceive()
		if !ok {
			break
		}
		seen[val] = true
	}
	for i := 0; i < senders*perSender; i++ {
		if !seen[i] {
			t.Errorf("missing item %d", i)
		}
	}
}

func TestBuffer_Stats(t *testing.T) {
	buf := NewBuffer[int](10)

	stats := buf.Stats()
	if stats.Len != 0 || stats.Capacity != 10 || stats.Accepted != 0 || stats.Delivered != 0 {
		t.Errorf("initial stats incorrect: %+v", stats)
	}

	buf.Send(1)
	buf.Send(2)
	buf.Send(3)

	stats = buf.Stats()
	if stats.Len != 3 || stats.Accepted != 3 {
		t.Errorf("stats after sends: %+v", stats)
	}

	buf.TryReceive()
	buf.TryReceive()

	stats = buf.Stats()
	if stats.Len != 1 || stats.Delivered != 2 {
		t.Errorf("stats after receives: %+v", stats)
	}
}

func TestNewBuffer_MinCapacity(t *testing.T) {
	buf := NewBuffer[int](0)
	if buf.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1 for initial capacity 0", buf.Cap())
	}

	buf = NewBuffer[int](-5)
	if buf.Cap() != 1 {
		t.Errorf("Cap() = %d, want 1 for negative initial capacity", buf.Cap())
	}
}
