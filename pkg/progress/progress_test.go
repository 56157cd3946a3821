package progress

import (
	"sync"
	"testing"
)

func TestStartFinish(t *testing.T) {
	b := New()
	if b.Active() {
		t.Fatal("new bar is active")
	}

	b.Start()
	b.Start()
	if !b.Active() {
		t.Fatal("bar not active after Start")
	}
	if snap := b.Snapshot(); snap.InFlight != 2 || snap.StartedAt.IsZero() {
		t.Fatalf("Snapshot() = %+v", snap)
	}

	b.Finish()
	if !b.Active() {
		t.Fatal("bar idle while one navigation still in flight")
	}
	b.Finish()
	if b.Active() {
		t.Fatal("bar active after all navigations finished")
	}
	if b.Total() != 2 {
		t.Fatalf("Total() = %d, want 2", b.Total())
	}
}

func TestUnbalancedFinishIgnored(t *testing.T) {
	b := New()
	b.Finish()
	if snap := b.Snapshot(); snap.InFlight != 0 {
		t.Fatalf("InFlight = %d after unbalanced Finish", snap.InFlight)
	}
	b.Start()
	if !b.Active() {
		t.Fatal("bar not active after Start following unbalanced Finish")
	}
}

func TestSubscribeTransitionsOnly(t *testing.T) {
	b := New()
	var got []bool
	unsubscribe := b.Subscribe(func(s Snapshot) { got = append(got, s.Active) })

	b.Start()
	b.Start()
	b.Finish()
	b.Finish()

	if len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("transitions = %v, want [true false]", got)
	}

	unsubscribe()
	b.Start()
	if len(got) != 2 {
		t.Fatalf("listener called after unsubscribe: %v", got)
	}
}

func TestConcurrentTransitionsStayOrdered(t *testing.T) {
	b := New()

	var mu sync.Mutex
	var events []bool
	b.Subscribe(func(s Snapshot) {
		mu.Lock()
		events = append(events, s.Active)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b.Start()
				b.Finish()
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 || len(events)%2 != 0 {
		t.Fatalf("got %d transitions, want a non-zero even count", len(events))
	}
	for i, active := range events {
		if want := i%2 == 0; active != want {
			t.Fatalf("transition %d active = %v, want %v", i, active, want)
		}
	}
	if b.Active() {
		t.Error("bar active after all navigations finished")
	}
}
