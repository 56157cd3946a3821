package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetSetClear(t *testing.T) {
	c := New()

	if _, ok := c.Get("customers:1"); ok {
		t.Fatal("Get on empty cache ok = true")
	}

	c.Set("customers:1", "alice")
	c.Set("products:2", 12)

	if v, ok := c.Get("customers:1"); !ok || v != "alice" {
		t.Fatalf("Get(customers:1) = %v, %v", v, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	if keys := c.Keys(); len(keys) != 2 || keys[0] != "customers:1" || keys[1] != "products:2" {
		t.Fatalf("Keys() = %v, want sorted keys", keys)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("Len() after Clear = %d, want 0", c.Len())
	}
	if keys := c.Keys(); len(keys) != 0 {
		t.Fatalf("Keys() after Clear = %v", keys)
	}
}

func TestLoadCachesResult(t *testing.T) {
	c := New()
	var calls int32
	init := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "model", nil
	}

	for i := 0; i < 3; i++ {
		got, err := Load(context.Background(), c, "k", init)
		if err != nil || got != "model" {
			t.Fatalf("Load() = %q, %v", got, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("init called %d times, want 1", n)
	}
}

func TestLoadDoesNotCacheErrors(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	calls := 0
	init := func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, boom
		}
		return 7, nil
	}

	if _, err := Load(context.Background(), c, "k", init); !errors.Is(err, boom) {
		t.Fatalf("first Load() error = %v, want boom", err)
	}
	got, err := Load(context.Background(), c, "k", init)
	if err != nil || got != 7 {
		t.Fatalf("second Load() = %d, %v; want 7, nil", got, err)
	}
}

func TestLoadTypeMismatch(t *testing.T) {
	c := New()
	c.Set("k", 1)
	_, err := Load(context.Background(), c, "k", func(context.Context) (string, error) { return "x", nil })
	if err == nil {
		t.Fatal("Load() with mismatched type error = nil")
	}
}

func TestLoadSharesConcurrentInit(t *testing.T) {
	c := New()
	var calls int32
	release := make(chan struct{})
	init := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 5, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := Load(context.Background(), c, "k", init); err != nil || v != 5 {
				t.Errorf("Load() = %d, %v", v, err)
			}
		}()
	}

	// Give the goroutines a chance to join the in-flight call.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("init called %d times, want 1", n)
	}
}

func TestLoadAfterClearIsNotStored(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string)
	go func() {
		v, _ := Load(context.Background(), c, "k", func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
		done <- v
	}()

	<-started
	c.Clear()
	close(release)

	if got := <-done; got != "stale" {
		t.Fatalf("Load() = %q, want caller to still receive its model", got)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("model loaded before Clear was stored after Clear")
	}
}

func TestClearDoesNotTouchHeldModels(t *testing.T) {
	c := New()
	type model struct{ Name string }
	m := &model{Name: "rendered"}
	c.Set("page", m)

	held, _ := c.Get("page")
	c.Clear()

	if held.(*model).Name != "rendered" {
		t.Fatal("Clear mutated a model held by a rendered page")
	}
}

func TestLoadNilCache(t *testing.T) {
	got, err := Load(context.Background(), nil, "k", func(context.Context) (int, error) { return 3, nil })
	if err != nil || got != 3 {
		t.Fatalf("Load(nil cache) = %d, %v", got, err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("FromContext(empty) != nil")
	}
	c := New()
	if got := FromContext(NewContext(context.Background(), c)); got != c {
		t.Fatalf("FromContext() = %p, want %p", got, c)
	}
}
