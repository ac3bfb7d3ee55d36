package syncx

import (
	"sync"
	"testing"
)

func TestValueLoadStore(t *testing.T) {
	v := NewValue("idle")
	if got := v.Load(); got != "idle" {
		t.Errorf("Load() = %q, want idle", got)
	}
	v.Store("running")
	if got := v.Swap("stopped"); got != "running" {
		t.Errorf("Swap() = %q, want running", got)
	}
	if got := v.Load(); got != "stopped" {
		t.Errorf("Load() = %q, want stopped", got)
	}
}

func TestValueZero(t *testing.T) {
	var v Value[int]
	if v.Load() != 0 {
		t.Error("zero Value should hold zero")
	}
}

func TestValueUpdateConcurrent(t *testing.T) {
	type counters struct{ hits, misses int }
	v := NewValue(counters{})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			v.Update(func(c *counters) { c.hits++ })
		}()
		go func() {
			defer wg.Done()
			_ = v.Load()
		}()
	}
	wg.Wait()

	got := v.Update(func(c *counters) { c.misses = 1 })
	if got.hits != 100 || got.misses != 1 {
		t.Errorf("Update() = %+v, want {100 1}", got)
	}
}
