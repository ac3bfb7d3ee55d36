package results

import (
	"context"
	"strconv"
	"testing"

	"github.com/GriffinCanCode/autovod/internal/orchestrator/screen"
)

func capture(id int) screen.Capture {
	return screen.Capture{ID: strconv.Itoa(id)}
}

func TestStoreAdd(t *testing.T) {
	s := NewStore(30, 10)
	s.Add(capture(1))

	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
	latest, ok := s.Latest()
	if !ok || latest.ID != "1" {
		t.Errorf("Latest() = %+v, %v", latest, ok)
	}
}

func TestStoreMaxSize(t *testing.T) {
	s := NewStore(5, 10)
	for i := 0; i < 10; i++ {
		s.Add(capture(i))
	}

	if s.Len() != 5 {
		t.Errorf("expected 5 entries, got %d", s.Len())
	}
	recent := s.Recent(0)
	if recent[0].ID != "9" || recent[4].ID != "5" {
		t.Errorf("Recent() = %v ... %v, want 9 ... 5", recent[0].ID, recent[4].ID)
	}
}

func TestRecentNewestFirst(t *testing.T) {
	s := NewStore(30, 10)
	for i := 1; i <= 3; i++ {
		s.Add(capture(i))
	}

	tests := []struct {
		n    int
		want []string
	}{
		{2, []string{"3", "2"}},
		{0, []string{"3", "2", "1"}},
		{10, []string{"3", "2", "1"}},
	}
	for _, tt := range tests {
		got := s.Recent(tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("Recent(%d) len = %d, want %d", tt.n, len(got), len(tt.want))
		}
		for i := range got {
			if got[i].ID != tt.want[i] {
				t.Errorf("Recent(%d)[%d] = %s, want %s", tt.n, i, got[i].ID, tt.want[i])
			}
		}
	}
}

func TestLatestEmpty(t *testing.T) {
	if _, ok := NewStore(3, 1).Latest(); ok {
		t.Error("Latest() on empty store should report false")
	}
}

func TestEmitNonBlocking(t *testing.T) {
	s := NewStore(30, 1)
	s.Emit(capture(1))
	s.Emit(capture(2)) // buffer full, dropped

	if got := <-s.Events(); got.ID != "1" {
		t.Errorf("event = %s, want 1", got.ID)
	}
	if s.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", s.Dropped())
	}
}

func TestSink(t *testing.T) {
	s := NewStore(30, 1)
	s.Sink(context.Background(), capture(7))

	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	select {
	case c := <-s.Events():
		if c.ID != "7" {
			t.Errorf("event = %s, want 7", c.ID)
		}
	default:
		t.Error("Sink should emit an event")
	}
}
