package hotness

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func almostEq(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got=%g want=%g (eps=%g)", got, want, eps)
	}
}

func newTestTracker(hl time.Duration) (*Tracker, *clockwork.FakeClock) {
	clk := clockwork.NewFakeClockAt(time.Unix(0, 0).UTC())
	return New(hl, WithClock(clk), WithName("test")), clk
}

const dhakaCell = "883c6e2c5dfffff"

func TestIncAndScore_AccumulatesImmediately(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)

	tr.Inc(dhakaCell)
	almostEq(t, tr.Score(dhakaCell), 1.0, 1e-9)
	tr.Inc(dhakaCell)
	tr.Inc(dhakaCell)
	almostEq(t, tr.Score(dhakaCell), 3.0, 1e-9)

	tr.Inc("")
	if tr.Size() != 1 {
		t.Fatalf("empty cell must be ignored, size=%d", tr.Size())
	}
}

func TestHalfLife_DecaysByHalf(t *testing.T) {
	hl := 2 * time.Second
	tr, clk := newTestTracker(hl)

	tr.Inc(dhakaCell)
	clk.Advance(hl)
	almostEq(t, tr.Score(dhakaCell), 0.5, 1e-6)
	clk.Advance(hl)
	almostEq(t, tr.Score(dhakaCell), 0.25, 1e-6)

	// decayed value carries into the next increment
	tr.Inc(dhakaCell)
	almostEq(t, tr.Score(dhakaCell), 1.25, 1e-6)
}

func TestConcurrency_ManyIncSameCell(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)
	const N = 256

	var wg sync.WaitGroup
	wg.Add(N)
	for range N {
		go func() {
			defer wg.Done()
			tr.Inc(dhakaCell)
		}()
	}
	wg.Wait()
	almostEq(t, tr.Score(dhakaCell), N, 1e-9)
}

func TestTop_OrdersByScore(t *testing.T) {
	tr, _ := newTestTracker(time.Minute)
	for range 3 {
		tr.Inc("b")
	}
	tr.Inc("a")
	tr.Inc("c")

	top := tr.Top(2)
	if len(top) != 2 {
		t.Fatalf("got %d cells want 2", len(top))
	}
	if top[0].Cell != "b" || top[1].Cell != "a" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if tr.Top(0) != nil {
		t.Fatal("Top(0) should be nil")
	}
}

func TestReset_AndPrune(t *testing.T) {
	tr, clk := newTestTracker(time.Second)
	tr.Inc("a")
	tr.Inc("b")

	tr.Reset("a")
	if got := tr.Score("a"); got != 0 {
		t.Fatalf("reset failed: got %g", got)
	}
	if tr.Score("b") <= 0 {
		t.Fatal("b must survive reset of a")
	}

	clk.Advance(10 * time.Second)
	if n := tr.Prune(); n != 1 {
		t.Fatalf("pruned %d want 1", n)
	}
	if tr.Size() != 0 {
		t.Fatalf("size=%d after prune", tr.Size())
	}
}

func TestDecayHelper_Edges(t *testing.T) {
	if got := decay(0, 10, 60); got != 0 {
		t.Fatalf("expected 0, got %g", got)
	}
	if got := decay(5, 0, 60); got != 5 {
		t.Fatalf("expected 5, got %g", got)
	}
	if got := decay(5, 10, 0); got != 5 {
		t.Fatalf("expected 5, got %g", got)
	}
}
