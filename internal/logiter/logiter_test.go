package logiter

import (
	"testing"

	"github.com/svn2svn/svn2svn/internal/svnclient"
)

// fakeClient serves log entries from an in-memory revision set and lets
// tests control how long each call "took" by queueing elapsed times.
type fakeClient struct {
	revs     map[int]bool // revisions that exist
	calls    []svnclient.LogOptions
	elapsed  []float64
	elapsedI int
}

func (f *fakeClient) Log(url string, revA, revB int, opt svnclient.LogOptions) ([]svnclient.LogEntry, error) {
	f.calls = append(f.calls, opt)
	var entries []svnclient.LogEntry
	for r := revA; r <= revB; r++ {
		if f.revs[r] {
			entries = append(entries, svnclient.LogEntry{Revision: r})
		}
	}
	return entries, nil
}

func newIteratorWithClock(client LogClient, url string, first, last int, times []float64) *Iterator {
	it := New(client, url, first, last, svnclient.LogOptions{})
	i := 0
	it.timeFn = func() float64 {
		if i >= len(times) {
			i = len(times) - 1
		}
		v := times[i]
		i++
		return v
	}
	return it
}

func drain(t *testing.T, it *Iterator) []int {
	t.Helper()
	var revs []int
	for {
		e, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		revs = append(revs, e.Revision)
	}
	return revs
}

func TestIteratorYieldsAllRevisionsInOrder(t *testing.T) {
	f := &fakeClient{revs: map[int]bool{1: true, 2: true, 5: true, 9: true}}
	it := New(f, "u", 1, 9, svnclient.LogOptions{})
	it.timeFn = func() float64 { return 0 } // always "fast" -> chunk grows, harmless here
	revs := drain(t, it)
	if len(revs) != 4 || revs[0] != 1 || revs[3] != 9 {
		t.Fatalf("unexpected revs: %v", revs)
	}
}

func TestChunkGrowsWhenFast(t *testing.T) {
	f := &fakeClient{revs: map[int]bool{1: true}}
	// Each call reports elapsed = 1s (fast), pairs of (start,end) timestamps.
	it := newIteratorWithClock(f, "u", 1, 1, []float64{0, 1})
	_, _, err := it.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if it.chunk != minChunk*2 {
		t.Fatalf("expected chunk to double to %d, got %d", minChunk*2, it.chunk)
	}
}

func TestChunkShrinksWhenSlow(t *testing.T) {
	f := &fakeClient{revs: map[int]bool{}}
	it := newIteratorWithClock(f, "u", 1, 1, []float64{0, 25})
	it.chunk = 100
	_, _, _ = it.Next()
	if it.chunk != 50 {
		t.Fatalf("expected chunk to halve to 50, got %d", it.chunk)
	}
}

func TestChunkNeverBelowMinOrAboveMax(t *testing.T) {
	f := &fakeClient{revs: map[int]bool{}}
	it := newIteratorWithClock(f, "u", 1, 1, []float64{0, 25})
	it.chunk = minChunk
	it.adaptChunk(25)
	if it.chunk != minChunk {
		t.Fatalf("chunk should floor at %d, got %d", minChunk, it.chunk)
	}
	it.chunk = maxChunk
	it.adaptChunk(1)
	if it.chunk != maxChunk {
		t.Fatalf("chunk should cap at %d, got %d", maxChunk, it.chunk)
	}
}

func TestGapSkippingAdvancesPastEmptyChunks(t *testing.T) {
	// Only revision 500 exists in a [1,1000] window; chunk starts small so
	// several empty chunks must be skipped before reaching it.
	f := &fakeClient{revs: map[int]bool{500: true}}
	it := New(f, "u", 1, 1000, svnclient.LogOptions{})
	it.timeFn = func() float64 { return 0 }
	revs := drain(t, it)
	if len(revs) != 1 || revs[0] != 500 {
		t.Fatalf("expected to find rev 500, got %v", revs)
	}
}

func TestChainSwitchesURLAtSegmentBoundary(t *testing.T) {
	f := &fakeClient{revs: map[int]bool{5: true, 15: true}}
	segs := []Segment{
		{URL: "branch", First: 1, Last: 10},
		{URL: "trunk", First: 11, Last: 20},
	}
	it := NewChain(f, segs, svnclient.LogOptions{})
	it.timeFn = func() float64 { return 0 }
	revs := drain(t, it)
	if len(revs) != 2 || revs[0] != 5 || revs[1] != 15 {
		t.Fatalf("expected [5 15], got %v", revs)
	}
}
