// Package logiter implements C2, a lazy, chunked, non-restartable sequence
// of source log entries. It is the only component that decides how many
// revisions to ask svn log for in one call — buffering an entire history
// up front would be unacceptable for repositories with millions of
// revisions (§4.2).
package logiter

import (
	"github.com/svn2svn/svn2svn/internal/log"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

const (
	minChunk     = 10
	maxChunk     = 10000
	growDeadline = 10 // seconds; faster than this doubles the chunk
	shrinkAfter  = 20 // seconds; slower than this halves the chunk
)

// LogClient is the subset of *svnclient.Client the iterator needs, so
// tests can substitute a fake.
type LogClient interface {
	Log(url string, revA, revB int, opt svnclient.LogOptions) ([]svnclient.LogEntry, error)
}

// clock abstracts wall-clock measurement so chunk-sizing tests are
// deterministic without sleeping.
type clock interface {
	now() float64 // monotonic seconds
}

// Segment is one leg of an ancestor-chain-aware iteration: query url for
// revisions in [first, last] before switching to the next segment (§4.2's
// "the ONLY correct way to iterate history across a path that was deleted
// and later re-created").
type Segment struct {
	URL        string
	First      int
	Last       int
}

// Iterator produces LogEntry values on demand via Next. Callers that stop
// consuming simply stop calling Next; no background goroutine or
// prefetching exists, so nothing needs to be cancelled (§4.2, §5).
type Iterator struct {
	client   LogClient
	segments []Segment
	segIdx   int
	cur      int // next revision to request, within the current segment
	last     int // end of the current segment
	url      string
	chunk    int
	skip     int // gap-skipping factor, doubles on empty chunks
	pending  []svnclient.LogEntry
	opt      svnclient.LogOptions
	timeFn   func() float64
}

// New builds an iterator over a single URL's history in [first, last].
func New(client LogClient, url string, first, last int, opt svnclient.LogOptions) *Iterator {
	return NewChain(client, []Segment{{URL: url, First: first, Last: last}}, opt)
}

// NewChain builds an iterator that walks a precomputed ancestor chain,
// switching the queried URL at each copy-from boundary (§4.2). Segments
// must be given in chronological (oldest-first) order.
func NewChain(client LogClient, segments []Segment, opt svnclient.LogOptions) *Iterator {
	it := &Iterator{
		client:   client,
		segments: segments,
		chunk:    minChunk,
		skip:     1,
		opt:      opt,
		timeFn:   wallClockSeconds,
	}
	if len(segments) > 0 {
		it.url = segments[0].URL
		it.cur = segments[0].First
		it.last = segments[0].Last
	}
	return it
}

// Next returns the next log entry, or (zero, false, nil) when the
// iteration is exhausted. A non-nil error aborts iteration.
func (it *Iterator) Next() (svnclient.LogEntry, bool, error) {
	for len(it.pending) == 0 {
		if it.segIdx >= len(it.segments) {
			return svnclient.LogEntry{}, false, nil
		}
		if it.cur > it.last {
			it.segIdx++
			if it.segIdx >= len(it.segments) {
				return svnclient.LogEntry{}, false, nil
			}
			it.url = it.segments[it.segIdx].URL
			it.cur = it.segments[it.segIdx].First
			it.last = it.segments[it.segIdx].Last
			it.chunk = minChunk
			it.skip = 1
			continue
		}
		if err := it.fetchChunk(); err != nil {
			return svnclient.LogEntry{}, false, err
		}
	}
	e := it.pending[0]
	it.pending = it.pending[1:]
	return e, true, nil
}

func (it *Iterator) fetchChunk() error {
	chunkEnd := it.cur + it.chunk*it.skip - 1
	if chunkEnd > it.last {
		chunkEnd = it.last
	}
	start := it.timeFn()
	entries, err := it.client.Log(it.url, it.cur, chunkEnd, svnclient.LogOptions{
		Limit:       it.chunk,
		GetPaths:    it.opt.GetPaths,
		GetRevprops: it.opt.GetRevprops,
		StopOnCopy:  it.opt.StopOnCopy,
	})
	elapsed := it.timeFn() - start
	if err != nil {
		return err
	}
	it.adaptChunk(elapsed)

	if len(entries) == 0 {
		// Large gap of irrelevant history: move past the window just
		// queried and grow the skip factor, which widens the next window,
		// so repeated gaps are traversed exponentially faster (§4.2).
		it.cur = chunkEnd + 1
		it.skip *= 2
		return nil
	}
	it.skip = 1
	var kept []svnclient.LogEntry
	last := it.cur - 1
	for _, e := range entries {
		if e.Revision > it.last {
			continue
		}
		kept = append(kept, e)
		if e.Revision > last {
			last = e.Revision
		}
	}
	it.pending = append(it.pending, kept...)
	it.cur = last + 1
	return nil
}

func (it *Iterator) adaptChunk(elapsedSeconds float64) {
	switch {
	case elapsedSeconds < growDeadline:
		it.chunk *= 2
		if it.chunk > maxChunk {
			it.chunk = maxChunk
		}
	case elapsedSeconds > shrinkAfter:
		it.chunk /= 2
		if it.chunk < minChunk {
			it.chunk = minChunk
		}
	}
	log.Announce(log.LevelDetail, "logiter: chunk now %d after %.2fs fetch", it.chunk, elapsedSeconds)
}
