package revmap

import (
	"testing"

	"github.com/svn2svn/svn2svn/internal/svnclient"
)

func TestGetReturnsFloor(t *testing.T) {
	m := New()
	m.Insert(10, 1)
	m.Insert(20, 2)
	m.Insert(30, 3)

	cases := []struct {
		query   int
		wantTgt int
		wantOK  bool
	}{
		{5, 0, false},
		{10, 1, true},
		{15, 1, true},
		{20, 2, true},
		{29, 2, true},
		{30, 3, true},
		{100, 3, true},
	}
	for _, c := range cases {
		got, ok := m.Get(c.query)
		if ok != c.wantOK || (ok && got != c.wantTgt) {
			t.Errorf("Get(%d) = (%d, %v), want (%d, %v)", c.query, got, ok, c.wantTgt, c.wantOK)
		}
	}
}

func TestMonotoneInsertOrder(t *testing.T) {
	m := New()
	srcs := []int{1, 5, 9, 12}
	for i, s := range srcs {
		m.Insert(s, i+1)
	}
	last := -1
	m.Each(func(src, tgt int) {
		if tgt <= last {
			t.Errorf("non-monotone target sequence: %d after %d", tgt, last)
		}
		last = tgt
	})
	if m.Size() != len(srcs) {
		t.Errorf("size = %d, want %d", m.Size(), len(srcs))
	}
}

func TestLast(t *testing.T) {
	m := New()
	if _, ok := m.Last(); ok {
		t.Fatalf("empty map should have no Last()")
	}
	m.Insert(3, 30)
	m.Insert(7, 70)
	src, ok := m.Last()
	if !ok || src != 7 {
		t.Fatalf("Last() = (%d, %v), want (7, true)", src, ok)
	}
}

type fakeLogClient struct {
	entries []svnclient.LogEntry
}

func (f *fakeLogClient) Log(url string, revA, revB int, opt svnclient.LogOptions) ([]svnclient.LogEntry, error) {
	return f.entries, nil
}

func TestRebuildFromTargetSkipsMismatchedEntries(t *testing.T) {
	f := &fakeLogClient{entries: []svnclient.LogEntry{
		{Revision: 5, Revprops: map[string]string{
			RevpropSourceUUID: "uuid-1", RevpropSourceURL: "http://src", RevpropSourceRev: "100",
		}},
		{Revision: 6, Revprops: map[string]string{
			RevpropSourceUUID: "other-uuid", RevpropSourceURL: "http://src", RevpropSourceRev: "101",
		}},
		{Revision: 7, Revprops: map[string]string{}},
	}}
	m, err := RebuildFromTarget(f, "http://tgt", 7, "uuid-1", "http://src")
	if err != nil {
		t.Fatalf("RebuildFromTarget: %v", err)
	}
	if m.Size() != 1 {
		t.Fatalf("expected 1 entry, got %d", m.Size())
	}
	got, ok := m.Get(100)
	if !ok || got != 5 {
		t.Fatalf("Get(100) = (%d, %v), want (5, true)", got, ok)
	}
}
