package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/svn2svn/svn2svn/internal/revmap"
	"github.com/svn2svn/svn2svn/internal/svnclient"
)

type fakeCommitOps struct {
	lastPaths    []string
	lastMessage  string
	lastRevprops map[string]string
	result       *svnclient.CommitResult
	err          error
	revpropSets  map[string]string
}

func newFakeCommitOps(rev int) *fakeCommitOps {
	return &fakeCommitOps{result: &svnclient.CommitResult{Revision: rev}, revpropSets: map[string]string{}}
}

func (f *fakeCommitOps) Commit(paths []string, message string, revprops map[string]string) (*svnclient.CommitResult, error) {
	f.lastPaths, f.lastMessage, f.lastRevprops = paths, message, revprops
	return f.result, f.err
}
func (f *fakeCommitOps) PropsetRevprop(prop, value string, rev int, url string) error {
	f.revpropSets[prop] = value
	return nil
}

func TestCommitSetsTrackingRevprops(t *testing.T) {
	ops := newFakeCommitOps(42)
	cfg := Config{SourceRoot: "https://src/repo", SourceUUID: "uuid-1", WCPath: "/wc"}
	c := NewCommitter(cfg, ops)
	state := NewState()

	entry := svnclient.LogEntry{Revision: 5, Message: "hello"}
	rev, err := c.Commit(entry, []string{"a.txt"}, state)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if rev != 42 {
		t.Fatalf("rev = %d, want 42", rev)
	}
	if ops.lastRevprops[revmap.RevpropSourceUUID] != "uuid-1" {
		t.Fatalf("missing source uuid revprop: %v", ops.lastRevprops)
	}
	if ops.lastRevprops[revmap.RevpropSourceRev] != "5" {
		t.Fatalf("source rev revprop = %q, want 5", ops.lastRevprops[revmap.RevpropSourceRev])
	}
	if got, ok := state.RevMap.Get(5); !ok || got != 42 {
		t.Fatalf("revmap not updated: got (%d, %v)", got, ok)
	}
	if state.LastSourceRev != 5 || state.LastTargetRev != 42 {
		t.Fatalf("state not updated: %+v", state)
	}
}

func TestCommitPassesExplicitPathsBelowThreshold(t *testing.T) {
	ops := newFakeCommitOps(2)
	cfg := Config{WCPath: "/wc"}.WithExplicitPathLimit(3)
	c := NewCommitter(cfg, ops)
	state := NewState()

	if _, err := c.Commit(svnclient.LogEntry{Revision: 1}, []string{"a", "b"}, state); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(ops.lastPaths) != 2 {
		t.Fatalf("expected explicit paths, got %v", ops.lastPaths)
	}
}

func TestCommitCommitsFromRootAtOrAboveThreshold(t *testing.T) {
	ops := newFakeCommitOps(2)
	cfg := Config{WCPath: "/wc"}.WithExplicitPathLimit(2)
	c := NewCommitter(cfg, ops)
	state := NewState()

	if _, err := c.Commit(svnclient.LogEntry{Revision: 1}, []string{"a", "b"}, state); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ops.lastPaths != nil {
		t.Fatalf("expected nil paths (commit from root), got %v", ops.lastPaths)
	}
}

func TestCommitDryRunSkipsCommit(t *testing.T) {
	ops := newFakeCommitOps(99)
	cfg := Config{DryRun: true, WCPath: "/wc"}
	c := NewCommitter(cfg, ops)
	state := NewState()

	rev, err := c.Commit(svnclient.LogEntry{Revision: 1}, []string{"a"}, state)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if rev != 0 {
		t.Fatalf("expected rev 0 in dry-run, got %d", rev)
	}
	if ops.lastMessage != "" {
		t.Fatalf("expected Commit() never called in dry-run")
	}
}

func TestCommitAppendsCosmeticLines(t *testing.T) {
	ops := newFakeCommitOps(3)
	cfg := Config{LogAuthor: true, LogDate: true, WCPath: "/wc"}
	c := NewCommitter(cfg, ops)
	state := NewState()

	entry := svnclient.LogEntry{
		Revision: 1, Message: "fix bug", Author: "alice",
		DateEpoch: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if _, err := c.Commit(entry, nil, state); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !strings.Contains(ops.lastMessage, "Author: alice") {
		t.Fatalf("message missing cosmetic author line: %q", ops.lastMessage)
	}
	if !strings.Contains(ops.lastMessage, "Date:") {
		t.Fatalf("message missing cosmetic date line: %q", ops.lastMessage)
	}
}

func TestCommitCarriesSourceRevpropsWhenKeepRevpropSet(t *testing.T) {
	ops := newFakeCommitOps(3)
	cfg := Config{KeepRevprop: true, WCPath: "/wc"}
	c := NewCommitter(cfg, ops)
	state := NewState()

	entry := svnclient.LogEntry{
		Revision: 1, Message: "m", Author: "a",
		Revprops: map[string]string{"svn:log": "m", "svn:author": "a", "custom:ticket": "JIRA-9"},
	}
	if _, err := c.Commit(entry, nil, state); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if ops.lastRevprops["custom:ticket"] != "JIRA-9" {
		t.Fatalf("expected custom revprop carried, got %v", ops.lastRevprops)
	}
	if _, present := ops.lastRevprops["svn:log"]; present {
		t.Fatalf("svn:log should never be blindly carried: %v", ops.lastRevprops)
	}
}
