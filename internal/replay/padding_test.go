package replay

import (
	"testing"

	"github.com/svn2svn/svn2svn/internal/svnclient"
)

type fakePaddingOps struct {
	checkoutDest string
	propsets     []string
	commits      int
	nextRev      int
}

func (f *fakePaddingOps) CheckoutEmpty(url, dest string) error {
	f.checkoutDest = dest
	return nil
}
func (f *fakePaddingOps) Propset(prop, value, path string) error {
	f.propsets = append(f.propsets, prop+"="+value)
	return nil
}
func (f *fakePaddingOps) Commit(paths []string, message string, revprops map[string]string) (*svnclient.CommitResult, error) {
	f.commits++
	f.nextRev++
	return &svnclient.CommitResult{Revision: f.nextRev}, nil
}

func TestPadRevisionsNoopWhenKeepRevnumDisabled(t *testing.T) {
	ops := &fakePaddingOps{}
	cfg := Config{}
	c := NewCommitter(cfg, nil)
	state := NewState()
	state.LastTargetRev = 1

	if err := c.PadRevisions(ops, "https://tgt", 10, state); err != nil {
		t.Fatalf("PadRevisions: %v", err)
	}
	if ops.commits != 0 {
		t.Fatalf("expected no padding commits when KeepRevnum is off, got %d", ops.commits)
	}
}

func TestPadRevisionsCatchesUpToWantedRevision(t *testing.T) {
	ops := &fakePaddingOps{nextRev: 1}
	cfg := Config{KeepRevnum: true}
	c := NewCommitter(cfg, nil)
	state := NewState()
	state.LastTargetRev = 1

	if err := c.PadRevisions(ops, "https://tgt", 5, state); err != nil {
		t.Fatalf("PadRevisions: %v", err)
	}
	if state.LastTargetRev != 4 {
		t.Fatalf("LastTargetRev = %d, want 4 (padded up to wantSourceRev-1)", state.LastTargetRev)
	}
	if ops.commits != 3 {
		t.Fatalf("expected 3 padding commits (rev 2,3,4), got %d", ops.commits)
	}
	if ops.checkoutDest == "" {
		t.Fatalf("expected scratch working copy to be checked out")
	}
	if err := state.CloseScratch(); err != nil {
		t.Fatalf("CloseScratch: %v", err)
	}
}
